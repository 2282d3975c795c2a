// Package retry defines immutable retry policies shared by the HTTP retry
// engine and the test-level retry in the runner.
//
// A Policy bounds the number of attempts, decides the delay before each
// retry and classifies an attempt outcome as retryable or final.
package retry
