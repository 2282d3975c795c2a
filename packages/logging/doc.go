// Package logging builds the structured loggers used across the harness.
//
// Console output goes through a tint handler so worker, session and test
// attributes stay readable when many workers log at once.
package logging
