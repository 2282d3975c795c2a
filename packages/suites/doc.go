// Package suites holds the bundled UI and API test suites runnable from
// the command line.
package suites
