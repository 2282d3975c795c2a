// Package artifact stores diagnostic captures taken when a test fails.
package artifact
