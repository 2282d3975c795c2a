// Package ui declares the capabilities the harness needs from a remote UI
// session: locating elements, acting on them, running scripts and taking
// screenshots.
//
// Backends report failures with errors that match the sentinels below so
// callers classify them with errors.Is, never by message text.
package ui
