// Package action performs UI operations that survive timing and
// interception problems.
//
// Every operation waits for its precondition (present, visible or
// clickable) and then acts natively. When the native action fails with an
// intercepted, stale or not-interactable error the executor makes exactly
// one scripted attempt: it re-resolves the target, scrolls it into view and
// performs the operation through JavaScript. A precondition that never
// holds is not recoverable and gets no fallback.
package action
