// Package session binds exactly one live external resource (a browser,
// device or API handle) to each test worker.
//
// A Registry creates the resource lazily on the worker's first Acquire and
// tears it down on Release. Release is idempotent and never returns
// teardown failures; they are logged and counted instead. Each Session
// carries its own AuthContext and value store so no state crosses workers.
package session
