// Package session manages long-lived interactive subprocess sessions:
// listeners, reverse shells, remote logins, anything that outlives a single
// tool call.
//
// A session is a background process on a pty whose output is buffered
// asynchronously. Tools address sessions by opaque id across turns: start a
// listener in one interaction, send it input in the next, read whatever
// arrived in a third. Regular commands never touch the registry; they run
// synchronously through the exec package.
package session
