// Package tool defines the callable tools agents expose to the model and
// the normalization of their return values.
//
// A tool's handler may return a plain string, a *Result, or a handoff to
// another agent. The dispatcher normalizes all of them into a Result exactly
// once, so the engine never branches on runtime type. Tools declare up front
// whether they want the running context-variable mapping or the CTF handle
// injected; the dispatcher checks those capabilities instead of passing
// arguments blindly.
package tool
