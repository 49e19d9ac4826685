// Package runlet executes one child process per call and returns a
// structured outcome. A command is built, run exactly once, and the
// result distinguishes three cases: the process could not be spawned,
// waited on, or read (a communication failure, returned as an ordinary
// error); the process ran but its exit status or captured stderr
// indicates failure (returned as a *CommandError); or the process
// succeeded. There is no way to obtain an outcome without the runner
// having spawned, waited, and checked.
package runlet

// Version is the runlet release version.
const Version = "0.3.1"
