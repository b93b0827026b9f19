// Package steprunner runs build steps as real child processes. It is the
// production implementation of executor.StepRunner.
//
// Each step runs in its own process group so a timeout or cancellation
// stops the whole tree a build script may have spawned (make, cc, ...).
// Output is captured as combined stdout and stderr, optionally through a
// pseudo-terminal for tools that only print progress to a tty.
package steprunner
