// Package testutil holds helpers shared by the tests of several packages:
// a goroutine-safe log buffer, formula file fixtures and a recording step
// runner.
package testutil
