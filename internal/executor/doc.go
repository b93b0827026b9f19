// Package executor runs a resolved plan. Each package's steps run strictly in
// declared order through an injected StepRunner; the executor itself never
// starts a process, which keeps it deterministic under test.
//
// # Failure policy
//
// The first failing step of a package stops that package. Every package that
// depends on it, directly or transitively, is marked skipped and never
// reaches the runner. Packages with no dependency on the failed one still
// build, and every outcome is reported.
//
// # Concurrency
//
// With one worker the plan runs sequentially in plan order. With more, a
// bounded pool builds any package whose dependencies have all succeeded, so
// independent branches of the plan progress in parallel. Each package owns
// its working directory; the only shared state is the scheduling
// bookkeeping, guarded by a mutex.
//
// # Cancellation
//
// Cancelling the context stops packages that have not started. A package that
// is already running finishes (or times out) its current step and is then
// recorded as canceled.
package executor
