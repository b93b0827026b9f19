// Package receipts records which formulae a build installed.
//
// A receipt is written for every package that built successfully: the run
// that produced it, the version and keg prefix, and the dependencies it was
// built against. Reinstalling a package replaces its receipt.
//
// Two Store implementations exist. SQLiteStore persists receipts in a
// single-file database next to the install tree and is what the CLI uses.
// MemoryStore keeps them for the lifetime of one application instance when
// no database path is configured.
package receipts
