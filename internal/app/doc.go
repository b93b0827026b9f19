// Package app contains the core application logic. It wires the formula
// loader, resolver, executor and emitters together behind one method per
// command, decoupled from any specific entrypoint like a CLI.
package app
