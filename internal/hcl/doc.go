// Package hcl reads and writes formula files written in HCL. It is the only
// package that knows about the on-disk syntax; everything downstream works on
// the format-agnostic formula.Formula model.
//
// A file holds one or more `formula "<name>" { ... }` blocks. Strings inside
// `install`, `test` and `service` blocks may reference install locations as
// `${prefix}`, `${bin}` and so on; those references are kept verbatim in the
// model and expanded only when a command runs.
package hcl
