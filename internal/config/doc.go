// Package config reads the optional YAML run configuration.
//
// Every field of File is optional: a nil pointer means "not set", so the
// caller can layer the file between built-in defaults and command-line
// flags. Unknown keys are rejected to catch typos early.
package config
