// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package formula provides the in-memory representation of a package build
// descriptor ("formula"). A formula names a package, points at its source
// archive, lists the packages it needs at build time and at run time, and
// declares the ordered commands that build and install it.
//
// # Core Concepts
//
//   - Formula: The descriptor for one package. It is produced by a loader and
//     treated as read-only afterwards. The resolver and executor only hold
//     pointers to it.
//
//   - Step: One external command, expressed as an executable and an ordered
//     argument list. There is no shell in between, so arguments are passed to
//     the process exactly as declared.
//
//   - ServiceTemplate: The optional daemon definition used to render a
//     service-supervision document once the package is installed.
//
//   - Set: A batch of formulae keyed by name. Names are unique within a set.
//
// # Placeholders
//
// Any string in a Step or ServiceTemplate may contain `${name}` references to
// install locations (for example `--prefix=${prefix}`). The model keeps them
// verbatim; they are expanded against a layout.Bindings value right before a
// command runs or a service document is rendered.
package formula
