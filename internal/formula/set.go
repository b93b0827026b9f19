// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package formula

import (
	"fmt"
	"sort"
)

// Set is a batch of formulae keyed by name.
type Set map[string]*Formula

// NewSet builds a Set from a list of formulae. It returns an error naming the
// first duplicate it finds.
func NewSet(formulae ...*Formula) (Set, error) {
	s := make(Set, len(formulae))
	for _, f := range formulae {
		if err := s.Add(f); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts f, refusing to overwrite an existing entry.
func (s Set) Add(f *Formula) error {
	if _, exists := s[f.Name]; exists {
		return fmt.Errorf("formula %q already present in set", f.Name)
	}
	s[f.Name] = f
	return nil
}

// Get looks a formula up by name.
func (s Set) Get(name string) (*Formula, bool) {
	f, ok := s[name]
	return f, ok
}

// Names returns every formula name in ascending order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
