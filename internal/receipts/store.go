package receipts

import (
	"context"
	"errors"
	"time"

	"github.com/specialistvlad/formulagrid/internal/executor"
	"github.com/specialistvlad/formulagrid/internal/layout"
	"github.com/specialistvlad/formulagrid/internal/resolver"
)

// ErrNotFound is returned by Get when no receipt exists for a name.
var ErrNotFound = errors.New("receipt not found")

// Receipt describes one installed package.
type Receipt struct {
	RunID       string
	Name        string
	Version     string
	Prefix      string
	InstalledAt time.Time
	BuildDeps   []string
	RuntimeDeps []string
}

// Store persists receipts keyed by package name.
type Store interface {
	// Put inserts or replaces the receipt of r.Name.
	Put(ctx context.Context, r Receipt) error
	// Get returns the receipt of name, or ErrNotFound.
	Get(ctx context.Context, name string) (Receipt, error)
	// List returns every receipt ordered by name.
	List(ctx context.Context) ([]Receipt, error)
	Close() error
}

// Record stores a receipt for every succeeded result of a build and returns
// how many were written.
func Record(ctx context.Context, s Store, runID string, plan *resolver.Plan, results []executor.BuildResult, l layout.Layout) (int, error) {
	now := time.Now().UTC()
	written := 0
	for i, res := range results {
		if !res.OK() {
			continue
		}
		f := plan.Formulae[i]
		r := Receipt{
			RunID:       runID,
			Name:        f.Name,
			Version:     f.Version,
			Prefix:      l.Prefix(f.Name, f.Version),
			InstalledAt: now,
			BuildDeps:   f.BuildDeps,
			RuntimeDeps: f.RuntimeDeps,
		}
		if err := s.Put(ctx, r); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}
