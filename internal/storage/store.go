// Package storage archives occultation processing output in a SQLite
// database: one run per assembled profile, the profile's radial samples
// and any ring-feature fits performed against it.
package storage

import (
	"context"

	"github.com/planetary-radio/ringocc/internal/dlp"
	"github.com/planetary-radio/ringocc/internal/ringfit"
)

// Store manages occultation archive storage. All writes are atomic;
// profile samples are stored within a single transaction.
type Store interface {
	// CreateRun registers a processing run for one profile and returns
	// its identifier. config may be a string, []byte or any
	// JSON-serializable value describing the run parameters.
	CreateRun(ctx context.Context, obsID string, direction string, drKm float64, config any) (runID int64, err error)

	// StoreProfile saves every radial sample of a profile under the
	// given run in one transaction.
	StoreProfile(ctx context.Context, runID int64, p *dlp.Profile) error

	// StoreFit saves a ring-feature fit result, optionally linked to a
	// run.
	StoreFit(ctx context.Context, runID *int64, r *ringfit.Result) (fitID int64, err error)

	// Runs returns all registered runs ordered by creation time.
	Runs(ctx context.Context) ([]Run, error)

	// ProfileSampleCount returns the number of stored samples for a run.
	ProfileSampleCount(ctx context.Context, runID int64) (int64, error)

	// Close releases all database resources. It is safe to call Close
	// multiple times.
	Close() error
}

// Run describes one registered processing run.
type Run struct {
	ID        int64
	CreatedAt string
	ObsID     string
	Direction string
	DrKm      float64
	Config    *string
}
