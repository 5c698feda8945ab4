package services

import (
	"log/slog"
	"slices"
	"time"

	"github.com/vncsmyrnk/pollcore/internal/core/ports"
)

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

type options struct {
	clock  ports.Clock
	logger *slog.Logger
}

type Option func(*options)

func WithClock(clock ports.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func resolveOptions(opts []Option) options {
	o := options{
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = SystemClock{}
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// normalizeIDs returns the distinct ids in ascending order, dropping zeros.
func normalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// addedIDs returns the ids in next that are not in prev.
func addedIDs(prev, next []int64) []int64 {
	known := make(map[int64]struct{}, len(prev))
	for _, id := range prev {
		known[id] = struct{}{}
	}
	var added []int64
	for _, id := range next {
		if _, ok := known[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}
