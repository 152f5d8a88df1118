// Package numbering issues the human-facing document numbers (ORD-YYYYMM-NNNN and friends).
package numbering

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/corray333/backend-labs/trade/internal/errs"
)

// Document number prefixes.
const (
	PrefixOrder       = "ORD"
	PrefixShipment    = "SHP"
	PrefixTransaction = "TXN"
)

const (
	defaultMaxAttempts = 20

	// MaxSerial is the last serial that fits the four-digit block.
	MaxSerial = 9999
)

// Sequence yields candidate serials for a prefix within a period (YYYYMM).
type Sequence interface {
	Next(ctx context.Context, prefix, period string) (int64, error)
}

// RandomSequence draws serials uniformly from 1..MaxSerial. Collisions are expected and resolved by retry.
type RandomSequence struct{}

func (RandomSequence) Next(_ context.Context, _, _ string) (int64, error) {
	return rand.Int64N(MaxSerial) + 1, nil
}

// Generator formats serials into document numbers and retries on collisions.
type Generator struct {
	seq         Sequence
	now         func() time.Time
	maxAttempts int
}

// option is a function that configures the Generator.
type option func(*Generator)

// NewGenerator creates a Generator. RandomSequence is used when seq is nil.
func NewGenerator(seq Sequence, opts ...option) *Generator {
	if seq == nil {
		seq = RandomSequence{}
	}
	g := &Generator{
		seq:         seq,
		now:         time.Now,
		maxAttempts: defaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g
}

// WithClock overrides the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(g *Generator) {
		g.now = now
	}
}

// WithMaxAttempts bounds the number of collisions tolerated by Assign.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithMaxAttempts(n int) option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// Next returns one candidate number such as ORD-202601-0042.
func (g *Generator) Next(ctx context.Context, prefix string) (string, error) {
	period := g.now().UTC().Format("200601")
	serial, err := g.seq.Next(ctx, prefix, period)
	if err != nil {
		return "", fmt.Errorf("failed to get next %s serial: %w", prefix, err)
	}
	if serial < 1 || serial > MaxSerial {
		return "", errs.Conflict("%s numbers for %s are exhausted", prefix, period)
	}

	return Format(prefix, period, serial), nil
}

// Assign generates numbers and calls insert until insert stops reporting errs.ErrDuplicateKey.
func (g *Generator) Assign(ctx context.Context, prefix string, insert func(no string) error) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		no, err := g.Next(ctx, prefix)
		if err != nil {
			return "", err
		}

		err = insert(no)
		if err == nil {
			return no, nil
		}
		if !errors.Is(err, errs.ErrDuplicateKey) {
			return "", err
		}

		slog.Warn("Document number collision, regenerating", "prefix", prefix, "number", no, "attempt", attempt)
	}

	return "", fmt.Errorf("%w: no free %s number after %d attempts", errs.ErrInternal, prefix, g.maxAttempts)
}

// Format renders a number such as ORD-202601-0042.
func Format(prefix, period string, serial int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, period, serial)
}
