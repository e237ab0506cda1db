package transform

import (
	"fmt"
	"log/slog"
	"strings"
)

// Mode selects where National Road Type lives.
type Mode string

const (
	// ModeA keeps road type on Crash; the location key excludes it.
	ModeA Mode = "MODE_A"
	// ModeB moves road type to Location and into the location key.
	ModeB Mode = "MODE_B"
)

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mode_a", "a", "crash":
		return ModeA, nil
	case "mode_b", "b", "location":
		return ModeB, nil
	default:
		return "", fmt.Errorf("unknown road type mode %q (want MODE_A or MODE_B)", s)
	}
}

func (m Mode) roadTypeOnLocation() bool { return m == ModeB }

// DedupStrategy controls how composite keys reach their final form before
// node tables are deduplicated.
type DedupStrategy string

const (
	// DedupSingle deduplicates once on the final key.
	DedupSingle DedupStrategy = "single"
	// DedupTwoPass first deduplicates location and date-time rows per
	// (crash id, key) pair, then again on the key alone.
	DedupTwoPass DedupStrategy = "two-pass"
)

func ParseDedupStrategy(s string) (DedupStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "single":
		return DedupSingle, nil
	case "two-pass", "twopass", "two_pass":
		return DedupTwoPass, nil
	default:
		return "", fmt.Errorf("unknown dedup strategy %q (want single or two-pass)", s)
	}
}

// DuplicatePersonPolicy decides what happens when two rows share an ID.
type DuplicatePersonPolicy string

const (
	DuplicatePersonWarn DuplicatePersonPolicy = "warn"
	DuplicatePersonFail DuplicatePersonPolicy = "fail"
)

func ParseDuplicatePersonPolicy(s string) (DuplicatePersonPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "warn":
		return DuplicatePersonWarn, nil
	case "fail":
		return DuplicatePersonFail, nil
	default:
		return "", fmt.Errorf("unknown duplicate person policy %q (want warn or fail)", s)
	}
}

type Options struct {
	Mode            Mode
	Dedup           DedupStrategy
	DuplicatePerson DuplicatePersonPolicy
	Logger          *slog.Logger
}

func (o *Options) applyDefaults() {
	if o.Mode == "" {
		o.Mode = ModeA
	}
	if o.Dedup == "" {
		o.Dedup = DedupSingle
	}
	if o.DuplicatePerson == "" {
		o.DuplicatePerson = DuplicatePersonWarn
	}
}
