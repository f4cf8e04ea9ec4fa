// Package timeutil holds the --since style time flags of the CLI.
package timeutil

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mmrzaf/mlpractice/internal/domain"
	"github.com/spf13/pflag"
)

// Units time.ParseDuration does not know about.
var longUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// Cutoff is a flag value naming an instant, either as an RFC 3339 timestamp
// or as a signed offset from the moment the flag is parsed ("-36h", "-7d",
// "+1w"). The zero value is usable and admits every time.
type Cutoff struct {
	raw string
	at  time.Time
	now func() time.Time
}

var _ pflag.Value = (*Cutoff)(nil)

// NewCutoff returns an unset cutoff whose offsets are taken from now. A nil
// now means time.Now.
func NewCutoff(now func() time.Time) *Cutoff {
	return &Cutoff{now: now}
}

func (c *Cutoff) String() string { return c.raw }

func (c *Cutoff) Type() string { return "time" }

func (c *Cutoff) Set(s string) error {
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	at, err := parseInstant(strings.TrimSpace(s), now())
	if err != nil {
		return err
	}
	c.raw, c.at = s, at
	return nil
}

// IsSet reports whether Set has succeeded at least once.
func (c *Cutoff) IsSet() bool { return c.raw != "" }

func (c *Cutoff) Time() time.Time { return c.at }

// Admits reports whether t is at or after the cutoff.
func (c *Cutoff) Admits(t time.Time) bool {
	return !c.IsSet() || !t.Before(c.at)
}

func parseInstant(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, domain.InvalidArgumentf("empty time")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	sign := time.Duration(1)
	switch s[0] {
	case '-':
		sign = -1
	case '+':
	default:
		return time.Time{}, domain.InvalidArgumentf("%q is neither RFC 3339 nor a signed offset", s)
	}
	d, err := parseOffset(s[1:])
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(sign * d), nil
}

// parseOffset accepts anything time.ParseDuration does plus a whole number
// of days or weeks.
func parseOffset(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	if len(s) < 2 {
		return 0, domain.InvalidArgumentf("invalid offset %q", s)
	}
	unit, ok := longUnits[s[len(s)-1]]
	if !ok {
		return 0, domain.InvalidArgumentf("unknown unit in offset %q", s)
	}
	n, err := strconv.ParseUint(s[:len(s)-1], 10, 32)
	if err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "invalid offset %q", s), domain.ErrInvalidArgument)
	}
	return time.Duration(n) * unit, nil
}
