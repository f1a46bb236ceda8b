package resolver

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects how a single escalation attempt resolves
type Mode int

const (
	// ModeFast bounds the attempt by its timeout and gives up quietly
	ModeFast Mode = iota
	// ModeBackground waits for the backend, bounded only by the attempt
	// timeout when one is set
	ModeBackground
)

func (m Mode) String() string {
	switch m {
	case ModeFast:
		return "fast"
	case ModeBackground:
		return "background"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "fast" or "background"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fast":
		return ModeFast, nil
	case "background", "bg":
		return ModeBackground, nil
	default:
		return 0, fmt.Errorf("unknown resolution mode %q", s)
	}
}

// Attempt is one tier of the escalation
type Attempt struct {
	Mode    Mode
	Timeout time.Duration
}

// Policy is the ordered list of attempts Resolve makes. Attempts run one
// after the other; the first success wins.
type Policy struct {
	Attempts []Attempt
}

// DefaultPolicy tries a quick lookup first and then waits progressively
// longer for the backend.
func DefaultPolicy() Policy {
	return Policy{Attempts: []Attempt{
		{Mode: ModeFast, Timeout: 1200 * time.Millisecond},
		{Mode: ModeBackground, Timeout: 2000 * time.Millisecond},
		{Mode: ModeBackground, Timeout: 3000 * time.Millisecond},
	}}
}
