package wizard

import (
	"slices"

	"github.com/petrijr/formflow/pkg/api"
)

// navigator answers cursor questions against one computation of the active
// sequence. It holds no state of its own; callers build a fresh navigator
// for every decision.
type navigator struct {
	seq []string
}

func (s *session) navigator() navigator {
	return navigator{seq: s.activeSequence()}
}

func (n navigator) all() []string {
	return slices.Clone(n.seq)
}

func (n navigator) first() string {
	if len(n.seq) == 0 {
		return ""
	}
	return n.seq[0]
}

func (n navigator) last() string {
	if len(n.seq) == 0 {
		return ""
	}
	return n.seq[len(n.seq)-1]
}

func (n navigator) contains(step string) bool {
	return slices.Contains(n.seq, step)
}

func (n navigator) next(step string) (string, error) {
	i := slices.Index(n.seq, step)
	if i < 0 || i == len(n.seq)-1 {
		return "", &api.NavigationError{Op: "next", Step: step, Reason: "no next step"}
	}
	return n.seq[i+1], nil
}

func (n navigator) prev(step string) (string, error) {
	i := slices.Index(n.seq, step)
	if i <= 0 {
		return "", &api.NavigationError{Op: "prev", Step: step, Reason: "no previous step"}
	}
	return n.seq[i-1], nil
}
