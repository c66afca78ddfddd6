package main

// WinningMode selects which end of the vote distribution scores.
type WinningMode string

const (
	ModeMinority WinningMode = "MINORITY"
	ModeMajority WinningMode = "MAJORITY"
)

func (m WinningMode) flipped() WinningMode {
	if m == ModeMinority {
		return ModeMajority
	}
	return ModeMinority
}

// VoteTally is the immutable result of one closed question. Counts
// holds every option, including those with zero votes; Winning lists
// the option(s) at the extreme count, in option order.
type VoteTally struct {
	Counts  map[string]int `json:"voteCounts"`
	Winning []string       `json:"winningOptions"`
	Mode    WinningMode    `json:"mode"`
}

func (t *VoteTally) won(option string) bool {
	for _, w := range t.Winning {
		if w == option {
			return true
		}
	}
	return false
}

// tallyVotes counts accepted submissions per option and picks the
// winning set. Under MINORITY the minimum is taken over options that
// received at least one vote: an option nobody chose never wins. The
// winning set is empty only when there are no submissions at all.
func tallyVotes(options []string, subs []Submission, mode WinningMode) *VoteTally {
	counts := make(map[string]int, len(options))
	for _, o := range options {
		counts[o] = 0
	}
	for _, s := range subs {
		counts[s.Option]++
	}

	extreme := -1
	for _, o := range options {
		n := counts[o]
		if mode == ModeMinority && n == 0 {
			continue
		}
		switch {
		case extreme == -1:
			extreme = n
		case mode == ModeMinority && n < extreme:
			extreme = n
		case mode == ModeMajority && n > extreme:
			extreme = n
		}
	}

	winning := []string{}
	if extreme > 0 {
		for _, o := range options {
			if counts[o] == extreme {
				winning = append(winning, o)
			}
		}
	}

	return &VoteTally{
		Counts:  counts,
		Winning: winning,
		Mode:    mode,
	}
}
