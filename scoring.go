package main

import (
	"time"
)

// ScoringRules turns one submission into a point delta. Trivia
// questions reward speed; vote questions pay a flat reward for picking
// a winning option.
type ScoringRules struct {
	TriviaBase int
	VoteReward int
}

// Award is the outcome of scoring one player for one question.
type Award struct {
	PlayerID string
	Points   int
	Correct  bool
	Answered bool
}

// triviaPoints scales TriviaBase by the time remaining when the answer
// arrived. A correct answer at the buzzer still pays a tenth of the
// base; answers after the limit pay nothing.
func (r ScoringRules) triviaPoints(q *Question, sub Submission, activatedAt time.Time) (int, bool) {
	correct := q.CorrectAnswer != nil && q.hasOption(sub.Option) &&
		q.Options[*q.CorrectAnswer] == sub.Option

	if !correct {
		return 0, false
	}

	limit := time.Duration(q.TimeLimit) * time.Second
	elapsed := sub.At.Sub(activatedAt)
	if elapsed >= limit {
		return 0, true
	}

	remaining := limit - elapsed
	points := int(int64(r.TriviaBase) * remaining.Milliseconds() / limit.Milliseconds())
	if floor := r.TriviaBase / 10; points < floor {
		points = floor
	}

	return points, true
}

func (r ScoringRules) votePoints(tally *VoteTally, option string) (int, bool) {
	if tally.won(option) {
		return r.VoteReward, true
	}
	return 0, false
}
