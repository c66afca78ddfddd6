package main

import (
	"sort"
)

// Standing is one leaderboard row, shaped the way clients expect it.
type Standing struct {
	UserID            string `json:"userId"`
	Name              string `json:"name"`
	Score             int    `json:"score"`
	Rank              int    `json:"rank"`
	LastAnswerCorrect *bool  `json:"lastAnswerCorrect,omitempty"`
}

// rankPlayers sorts by score descending and assigns standard
// competition ranks: ties share a rank, and the next distinct score
// gets (players strictly ahead) + 1, so [50, 50, 30] ranks [1, 1, 3].
// Equal scores keep join order.
func rankPlayers(players []*Player) []Standing {
	out := make([]Standing, 0, len(players))
	for _, p := range players {
		out = append(out, Standing{
			UserID:            p.ID,
			Name:              p.Name,
			Score:             p.Score,
			LastAnswerCorrect: p.LastAnswerCorrect,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})

	for i := range out {
		if i > 0 && out[i].Score == out[i-1].Score {
			out[i].Rank = out[i-1].Rank
		} else {
			out[i].Rank = i + 1
		}
	}

	return out
}
