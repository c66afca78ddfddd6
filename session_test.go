package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBank() *QuestionBank {
	return &QuestionBank{Questions: []Question{
		{
			ID:        "vote1",
			Text:      "Pick a door.",
			Options:   []string{"A", "B", "C"},
			TimeLimit: 15,
		},
		{
			ID:            "trivia1",
			Text:          "2+2?",
			Options:       []string{"3", "4", "5"},
			TimeLimit:     20,
			CorrectAnswer: intPtr(1),
		},
		{
			ID:        "vote2",
			Text:      "Coffee or tea?",
			Options:   []string{"Coffee", "Tea"},
			TimeLimit: 15,
		},
	}}
}

func testConfig() *Config {
	return &Config{
		adminPassword:  "hunter2",
		totalRounds:    3,
		roundCountdown: 3 * time.Second,
		triviaBase:     1000,
		voteReward:     100,
		winningMode:    "minority",
	}
}

func startedSession(t *testing.T) (*Session, *Question) {
	t.Helper()

	s := newSession(testBank(), testConfig())

	_, err := s.StartRound()
	require.NoError(t, err)

	q, err := s.ActivateQuestion(time.Now())
	require.NoError(t, err)

	return s, q
}

func TestSessionInitialState(t *testing.T) {
	s := newSession(testBank(), testConfig())

	assert.Equal(t, PhaseLobby, s.phase)
	assert.Zero(t, s.round)
	assert.Equal(t, ModeMinority, s.mode)
	assert.Nil(t, s.active)
	assert.Nil(t, s.lastResult)
}

func TestStartRoundPhaseGating(t *testing.T) {
	s := newSession(testBank(), testConfig())

	round, err := s.StartRound()
	require.NoError(t, err)
	assert.Equal(t, 1, round)
	assert.Equal(t, PhaseRoundLoading, s.phase)

	// A second start before the question opens is a phase violation.
	_, err = s.StartRound()
	var perr *phaseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, s.round)
}

func TestActivateQuestionInvariants(t *testing.T) {
	s, q := startedSession(t)

	assert.Equal(t, PhaseQuestionActive, s.phase)
	assert.Equal(t, "vote1", q.ID)
	assert.NotNil(t, s.active)
	assert.Nil(t, s.lastResult)
	assert.Empty(t, s.submissions)

	// Activation outside ROUND_LOADING is rejected.
	_, err := s.ActivateQuestion(time.Now())
	assert.Error(t, err)
}

func TestSubmitRules(t *testing.T) {
	s, q := startedSession(t)
	p := mustJoinBefore(t, s)
	now := time.Now()

	require.NoError(t, s.Submit(p.ID, q.ID, "A", now))

	tests := []struct {
		name     string
		playerID string
		question string
		option   string
		want     error
	}{
		{"duplicate submission", p.ID, q.ID, "B", errAlreadyAnswered},
		{"unknown player", "ghost", q.ID, "A", errUnknownPlayer},
		{"wrong question", p.ID, "stale", "A", errBadQuestion},
		{"invalid option", p.ID, q.ID, "Z", errBadOption},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Submit(tc.playerID, tc.question, tc.option, now)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// The first submission stands.
	assert.Equal(t, "A", s.submissions[p.ID].Option)
}

// mustJoinBefore stands in for a player who joined back in the lobby;
// joins are closed once a question is active, so it registers directly.
func mustJoinBefore(t *testing.T, s *Session) *Player {
	t.Helper()

	return s.registry.Add("tester")
}

func TestSubmitClosedAfterReveal(t *testing.T) {
	s, q := startedSession(t)
	p := mustJoinBefore(t, s)

	_, _, err := s.RevealResults()
	require.NoError(t, err)

	err = s.Submit(p.ID, q.ID, "A", time.Now())
	var perr *phaseError
	assert.ErrorAs(t, err, &perr)
}

func TestRevealResultsVoteScoring(t *testing.T) {
	s, q := startedSession(t)
	now := time.Now()

	players := make([]*Player, 4)
	for i := range players {
		players[i] = s.registry.Add("p")
	}

	// Minority mode: C with a single vote wins.
	require.NoError(t, s.Submit(players[0].ID, q.ID, "A", now))
	require.NoError(t, s.Submit(players[1].ID, q.ID, "A", now))
	require.NoError(t, s.Submit(players[2].ID, q.ID, "C", now))

	tally, awards, err := s.RevealResults()
	require.NoError(t, err)

	assert.Equal(t, PhaseWaitingResult, s.phase)
	assert.Same(t, tally, s.lastResult)
	assert.Equal(t, []string{"C"}, tally.Winning)
	assert.Equal(t, map[string]int{"A": 2, "B": 0, "C": 1}, tally.Counts)

	require.Len(t, awards, 4)
	assert.Equal(t, 100, players[2].Score)
	assert.Zero(t, players[0].Score)
	assert.Zero(t, players[3].Score)

	require.NotNil(t, players[2].LastAnswerCorrect)
	assert.True(t, *players[2].LastAnswerCorrect)
	require.NotNil(t, players[3].LastAnswerCorrect)
	assert.False(t, *players[3].LastAnswerCorrect)
}

func TestRevealResultsTriviaScoring(t *testing.T) {
	s := newSession(testBank(), testConfig())
	p := s.registry.Add("fast")
	slow := s.registry.Add("slow")

	_, err := s.StartRound()
	require.NoError(t, err)

	opened := time.Now()
	_, err = s.ActivateQuestion(opened)
	require.NoError(t, err)

	// Skip ahead to the trivia question.
	q, err := s.NextQuestion(opened)
	require.NoError(t, err)
	require.Equal(t, "trivia1", q.ID)

	require.NoError(t, s.Submit(p.ID, q.ID, "4", opened))
	require.NoError(t, s.Submit(slow.ID, q.ID, "4", opened.Add(10*time.Second)))

	_, awards, err := s.RevealResults()
	require.NoError(t, err)

	require.Len(t, awards, 2)
	assert.Equal(t, 1000, p.Score)
	assert.Equal(t, 500, slow.Score)
}

func TestRevealResultsIsIdempotent(t *testing.T) {
	s, q := startedSession(t)
	p := s.registry.Add("p")
	require.NoError(t, s.Submit(p.ID, q.ID, "C", time.Now()))

	_, _, err := s.RevealResults()
	require.NoError(t, err)
	scoreAfterFirst := p.Score

	// A replayed reveal is a phase violation and awards nothing.
	_, _, err = s.RevealResults()
	assert.Error(t, err)
	assert.Equal(t, scoreAfterFirst, p.Score)
}

func TestShowLeaderboard(t *testing.T) {
	s, q := startedSession(t)
	p := s.registry.Add("p")
	require.NoError(t, s.Submit(p.ID, q.ID, "C", time.Now()))

	_, _, err := s.RevealResults()
	require.NoError(t, err)

	standings, gameOver, err := s.ShowLeaderboard()
	require.NoError(t, err)

	assert.False(t, gameOver)
	assert.Equal(t, PhaseLeaderboard, s.phase)
	assert.Nil(t, s.active)
	require.Len(t, standings, 1)
	assert.Equal(t, 1, standings[0].Rank)
	assert.Equal(t, 100, standings[0].Score)
}

func TestShowLeaderboardRejectedInLobby(t *testing.T) {
	s := newSession(testBank(), testConfig())

	_, _, err := s.ShowLeaderboard()
	var perr *phaseError
	assert.ErrorAs(t, err, &perr)
}

func TestFinalRoundReachesGameOver(t *testing.T) {
	cfg := testConfig()
	cfg.totalRounds = 1
	s := newSession(testBank(), cfg)

	_, err := s.StartRound()
	require.NoError(t, err)
	_, err = s.ActivateQuestion(time.Now())
	require.NoError(t, err)
	_, _, err = s.RevealResults()
	require.NoError(t, err)

	_, gameOver, err := s.ShowLeaderboard()
	require.NoError(t, err)

	assert.True(t, gameOver)
	assert.Equal(t, PhaseGameOver, s.phase)

	// No further rounds until reset.
	_, err = s.StartRound()
	assert.Error(t, err)
}

func TestEndRound(t *testing.T) {
	s := newSession(testBank(), testConfig())

	_, err := s.EndRound()
	assert.ErrorIs(t, err, errNoRound)

	_, err = s.StartRound()
	require.NoError(t, err)
	_, err = s.ActivateQuestion(time.Now())
	require.NoError(t, err)

	gameOver, err := s.EndRound()
	require.NoError(t, err)
	assert.False(t, gameOver)
	assert.Equal(t, PhaseLobby, s.phase)
	assert.Nil(t, s.active)
	assert.Nil(t, s.lastResult)
}

func TestResetClearsEverything(t *testing.T) {
	s, q := startedSession(t)
	p := s.registry.Add("p")
	require.NoError(t, s.Submit(p.ID, q.ID, "A", time.Now()))

	s.Reset()

	assert.Equal(t, PhaseLobby, s.phase)
	assert.Zero(t, s.round)
	assert.Zero(t, s.registry.Count())
	assert.Nil(t, s.active)
	assert.Nil(t, s.lastResult)
	assert.Empty(t, s.submissions)

	// Pre-reset ids are gone for good.
	_, err := s.Reconnect(p.ID)
	assert.ErrorIs(t, err, errUnknownPlayer)

	// A fresh join starts from zero with a new identifier.
	fresh, err := s.Join("again")
	require.NoError(t, err)
	assert.NotEqual(t, p.ID, fresh.ID)
	assert.Zero(t, fresh.Score)
}

func TestToggleMode(t *testing.T) {
	s := newSession(testBank(), testConfig())

	assert.Equal(t, ModeMajority, s.ToggleMode())
	assert.Equal(t, ModeMinority, s.ToggleMode())
}

func TestJoinPhaseGating(t *testing.T) {
	s := newSession(testBank(), testConfig())

	_, err := s.Join("")
	assert.Error(t, err)

	p, err := s.Join("alice")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)

	_, err = s.StartRound()
	require.NoError(t, err)

	// Late join is off by default.
	_, err = s.Join("bob")
	var perr *phaseError
	assert.ErrorAs(t, err, &perr)
}

func TestJoinLateJoinPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.allowLateJoin = true
	s := newSession(testBank(), cfg)

	_, err := s.StartRound()
	require.NoError(t, err)

	// Allowed while the round is loading...
	_, err = s.Join("late")
	require.NoError(t, err)

	_, err = s.ActivateQuestion(time.Now())
	require.NoError(t, err)

	// ...but never once the question is open.
	_, err = s.Join("too-late")
	assert.Error(t, err)
}

func TestSnapshotWithholdsCorrectAnswerWhileOpen(t *testing.T) {
	s := newSession(testBank(), testConfig())

	_, err := s.StartRound()
	require.NoError(t, err)
	_, err = s.ActivateQuestion(time.Now())
	require.NoError(t, err)
	_, err = s.NextQuestion(time.Now()) // trivia1
	require.NoError(t, err)

	snap := s.Snapshot()
	require.NotNil(t, snap.Question)
	assert.Equal(t, "trivia1", snap.Question.ID)
	assert.Nil(t, snap.Question.CorrectAnswer)
	assert.Equal(t, PhaseQuestionActive, snap.Phase)
	assert.Equal(t, ModeMinority, snap.Mode)

	_, _, err = s.RevealResults()
	require.NoError(t, err)

	// Once closed, the snapshot may carry the solution.
	snap = s.Snapshot()
	require.NotNil(t, snap.Question)
	assert.NotNil(t, snap.Question.CorrectAnswer)
	assert.NotNil(t, snap.Result)
}

func TestReconnectMidQuestionMatchesLiveView(t *testing.T) {
	s := newSession(testBank(), testConfig())
	p, err := s.Join("dropper")
	require.NoError(t, err)

	_, err = s.StartRound()
	require.NoError(t, err)
	q, err := s.ActivateQuestion(time.Now())
	require.NoError(t, err)

	got, err := s.Reconnect(p.ID)
	require.NoError(t, err)
	assert.Same(t, p, got)

	snap := s.Snapshot()
	assert.Equal(t, PhaseQuestionActive, snap.Phase)
	assert.Equal(t, q.ID, snap.Question.ID)
	assert.Nil(t, snap.Question.CorrectAnswer)
	assert.Nil(t, snap.Result)
}

func TestNextQuestionCancelsPendingCountdown(t *testing.T) {
	s := newSession(testBank(), testConfig())

	_, err := s.StartRound()
	require.NoError(t, err)

	// A countdown scheduled now would carry this epoch.
	staleEpoch := s.epoch

	_, err = s.NextQuestion(time.Now())
	require.NoError(t, err)

	// The forced advance bumped the epoch, so the pending tick is dead.
	assert.NotEqual(t, staleEpoch, s.epoch)
	assert.Equal(t, PhaseQuestionActive, s.phase)
}

func TestNextQuestionForceSkipClearsState(t *testing.T) {
	s, q := startedSession(t)
	p := s.registry.Add("p")
	require.NoError(t, s.Submit(p.ID, q.ID, "A", time.Now()))

	next, err := s.NextQuestion(time.Now())
	require.NoError(t, err)

	assert.NotEqual(t, q.ID, next.ID)
	assert.Empty(t, s.submissions)
	assert.Nil(t, s.lastResult)
	assert.Equal(t, PhaseQuestionActive, s.phase)
}

func TestQuestionOrderWrapsAroundBank(t *testing.T) {
	s := newSession(testBank(), testConfig())

	_, err := s.StartRound()
	require.NoError(t, err)

	seen := []string{}
	q, err := s.ActivateQuestion(time.Now())
	require.NoError(t, err)
	seen = append(seen, q.ID)

	for i := 0; i < 3; i++ {
		q, err = s.NextQuestion(time.Now())
		require.NoError(t, err)
		seen = append(seen, q.ID)
	}

	assert.Equal(t, []string{"vote1", "trivia1", "vote2", "vote1"}, seen)
}
