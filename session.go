package main

import (
	"errors"
	"fmt"
	"time"
)

// Phase is the session's authoritative state. Clients additionally
// track a DISCONNECTED pseudo-phase before their first join, but the
// session itself never holds it.
type Phase string

const (
	PhaseLobby          Phase = "LOBBY"
	PhaseRoundLoading   Phase = "ROUND_LOADING"
	PhaseQuestionActive Phase = "QUESTION_ACTIVE"
	PhaseWaitingResult  Phase = "WAITING_RESULT"
	PhaseLeaderboard    Phase = "LEADERBOARD"
	PhaseGameOver       Phase = "GAME_OVER"
)

// Submission records one accepted answer. The first accepted
// submission per player per question stands; later ones are dropped.
type Submission struct {
	PlayerID   string
	QuestionID string
	Option     string
	At         time.Time
}

var (
	errRoundsExhausted = errors.New("all rounds have been played")
	errNoRound         = errors.New("no round has been started")
	errAlreadyAnswered = errors.New("player already answered this question")
	errBadOption       = errors.New("answer is not one of the question's options")
	errBadQuestion     = errors.New("submission is not for the active question")
)

type phaseError struct {
	command string
	phase   Phase
}

func (e *phaseError) Error() string {
	return fmt.Sprintf("%s is not valid during %s", e.command, e.phase)
}

type scoreKey struct {
	playerID   string
	questionID string
}

// Session is the authoritative state for one running game. It is
// owned by exactly one hub run loop; every mutation funnels through
// that loop, so no transition ever races another.
type Session struct {
	phase       Phase
	round       int
	totalRounds int
	mode        WinningMode

	bank     *QuestionBank
	nextIdx  int
	active   *Question
	openedAt time.Time

	lastResult  *VoteTally
	submissions map[string]Submission // by player id, active question only
	scored      map[scoreKey]bool

	registry *Registry
	rules    ScoringRules

	allowLateJoin bool

	// epoch invalidates countdown timers scheduled before any later
	// transition; a tick carrying a stale epoch is discarded.
	epoch int
}

func newSession(bank *QuestionBank, cfg *Config) *Session {
	return &Session{
		phase:       PhaseLobby,
		totalRounds: cfg.totalRounds,
		mode:        cfg.initialMode(),
		bank:        bank,
		submissions: make(map[string]Submission),
		scored:      make(map[scoreKey]bool),
		registry:    newRegistry(),
		rules: ScoringRules{
			TriviaBase: cfg.triviaBase,
			VoteReward: cfg.voteReward,
		},
		allowLateJoin: cfg.allowLateJoin,
	}
}

// StartRound begins the next round's countdown. Valid from the lobby
// or a leaderboard; the question itself opens when the countdown
// fires (or the host forces it).
func (s *Session) StartRound() (int, error) {
	if s.phase != PhaseLobby && s.phase != PhaseLeaderboard {
		return 0, &phaseError{"start_round", s.phase}
	}
	if s.round >= s.totalRounds {
		return 0, errRoundsExhausted
	}

	s.round++
	s.phase = PhaseRoundLoading
	s.epoch++

	return s.round, nil
}

// ActivateQuestion is the countdown-elapsed transition: it opens the
// next question from the bank for submissions.
func (s *Session) ActivateQuestion(now time.Time) (*Question, error) {
	if s.phase != PhaseRoundLoading {
		return nil, &phaseError{"activate_question", s.phase}
	}

	q := s.bank.At(s.nextIdx)
	s.nextIdx++

	s.active = q
	s.openedAt = now
	s.lastResult = nil
	s.submissions = make(map[string]Submission)
	s.phase = PhaseQuestionActive
	s.epoch++

	return q, nil
}

// NextQuestion force-advances to a fresh question, skipping whatever
// countdown or question is in flight. The epoch bump cancels any
// pending countdown tick.
func (s *Session) NextQuestion(now time.Time) (*Question, error) {
	switch s.phase {
	case PhaseRoundLoading, PhaseQuestionActive, PhaseLeaderboard:
	default:
		return nil, &phaseError{"next_question", s.phase}
	}

	s.phase = PhaseRoundLoading
	return s.ActivateQuestion(now)
}

// RevealResults closes the active question, tallies votes, and scores
// every player exactly once. Scoring is keyed by (player, question),
// so a replayed reveal can never double-award.
func (s *Session) RevealResults() (*VoteTally, []Award, error) {
	if s.phase != PhaseQuestionActive {
		return nil, nil, &phaseError{"reveal_results", s.phase}
	}

	q := s.active
	subs := make([]Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		subs = append(subs, sub)
	}

	tally := tallyVotes(q.Options, subs, s.mode)

	awards := make([]Award, 0, s.registry.Count())
	for _, p := range s.registry.All() {
		key := scoreKey{p.ID, q.ID}
		if s.scored[key] {
			continue
		}
		s.scored[key] = true

		award := Award{PlayerID: p.ID}
		if sub, ok := s.submissions[p.ID]; ok {
			award.Answered = true
			if q.CorrectAnswer != nil {
				award.Points, award.Correct = s.rules.triviaPoints(q, sub, s.openedAt)
			} else {
				award.Points, award.Correct = s.rules.votePoints(tally, sub.Option)
			}
		}

		p.Score += award.Points
		correct := award.Correct
		p.LastAnswerCorrect = &correct

		awards = append(awards, award)
	}

	s.lastResult = tally
	s.phase = PhaseWaitingResult
	s.epoch++

	return tally, awards, nil
}

// ShowLeaderboard ranks all players and moves to the leaderboard, or
// to game over once the final round has been played.
func (s *Session) ShowLeaderboard() ([]Standing, bool, error) {
	if s.phase == PhaseLobby {
		return nil, false, &phaseError{"show_leaderboard", s.phase}
	}

	standings := rankPlayers(s.registry.All())

	s.active = nil
	s.submissions = make(map[string]Submission)
	if s.round >= s.totalRounds {
		s.phase = PhaseGameOver
	} else {
		s.phase = PhaseLeaderboard
	}
	s.epoch++

	return standings, s.phase == PhaseGameOver, nil
}

// EndRound closes out the current round's bookkeeping.
func (s *Session) EndRound() (bool, error) {
	if s.round == 0 {
		return false, errNoRound
	}

	s.active = nil
	s.lastResult = nil
	s.submissions = make(map[string]Submission)
	if s.round >= s.totalRounds {
		s.phase = PhaseGameOver
	} else {
		s.phase = PhaseLobby
	}
	s.epoch++

	return s.phase == PhaseGameOver, nil
}

// Reset wipes every player, submission, and round. The registry is
// replaced wholesale, so reconnects with pre-reset ids fail cleanly.
func (s *Session) Reset() {
	s.phase = PhaseLobby
	s.round = 0
	s.nextIdx = 0
	s.active = nil
	s.lastResult = nil
	s.submissions = make(map[string]Submission)
	s.scored = make(map[scoreKey]bool)
	s.registry = newRegistry()
	s.epoch++
}

// ToggleMode flips the winning mode. Allowed in any phase; an already
// computed result keeps the mode it was computed under.
func (s *Session) ToggleMode() WinningMode {
	s.mode = s.mode.flipped()
	return s.mode
}

// Join mints a new player. Valid in the lobby; with late join enabled,
// also while a round is loading but no question is open yet.
func (s *Session) Join(name string) (*Player, error) {
	joinable := s.phase == PhaseLobby ||
		(s.allowLateJoin && s.phase == PhaseRoundLoading)
	if !joinable {
		return nil, &phaseError{"join_game", s.phase}
	}
	if name == "" {
		return nil, errors.New("a display name is required")
	}

	return s.registry.Add(name), nil
}

// Submit accepts a player's answer for the active question. The first
// accepted submission stands; anything else is an error the caller
// swallows silently, per protocol.
func (s *Session) Submit(playerID, questionID, option string, now time.Time) error {
	if s.phase != PhaseQuestionActive {
		return &phaseError{"submit_answer", s.phase}
	}
	if s.active.ID != questionID {
		return errBadQuestion
	}
	if _, err := s.registry.Get(playerID); err != nil {
		return err
	}
	if !s.active.hasOption(option) {
		return errBadOption
	}
	if _, dup := s.submissions[playerID]; dup {
		return errAlreadyAnswered
	}

	s.submissions[playerID] = Submission{
		PlayerID:   playerID,
		QuestionID: questionID,
		Option:     option,
		At:         now,
	}

	return nil
}

// Reconnect rebinds a durable id to a live connection and returns the
// player, or fails if the id is unknown (including after a reset).
func (s *Session) Reconnect(playerID string) (*Player, error) {
	return s.registry.Get(playerID)
}

// snapshot is the full state a rejoining client (or a freshly
// authenticated admin) needs to resume without replaying events.
type snapshot struct {
	Phase    Phase
	Round    int
	Question *Question
	Result   *VoteTally
	Mode     WinningMode
}

// Snapshot withholds the correct answer while the question is still
// open for submissions.
func (s *Session) Snapshot() snapshot {
	q := s.active
	if s.phase == PhaseQuestionActive {
		q = q.sanitized()
	}

	return snapshot{
		Phase:    s.phase,
		Round:    s.round,
		Question: q,
		Result:   s.lastResult,
		Mode:     s.mode,
	}
}
