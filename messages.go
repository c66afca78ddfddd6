package main

// Messages coming from clients. One tagged struct covers both roles;
// the hub routes on Type and drops fields that don't apply.
type ClientMessage struct {
	Type        string `json:"type"`                  // see readPump for the full set
	Name        string `json:"name,omitempty"`        // join_game
	PlayerID    string `json:"playerId,omitempty"`    // submit_answer / player_reconnect
	QuestionID  string `json:"questionId,omitempty"`  // submit_answer
	Answer      string `json:"answer,omitempty"`      // submit_answer
	Password    string `json:"password,omitempty"`    // admin_login
	RoundNumber int    `json:"roundNumber,omitempty"` // admin_start_round
}

// SimpleMessage is for payload-free notifications ("round_over",
// "game_reset", "admin_login_success", ...).
type SimpleMessage struct {
	Type string `json:"type"`
}

type JoinSuccessMessage struct {
	Type     string `json:"type"` // "join_success"
	PlayerID string `json:"playerId"`
}

type PlayerCountMessage struct {
	Type  string `json:"type"` // "player_count_update"
	Count int    `json:"count"`
}

type RoundStartMessage struct {
	Type  string `json:"type"` // "round_start"
	Round int    `json:"round"`
}

// NewQuestionMessage never carries the correct answer; that only
// leaves the server after the question closes.
type NewQuestionMessage struct {
	Type      string   `json:"type"` // "new_question"
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
}

// AnswerResultMessage is sent to one player after a trivia reveal.
type AnswerResultMessage struct {
	Type          string `json:"type"` // "answer_result"
	IsCorrect     bool   `json:"isCorrect"`
	CorrectAnswer int    `json:"correctAnswer"`
	ScoreDelta    int    `json:"scoreDelta"`
}

// VoteResultMessage broadcasts the closed question's tally. The event
// name is historical; it carries majority results too, tagged by Mode.
type VoteResultMessage struct {
	Type           string         `json:"type"` // "minority_result"
	VoteCounts     map[string]int `json:"voteCounts"`
	WinningOptions []string       `json:"winningOptions"`
	Mode           WinningMode    `json:"mode"`
}

type LeaderboardMessage struct {
	Type     string     `json:"type"` // "show_leaderboard"
	Players  []Standing `json:"players"`
	GameOver bool       `json:"gameOver"`
}

type ModeUpdateMessage struct {
	Type string      `json:"type"` // "admin_mode_update"
	Mode WinningMode `json:"mode"`
}

type StateSyncMessage struct {
	Type        string      `json:"type"` // "admin_state_sync"
	Phase       Phase       `json:"phase"`
	Round       int         `json:"round"`
	Question    *Question   `json:"question"`
	Result      *VoteTally  `json:"result"`
	WinningMode WinningMode `json:"winningMode"`
}

type ReconnectSuccessMessage struct {
	Type     string     `json:"type"` // "player_reconnect_success"
	PlayerID string     `json:"playerId"`
	Name     string     `json:"name"`
	Score    int        `json:"score"`
	Phase    Phase      `json:"phase"`
	Round    int        `json:"round"`
	Question *Question  `json:"question"`
	Result   *VoteTally `json:"result"`
}

// CommandRejectedMessage tells the admin a command was a no-op, so the
// dashboard can surface it instead of silently hanging.
type CommandRejectedMessage struct {
	Type    string `json:"type"` // "admin_command_rejected"
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

func newQuestionMessage(q *Question) NewQuestionMessage {
	return NewQuestionMessage{
		Type:      "new_question",
		ID:        q.ID,
		Text:      q.Text,
		Options:   q.Options,
		TimeLimit: q.TimeLimit,
	}
}
