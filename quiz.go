// Quizbox Quiz Session
//
// One admin (host) drives a shared quiz through phases while players
// answer on their own connections, watch live results, and reclaim
// their identity after a drop.
//
// Features:
// - WebSocket per connection: /quiz and /quiz/ws
// - Host authenticates with a configured secret; privileges last for
//   the connection's lifetime
// - Players get a durable id on join, kept client-side across drops
// - Reconnecting with a known id restores the full session view
// - Two scoring modes: MINORITY and MAJORITY vote rounds, plus
//   timed trivia questions with a known correct answer
// - Rounds open after a cancellable countdown; the host can force
//   the next question early
// - Standard competition ranking on the leaderboard (1,1,3)
// - In-browser QR button to share the session, backed by go-qrcode

package main

import (
	"crypto/subtle"
	_ "embed"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type Client struct {
	conn *websocket.Conn
	send chan any

	// Bound inside the hub's run loop only.
	playerID string
	isAdmin  bool
}

type joinRequest struct {
	client *Client
	msg    ClientMessage
}

type submitRequest struct {
	client *Client
	msg    ClientMessage
}

type reconnectRequest struct {
	client *Client
	msg    ClientMessage
}

type adminCommand struct {
	client *Client
	msg    ClientMessage
}

// countdownTick is posted back into the run loop when a round's
// countdown fires. Ticks from a superseded transition carry a stale
// epoch and are dropped.
type countdownTick struct {
	epoch int
}

type Hub struct {
	session *Session

	clients map[*Client]bool

	register   chan *Client
	unreg      chan *Client
	joins      chan joinRequest
	submits    chan submitRequest
	reconnects chan reconnectRequest
	admins     chan adminCommand
	ticks      chan countdownTick

	mu sync.RWMutex
}

func newHub(session *Session) *Hub {
	return &Hub{
		session:    session,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		joins:      make(chan joinRequest),
		submits:    make(chan submitRequest),
		reconnects: make(chan reconnectRequest),
		admins:     make(chan adminCommand),
		ticks:      make(chan countdownTick, 4),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.sendToLocked(c, PlayerCountMessage{
				Type:  "player_count_update",
				Count: h.session.registry.Count(),
			})
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			// The Player record survives; only a successful
			// reconnect makes it reachable again.

		case jr := <-h.joins:
			h.handleJoin(cfg, jr)

		case sr := <-h.submits:
			h.handleSubmit(cfg, sr)

		case rr := <-h.reconnects:
			h.handleReconnect(cfg, rr)

		case cmd := <-h.admins:
			h.handleAdminCommand(cfg, cmd)

		case tick := <-h.ticks:
			h.handleCountdown(cfg, tick)
		}
	}
}

// sendToLocked delivers to one client, dropping it if its send buffer
// is full. Assumes h.mu is held.
func (h *Hub) sendToLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendToLocked(client, msg)
	}
}

// sendToPlayerLocked delivers to every connection bound to a player id.
func (h *Hub) sendToPlayerLocked(playerID string, msg any) {
	for client := range h.clients {
		if client.playerID == playerID {
			h.sendToLocked(client, msg)
		}
	}
}

func (h *Hub) broadcastPlayerCountLocked() {
	h.broadcastLocked(PlayerCountMessage{
		Type:  "player_count_update",
		Count: h.session.registry.Count(),
	})
}

func (h *Hub) handleJoin(cfg *Config, jr joinRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.session.Join(jr.msg.Name)
	if err != nil {
		// Out-of-phase or nameless joins are silent no-ops.
		logf(cfg, "QUIZ: Rejected join %q: %v", jr.msg.Name, err)
		return
	}

	jr.client.playerID = p.ID

	h.sendToLocked(jr.client, JoinSuccessMessage{
		Type:     "join_success",
		PlayerID: p.ID,
	})
	h.broadcastPlayerCountLocked()

	logf(cfg, "QUIZ: Player %q joined as %s", p.Name, p.ID)
}

func (h *Hub) handleSubmit(cfg *Config, sr submitRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := sr.msg
	err := h.session.Submit(msg.PlayerID, msg.QuestionID, msg.Answer, time.Now())
	if err != nil {
		// Duplicates, late answers, and bad options are silently
		// ignored; the first accepted submission stands.
		logf(cfg, "QUIZ: Dropped answer from %s: %v", msg.PlayerID, err)
		return
	}

	logf(cfg, "QUIZ: Accepted answer %q from %s", msg.Answer, msg.PlayerID)
}

func (h *Hub) handleReconnect(cfg *Config, rr reconnectRequest) {
	h.mu.Lock()
	defer h.mu.Unlock()

	p, err := h.session.Reconnect(rr.msg.PlayerID)
	if err != nil {
		h.sendToLocked(rr.client, SimpleMessage{Type: "player_reconnect_fail"})
		logf(cfg, "QUIZ: Reconnect failed for %s", rr.msg.PlayerID)
		return
	}

	rr.client.playerID = p.ID

	snap := h.session.Snapshot()
	h.sendToLocked(rr.client, ReconnectSuccessMessage{
		Type:     "player_reconnect_success",
		PlayerID: p.ID,
		Name:     p.Name,
		Score:    p.Score,
		Phase:    snap.Phase,
		Round:    snap.Round,
		Question: snap.Question,
		Result:   snap.Result,
	})

	logf(cfg, "QUIZ: Player %q reconnected as %s", p.Name, p.ID)
}

func (h *Hub) handleAdminCommand(cfg *Config, cmd adminCommand) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := cmd.client
	msg := cmd.msg

	if msg.Type == "admin_login" {
		h.handleAdminLoginLocked(cfg, c, msg)
		return
	}

	if !c.isAdmin {
		h.sendToLocked(c, CommandRejectedMessage{
			Type:    "admin_command_rejected",
			Command: msg.Type,
			Reason:  "not authenticated",
		})
		return
	}

	reject := func(err error) {
		h.sendToLocked(c, CommandRejectedMessage{
			Type:    "admin_command_rejected",
			Command: msg.Type,
			Reason:  err.Error(),
		})
		logf(cfg, "QUIZ: Rejected %s: %v", msg.Type, err)
	}

	switch msg.Type {
	case "admin_start_round":
		round, err := h.session.StartRound()
		if err != nil {
			reject(err)
			return
		}
		h.broadcastLocked(RoundStartMessage{Type: "round_start", Round: round})
		h.scheduleCountdownLocked(cfg)
		logf(cfg, "QUIZ: Round %d loading", round)

	case "admin_next_question":
		q, err := h.session.NextQuestion(time.Now())
		if err != nil {
			reject(err)
			return
		}
		h.broadcastLocked(newQuestionMessage(q))
		logf(cfg, "QUIZ: Question %s open (forced)", q.ID)

	case "admin_reveal_results":
		tally, awards, err := h.session.RevealResults()
		if err != nil {
			reject(err)
			return
		}
		h.broadcastLocked(VoteResultMessage{
			Type:           "minority_result",
			VoteCounts:     tally.Counts,
			WinningOptions: tally.Winning,
			Mode:           tally.Mode,
		})
		if q := h.session.active; q != nil && q.CorrectAnswer != nil {
			for _, award := range awards {
				h.sendToPlayerLocked(award.PlayerID, AnswerResultMessage{
					Type:          "answer_result",
					IsCorrect:     award.Correct,
					CorrectAnswer: *q.CorrectAnswer,
					ScoreDelta:    award.Points,
				})
			}
		}
		logf(cfg, "QUIZ: Results revealed, %d winning option(s)", len(tally.Winning))

	case "admin_show_leaderboard":
		standings, gameOver, err := h.session.ShowLeaderboard()
		if err != nil {
			reject(err)
			return
		}
		h.broadcastLocked(LeaderboardMessage{
			Type:     "show_leaderboard",
			Players:  standings,
			GameOver: gameOver,
		})

	case "admin_end_round":
		if _, err := h.session.EndRound(); err != nil {
			reject(err)
			return
		}
		h.broadcastLocked(SimpleMessage{Type: "round_over"})

	case "admin_reset_game":
		h.session.Reset()
		for client := range h.clients {
			client.playerID = ""
		}
		h.broadcastLocked(SimpleMessage{Type: "game_reset"})
		h.broadcastPlayerCountLocked()
		logf(cfg, "QUIZ: Game reset")

	case "admin_toggle_mode":
		mode := h.session.ToggleMode()
		h.broadcastLocked(ModeUpdateMessage{Type: "admin_mode_update", Mode: mode})
		logf(cfg, "QUIZ: Winning mode now %s", mode)
	}
}

func (h *Hub) handleAdminLoginLocked(cfg *Config, c *Client, msg ClientMessage) {
	if subtle.ConstantTimeCompare([]byte(msg.Password), []byte(cfg.adminPassword)) != 1 {
		h.sendToLocked(c, SimpleMessage{Type: "admin_login_fail"})
		logf(cfg, "QUIZ: Failed admin login")
		return
	}

	c.isAdmin = true
	h.sendToLocked(c, SimpleMessage{Type: "admin_login_success"})

	snap := h.session.Snapshot()
	h.sendToLocked(c, StateSyncMessage{
		Type:        "admin_state_sync",
		Phase:       snap.Phase,
		Round:       snap.Round,
		Question:    snap.Question,
		Result:      snap.Result,
		WinningMode: snap.Mode,
	})

	logf(cfg, "QUIZ: Admin authenticated")
}

// scheduleCountdownLocked arms the pre-question countdown. The tick
// carries the epoch at scheduling time; any transition in between
// bumps the epoch and the tick lands dead.
func (h *Hub) scheduleCountdownLocked(cfg *Config) {
	epoch := h.session.epoch
	time.AfterFunc(cfg.roundCountdown, func() {
		select {
		case h.ticks <- countdownTick{epoch: epoch}:
		default:
		}
	})
}

func (h *Hub) handleCountdown(cfg *Config, tick countdownTick) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if tick.epoch != h.session.epoch {
		return
	}

	q, err := h.session.ActivateQuestion(time.Now())
	if err != nil {
		logf(cfg, "QUIZ: Countdown fired out of phase: %v", err)
		return
	}

	h.broadcastLocked(newQuestionMessage(q))
	logf(cfg, "QUIZ: Question %s open", q.ID)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func serveWS(cfg *Config, h *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "QUIZ: Upgrade error: %v", err)
			return
		}

		client := &Client{
			conn: conn,
			send: make(chan any, 8),
		}

		h.register <- client

		go client.writePump()
		client.readPump(h)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unreg <- c
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join_game":
			h.joins <- joinRequest{
				client: c,
				msg:    msg,
			}
		case "submit_answer":
			h.submits <- submitRequest{
				client: c,
				msg:    msg,
			}
		case "player_reconnect":
			h.reconnects <- reconnectRequest{
				client: c,
				msg:    msg,
			}
		case "admin_login", "admin_start_round", "admin_next_question",
			"admin_reveal_results", "admin_show_leaderboard",
			"admin_end_round", "admin_reset_game", "admin_toggle_mode":
			h.admins <- adminCommand{
				client: c,
				msg:    msg,
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for the session URL using go-qrcode.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /quiz/qr; strip trailing "/qr" to get the session URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed quiz/index.html
var indexHTML []byte

//go:embed quiz/app.css
var quizboxCSS []byte

//go:embed quiz/app.js
var quizboxJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(quizboxCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(quizboxJS)
	}
}

// registerQuizGame sets up routes so that:
//   - $path       → HTML client (players and host share it)
//   - $path/ws    → WebSocket for the session
//   - $path/qr    → PNG QR code for the session URL
func registerQuizGame(cfg *Config, path string, bank *QuestionBank, mux *httprouter.Router) {
	hub := newHub(newSession(bank, cfg))
	go hub.run(cfg)

	// Session client view (HTML)
	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	// Shared assets
	mux.GET(cfg.prefix+"/assets/quiz/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/quiz/app.js", getJsHandler(cfg))

	// Session websocket
	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, hub))

	// Session QR code
	mux.GET(cfg.prefix+path+"/qr", qrHandler)
}
