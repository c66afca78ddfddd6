// Package games holds design notes for quizbox game modes.
package games

// One admin (the host) drives a shared quiz through phases; players answer on
// their own connections and watch results live
// Phases: LOBBY -> ROUND_LOADING -> QUESTION_ACTIVE -> WAITING_RESULT -> LEADERBOARD,
// ending in GAME_OVER after the final round
// Two kinds of question: trivia (a known correct answer, speed-scored) and
// vote rounds (the least- or most-picked option wins, host-toggleable)

// How to play
// - Players join with a display name and get a durable id, saved in the browser
// - The host logs in with the server's admin password from the same page
// - Each round: host starts it, a short countdown runs, the question opens,
//   players answer once, host reveals results and shows the leaderboard
// - Dropped players rejoin with their saved id and pick up exactly where the
//   session is; a reset invalidates all saved ids

// Implementation details:
// - One websocket per connection; all session state owned by a single hub loop
// - The pre-question countdown is a cancellable timer; forcing the next
//   question invalidates it
