package main

import (
	"errors"

	"github.com/google/uuid"
)

// Player is the durable server-side record for one participant. The
// record outlives any single connection; a dropped client reclaims it
// by presenting its id on reconnect.
type Player struct {
	ID                string
	Name              string
	Score             int
	LastAnswerCorrect *bool
}

var errUnknownPlayer = errors.New("unknown player id")

// Registry owns all Player records for one session. It is only ever
// touched from the hub's run loop, so it carries no lock of its own.
type Registry struct {
	players map[string]*Player
	order   []string // ids in join order, for stable ranking
}

func newRegistry() *Registry {
	return &Registry{
		players: make(map[string]*Player),
	}
}

// Add mints a fresh durable id and creates the record.
func (r *Registry) Add(name string) *Player {
	p := &Player{
		ID:   uuid.NewString(),
		Name: name,
	}
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	return p
}

func (r *Registry) Get(id string) (*Player, error) {
	p, ok := r.players[id]
	if !ok {
		return nil, errUnknownPlayer
	}
	return p, nil
}

func (r *Registry) Count() int {
	return len(r.players)
}

// All returns players in join order.
func (r *Registry) All() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}
