package web

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-cockpit/pkg/perception"
)

// SessionInfo describes an active session for the API
type SessionInfo struct {
	ID      string    `json:"id"`
	User    string    `json:"user"`
	Created time.Time `json:"created"`
	Frames  uint64    `json:"frames"`
	Events  uint64    `json:"events"`
}

// liveSession is one connection's engine. Frames from a connection are
// handled in order, but API resets arrive from other goroutines.
type liveSession struct {
	id      string
	user    string
	created time.Time

	mu     sync.Mutex
	engine *perception.Session
	frames uint64
	events uint64
}

func (ls *liveSession) process(obs perception.FrameObservation) perception.EventBatch {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	batch := ls.engine.Process(obs)
	ls.frames++
	ls.events += uint64(len(batch.Events))
	return batch
}

func (ls *liveSession) reset() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.engine.Reset()
}

func (ls *liveSession) gaze() perception.GazeState {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.engine.Gaze()
}

func (ls *liveSession) info() SessionInfo {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return SessionInfo{ID: ls.id, User: ls.user, Created: ls.created, Frames: ls.frames, Events: ls.events}
}

// Registry tracks active sessions by id
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*liveSession)}
}

// create builds a session engine and registers it under a fresh id
func (r *Registry) create(cfg perception.Config, user string, opts ...perception.Option) (*liveSession, error) {
	engine, err := perception.NewSession(cfg, opts...)
	if err != nil {
		return nil, err
	}
	ls := &liveSession{
		id:      uuid.NewString(),
		user:    user,
		created: time.Now(),
		engine:  engine,
	}

	r.mu.Lock()
	r.sessions[ls.id] = ls
	r.mu.Unlock()
	return ls, nil
}

func (r *Registry) get(id string) (*liveSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ls, ok := r.sessions[id]
	return ls, ok
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Len returns the number of active sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// List returns active sessions, oldest first
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	out := make([]SessionInfo, 0, len(r.sessions))
	for _, ls := range r.sessions {
		out = append(out, ls.info())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Created.Equal(out[j].Created) {
			return out[i].ID < out[j].ID
		}
		return out[i].Created.Before(out[j].Created)
	})
	return out
}
