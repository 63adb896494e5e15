package service

import (
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/salesdesk/internal/invoice/domain"
	"github.com/smallbiznis/salesdesk/internal/invoice/editor"
)

// sessionEntry is one open editor plus the invoice header fields the editor
// does not own. mu serializes every event on the session.
type sessionEntry struct {
	mu sync.Mutex

	id              string
	orgID           snowflake.ID
	customerID      snowflake.ID
	customerStateID string
	invoiceDate     time.Time
	currency        string
	homeCurrency    string

	// invoiceID is set when the session edits a stored invoice or after a
	// successful submit.
	invoiceID     snowflake.ID
	invoiceNumber string
	submitted     bool
	closed        bool

	editor   *editor.Session
	warnings []invoicedomain.Warning
	lastUsed time.Time
}

func (e *sessionEntry) addWarnings(ws []invoicedomain.Warning) {
	e.warnings = append(e.warnings, ws...)
}

// drainWarnings returns the warnings raised since the last view.
func (e *sessionEntry) drainWarnings() []invoicedomain.Warning {
	ws := e.warnings
	e.warnings = nil
	return ws
}

type registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]*sessionEntry)}
}

func (r *registry) put(e *sessionEntry) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[e.id] = e
	return len(r.sessions)
}

func (r *registry) get(id string) *sessionEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

func (r *registry) remove(id string) (*sessionEntry, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.sessions[id]
	delete(r.sessions, id)
	return e, len(r.sessions)
}

// evictIdle drops sessions untouched since before cutoff and returns their
// IDs with the remaining count.
func (r *registry) evictIdle(cutoff time.Time) ([]string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for id, e := range r.sessions {
		e.mu.Lock()
		idle := e.lastUsed.Before(cutoff)
		if idle {
			e.closed = true
		}
		e.mu.Unlock()
		if idle {
			delete(r.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted, len(r.sessions)
}
