package question

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrChunkProcessed is returned when a chunk's candidates are added twice.
var ErrChunkProcessed = errors.New("chunk already processed")

// Pool holds every question of one paper-generation run in arrival order.
// Questions are never removed; rejected and discarded ones stay for audit.
type Pool struct {
	mu        sync.RWMutex
	questions []*Question
	chunks    map[int]bool
	newID     func() string
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		chunks: make(map[int]bool),
		newID:  uuid.NewString,
	}
}

// AddChunk appends the candidates generated from one chunk of source text.
// Each chunk can be added once; a second call returns ErrChunkProcessed.
func (p *Pool) AddChunk(chunkID int, candidates []Candidate) ([]*Question, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.chunks[chunkID] {
		return nil, ErrChunkProcessed
	}
	p.chunks[chunkID] = true

	added := make([]*Question, 0, len(candidates))
	for _, c := range candidates {
		q := New(p.newID(), len(p.questions), chunkID, c)
		p.questions = append(p.questions, q)
		added = append(added, q)
	}
	return added, nil
}

// All returns every question in insertion order.
func (p *Pool) All() []*Question {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*Question, len(p.questions))
	copy(out, p.questions)
	return out
}

// ByStatus returns the questions currently in status s, in insertion order.
func (p *Pool) ByStatus(s Status) []*Question {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Question
	for _, q := range p.questions {
		if q.status == s {
			out = append(out, q)
		}
	}
	return out
}

// Get looks a question up by ID.
func (p *Pool) Get(id string) (*Question, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, q := range p.questions {
		if q.ID == id {
			return q, true
		}
	}
	return nil, false
}

func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.questions)
}

// Counts tallies questions per status.
func (p *Pool) Counts() map[Status]int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[Status]int)
	for _, q := range p.questions {
		out[q.status]++
	}
	return out
}
