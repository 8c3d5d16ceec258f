package conversation

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// Store holds per-customer conversation state keyed by phone number.
// Access to one customer's state is serialized; customers hashing to
// different shards proceed fully in parallel.
type Store struct {
	shards [shardCount]shard
}

type shard struct {
	mu     sync.Mutex
	states map[string]*State
}

func NewStore() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].states = make(map[string]*State)
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.shards[h.Sum32()%shardCount]
}

// Do runs fn with exclusive access to the state for key. The state is
// created empty on first use and discarded when fn leaves it reset, so
// completed or abandoned dialogues hold no memory.
func (s *Store) Do(key string, fn func(*State)) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.states[key]
	if !ok {
		st = &State{}
		sh.states[key] = st
	}

	fn(st)

	if st.Step == StepNone {
		delete(sh.states, key)
	}
}

// Peek returns a copy of the current state for key.
func (s *Store) Peek(key string) State {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if st, ok := sh.states[key]; ok {
		return *st
	}
	return State{}
}
