package schema

import "sync"

// Store owns the current Schema value. Each Dispatch replaces the value with
// the reduced one; readers always see a complete document.
//
// Dispatches are serialized up to and including listener notification, so
// listeners observe states in the order they were produced. A listener must
// not call Dispatch.
type Store struct {
	dispatchMu sync.Mutex

	mu        sync.RWMutex
	current   Schema
	listeners []func(Schema)
}

// NewStore creates a store holding initial
func NewStore(initial Schema) *Store {
	return &Store{current: initial}
}

// Schema returns the current document
func (st *Store) Schema() Schema {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Dispatch applies edits in order and notifies subscribers once with the result
func (st *Store) Dispatch(edits ...Edit) Schema {
	st.dispatchMu.Lock()
	defer st.dispatchMu.Unlock()

	st.mu.Lock()
	next := ReduceAll(st.current, edits...)
	st.current = next
	listeners := append([]func(Schema){}, st.listeners...)
	st.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
	return next
}

// Subscribe registers fn to be called after every Dispatch
func (st *Store) Subscribe(fn func(Schema)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, fn)
}
