package services

import (
	"context"
	"sync"

	"xupload/internal/domain/upload"
)

// SessionStore persists one JSON-able slot per session.
type SessionStore interface {
	// Get returns ok=false when the slot was never set.
	Get(ctx context.Context, sessionID, slot string) (upload.SessionFiles, bool, error)
	Set(ctx context.Context, sessionID, slot string, files upload.SessionFiles) error
}

// AtomicSessionStore applies fn to a slot in one optimistic transaction that
// holds across processes. fn may be called more than once on conflict.
type AtomicSessionStore interface {
	SessionStore
	Update(ctx context.Context, sessionID, slot string, fn func(files upload.SessionFiles, exists bool) (bool, error)) error
}

// SessionFiles serializes read-modify-write of the uploaded-files slot per session.
type SessionFiles struct {
	store SessionStore
	slot  string
	locks *keyedMutex
}

func NewSessionFiles(store SessionStore) *SessionFiles {
	return &SessionFiles{
		store: store,
		slot:  upload.StateVariable,
		locks: newKeyedMutex(),
	}
}

// Update loads the slot, lets fn mutate it in place and saves it when fn
// reports a change. exists tells fn whether the slot was present before.
// Stores implementing AtomicSessionStore also guard against other replicas.
func (s *SessionFiles) Update(ctx context.Context, sessionID string, fn func(files upload.SessionFiles, exists bool) (bool, error)) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	if tx, ok := s.store.(AtomicSessionStore); ok {
		return tx.Update(ctx, sessionID, s.slot, fn)
	}

	files, exists, err := s.store.Get(ctx, sessionID, s.slot)
	if err != nil {
		return err
	}
	if files == nil {
		files = upload.SessionFiles{}
	}

	changed, err := fn(files, exists)
	if err != nil || !changed {
		return err
	}
	return s.store.Set(ctx, sessionID, s.slot, files)
}

// Record adds or replaces one file record.
func (s *SessionFiles) Record(ctx context.Context, sessionID string, f upload.SessionFile) error {
	return s.Update(ctx, sessionID, func(files upload.SessionFiles, _ bool) (bool, error) {
		files[f.Filename] = f
		return true, nil
	})
}

// keyedMutex hands out one mutex per key and drops it when nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// MemorySessionStore keeps slots in process memory. Used with SESSION_DRIVER=memory.
type MemorySessionStore struct {
	mu    sync.RWMutex
	slots map[string]upload.SessionFiles
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{slots: make(map[string]upload.SessionFiles)}
}

func (m *MemorySessionStore) Get(_ context.Context, sessionID, slot string) (upload.SessionFiles, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	files, ok := m.slots[sessionID+"/"+slot]
	if !ok {
		return nil, false, nil
	}
	out := make(upload.SessionFiles, len(files))
	for k, v := range files {
		out[k] = v
	}
	return out, true, nil
}

func (m *MemorySessionStore) Set(_ context.Context, sessionID, slot string, files upload.SessionFiles) error {
	cp := make(upload.SessionFiles, len(files))
	for k, v := range files {
		cp[k] = v
	}
	m.mu.Lock()
	m.slots[sessionID+"/"+slot] = cp
	m.mu.Unlock()
	return nil
}
