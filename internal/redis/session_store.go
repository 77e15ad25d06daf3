package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"xupload/internal/domain/upload"
)

// Key pattern: xupload:session:{session_id}:{slot}, refreshed to TTL on every write.

const maxUpdateAttempts = 5

// ErrSlotContended is returned when every optimistic attempt lost to another writer.
var ErrSlotContended = errors.New("session slot contended")

// SessionStore keeps each session slot as one JSON document.
type SessionStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewSessionStore(client *goredis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func SessionKey(sessionID, slot string) string {
	return fmt.Sprintf("xupload:session:%s:%s", sessionID, slot)
}

// Get returns the slot contents. ok is false when the slot was never written or expired.
func (s *SessionStore) Get(ctx context.Context, sessionID, slot string) (upload.SessionFiles, bool, error) {
	return decodeSlot(s.client.Get(ctx, SessionKey(sessionID, slot)).Bytes())
}

// Set replaces the slot contents.
func (s *SessionStore) Set(ctx context.Context, sessionID, slot string, files upload.SessionFiles) error {
	data, err := json.Marshal(files)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, SessionKey(sessionID, slot), data, s.ttl).Err()
}

// Update runs fn on the slot under WATCH and writes the result in MULTI/EXEC
// when fn reports a change. A concurrent write to the slot reruns fn.
func (s *SessionStore) Update(ctx context.Context, sessionID, slot string, fn func(files upload.SessionFiles, exists bool) (bool, error)) error {
	key := SessionKey(sessionID, slot)
	txf := func(tx *goredis.Tx) error {
		files, exists, err := decodeSlot(tx.Get(ctx, key).Bytes())
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
		data, err := json.Marshal(files)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		if !errors.Is(err, goredis.TxFailedErr) {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrSlotContended, key)
}

func decodeSlot(data []byte, err error) (upload.SessionFiles, bool, error) {
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session slot: %w", err)
	}

	var files upload.SessionFiles
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, false, fmt.Errorf("decode session slot: %w", err)
	}
	if files == nil {
		files = upload.SessionFiles{}
	}
	return files, true, nil
}
