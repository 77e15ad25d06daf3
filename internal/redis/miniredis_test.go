package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xupload/internal/domain/upload"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleFile(name string) upload.SessionFile {
	return upload.SessionFile{
		Path:     "/srv/uploads/10192026/" + name,
		Thumb:    "/srv/uploads/10192026/thumb_" + name,
		Filename: name,
		Size:     3,
		Mime:     "image/png",
		Name:     "photo.png",
		Folder:   "10192026",
	}
}

func TestSessionStore_GetMissing(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, time.Hour)

	files, ok, err := store.Get(context.Background(), "sess-1", upload.StateVariable)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, files)
}

func TestSessionStore_SetGetAndTTL(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()
	key := SessionKey("sess-1", upload.StateVariable)

	files := upload.SessionFiles{"42_7_3_image.png": sampleFile("42_7_3_image.png")}
	require.NoError(t, store.Set(ctx, "sess-1", upload.StateVariable, files))

	raw, err := mr.Get(key)
	require.NoError(t, err)
	assert.Contains(t, raw, `"fldrname":"10192026"`)
	assert.Equal(t, time.Hour, mr.TTL(key))

	got, ok, err := store.Get(ctx, "sess-1", upload.StateVariable)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, files, got)

	mr.FastForward(30 * time.Minute)
	require.NoError(t, store.Set(ctx, "sess-1", upload.StateVariable, files))
	assert.Equal(t, time.Hour, mr.TTL(key))

	mr.FastForward(2 * time.Hour)
	_, ok, err = store.Get(ctx, "sess-1", upload.StateVariable)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStore_GetCorruptSlot(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Hour)
	require.NoError(t, mr.Set(SessionKey("sess-1", upload.StateVariable), "{not json"))

	_, _, err := store.Get(context.Background(), "sess-1", upload.StateVariable)
	assert.Error(t, err)
}

func TestSessionStore_UpdateRetriesAfterConcurrentWrite(t *testing.T) {
	_, client := newTestClient(t)
	store := NewSessionStore(client, time.Hour)
	ctx := context.Background()

	calls := 0
	err := store.Update(ctx, "sess-1", upload.StateVariable, func(files upload.SessionFiles, exists bool) (bool, error) {
		calls++
		if calls == 1 {
			// another replica records its upload between WATCH and EXEC
			other := upload.SessionFiles{"43_7_3_image.png": sampleFile("43_7_3_image.png")}
			require.NoError(t, store.Set(ctx, "sess-1", upload.StateVariable, other))
		}
		files["42_7_3_image.png"] = sampleFile("42_7_3_image.png")
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	got, ok, err := store.Get(ctx, "sess-1", upload.StateVariable)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, got, "42_7_3_image.png")
	assert.Contains(t, got, "43_7_3_image.png")
}

func TestSessionStore_UpdateWithoutChangeDoesNotWrite(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewSessionStore(client, time.Hour)

	err := store.Update(context.Background(), "sess-1", upload.StateVariable, func(files upload.SessionFiles, exists bool) (bool, error) {
		assert.False(t, exists)
		assert.NotNil(t, files)
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(SessionKey("sess-1", upload.StateVariable)))
}

func TestRateLimiter_AllowUpload(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := NewRateLimiter(client, RateLimitConfig{UploadLimit: 2, UploadWindow: time.Minute})
	ctx := context.Background()

	first, err := limiter.AllowUpload(ctx, 7)
	require.NoError(t, err)
	assert.True(t, first.Allowed)
	assert.Equal(t, 1, first.Remaining)
	assert.Equal(t, 2, first.Limit)

	second, err := limiter.AllowUpload(ctx, 7)
	require.NoError(t, err)
	assert.True(t, second.Allowed)
	assert.Equal(t, 0, second.Remaining)

	third, err := limiter.AllowUpload(ctx, 7)
	require.NoError(t, err)
	assert.False(t, third.Allowed)
	assert.Greater(t, third.ResetIn, time.Duration(0))

	other, err := limiter.AllowUpload(ctx, 8)
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	mr.FastForward(time.Minute + time.Second)
	again, err := limiter.AllowUpload(ctx, 7)
	require.NoError(t, err)
	assert.True(t, again.Allowed)
}

func TestRateLimiter_ZeroLimitAlwaysAllows(t *testing.T) {
	mr, client := newTestClient(t)
	limiter := NewRateLimiter(client, RateLimitConfig{UploadLimit: 0, UploadWindow: time.Minute})

	for i := 0; i < 5; i++ {
		res, err := limiter.AllowUpload(context.Background(), 7)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	assert.Empty(t, mr.Keys())
}

func TestPublisher_ReachesPatternSubscriber(t *testing.T) {
	mr, client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type message struct {
		channel string
		payload string
	}
	received := make(chan message, 1)
	go func() {
		_ = NewSubscriber(client).Subscribe(ctx, []string{UserChannelPattern()}, func(channel string, payload []byte) {
			received <- message{channel: channel, payload: string(payload)}
		})
	}()

	require.Eventually(t, func() bool { return mr.PubSubNumPat() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, NewPublisher(client).PublishToUser(ctx, 42, map[string]string{"type": "file.deleted"}))

	select {
	case msg := <-received:
		assert.Equal(t, UserChannel(42), msg.channel)
		assert.JSONEq(t, `{"type":"file.deleted"}`, msg.payload)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}
