package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"xupload/internal/domain/album"
	"xupload/internal/domain/upload"
	xupload_errors "xupload/pkg/errors"
)

type fakeAlbums struct {
	mu      sync.Mutex
	nextID  int64
	rows    map[int64]*album.Album
	deleted []string
	failOn  string
}

func newFakeAlbums(firstID int64) *fakeAlbums {
	return &fakeAlbums{nextID: firstID, rows: make(map[int64]*album.Album)}
}

func (f *fakeAlbums) Insert(_ context.Context, a *album.Album) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn == "insert" {
		return errors.New("db down")
	}
	a.ID = f.nextID
	f.nextID++
	cp := *a
	f.rows[a.ID] = &cp
	return nil
}

func (f *fakeAlbums) UpdateImageName(_ context.Context, id int64, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return xupload_errors.ErrNotFound
	}
	row.ImageName = name
	return nil
}

// GetByImageName lets tests inspect rows by their final name.
func (f *fakeAlbums) GetByImageName(_ context.Context, name string) (album.Album, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, row := range f.rows {
		if row.ImageName == name {
			return *row, nil
		}
	}
	return album.Album{}, xupload_errors.ErrNotFound
}

func (f *fakeAlbums) DeleteByImageName(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	for id, row := range f.rows {
		if row.ImageName == name {
			delete(f.rows, id)
			return nil
		}
	}
	return xupload_errors.ErrNotFound
}

type promoteCall struct {
	kind   album.OwnerKind
	userID int64
	image  string
}

type fakeProfiles struct {
	calls []promoteCall
	err   error
}

func (f *fakeProfiles) PromoteIfEmpty(_ context.Context, kind album.OwnerKind, userID int64, a album.Album) (bool, error) {
	f.calls = append(f.calls, promoteCall{kind: kind, userID: userID, image: a.ProfileImagePath()})
	if f.err != nil {
		return false, f.err
	}
	return true, nil
}

type putCall struct {
	key         string
	contentType string
	size        int64
	body        []byte
}

type fakeStorage struct {
	mu      sync.Mutex
	puts    []putCall
	deletes [][]string
	putErr  error
}

func (f *fakeStorage) PutObject(_ context.Context, key string, body io.Reader, size int64, contentType string) error {
	b, _ := io.ReadAll(body)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, putCall{key: key, contentType: contentType, size: size, body: b})
	return f.putErr
}

func (f *fakeStorage) DeleteObjects(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, append([]string(nil), keys...))
	return nil
}

func (f *fakeStorage) PublicURL(key string) string {
	return "http://albums.matchlink.in/" + key
}

// copyThumbs stands in for the image resizer.
type copyThumbs struct {
	err error
}

func (c copyThumbs) Generate(src, dst string) error {
	if c.err != nil {
		return c.err
	}
	b, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, b, 0o644)
}

type fakeUserPublisher struct {
	mu     sync.Mutex
	events []FileEvent
	users  []int64
}

func (f *fakeUserPublisher) PublishToUser(_ context.Context, userID int64, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, userID)
	f.events = append(f.events, v.(FileEvent))
	return nil
}

// newFileHeader builds a real multipart.FileHeader the way net/http would.
func newFileHeader(t *testing.T, filename, contentType string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

// brokenSessions fails every read, like an unreachable Redis.
type brokenSessions struct{}

func (brokenSessions) Get(context.Context, string, string) (upload.SessionFiles, bool, error) {
	return nil, false, errors.New("redis down")
}

func (brokenSessions) Set(context.Context, string, string, upload.SessionFiles) error {
	return errors.New("redis down")
}

// conflictingSessions behaves like an optimistic store whose first
// transaction always loses to another writer, so fn runs twice.
type conflictingSessions struct {
	*MemorySessionStore
	calls int
}

func (c *conflictingSessions) Update(ctx context.Context, sessionID, slot string, fn func(upload.SessionFiles, bool) (bool, error)) error {
	for attempt := 0; attempt < 2; attempt++ {
		files, exists, err := c.Get(ctx, sessionID, slot)
		if err != nil {
			return err
		}
		if files == nil {
			files = upload.SessionFiles{}
		}
		c.calls++
		changed, err := fn(files, exists)
		if err != nil || !changed {
			return err
		}
		if attempt == 1 {
			return c.Set(ctx, sessionID, slot, files)
		}
	}
	return nil
}
