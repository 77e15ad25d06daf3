package redis

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"xupload/internal/domain/upload"
)

func TestSessionKey(t *testing.T) {
	assert.Equal(t, "xupload:session:abc:xuploadFiles", SessionKey("abc", upload.StateVariable))
}

func TestUserChannel(t *testing.T) {
	assert.Equal(t, "xupload:user:42", UserChannel(42))
	assert.Equal(t, "xupload:user:*", UserChannelPattern())
}

func TestUserIDFromChannel(t *testing.T) {
	id, ok := UserIDFromChannel(UserChannel(42))
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, ch := range []string{"xupload:user:", "xupload:user:abc", "xupload:user:-1", "other:42"} {
		_, ok := UserIDFromChannel(ch)
		assert.False(t, ok, ch)
	}
}
