package photostore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewKey(t *testing.T) {
	key := NewKey("initiatives", "image/png")
	assert.True(t, strings.HasPrefix(key, "initiatives/"))
	assert.True(t, strings.HasSuffix(key, ".png"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(key, "initiatives/"), ".png"), 36)

	assert.NotEqual(t, key, NewKey("initiatives", "image/png"))
	assert.False(t, strings.Contains(NewKey("", "image/jpeg"), "/"))
	assert.True(t, strings.HasPrefix(NewKey("/a/b/", "image/jpeg"), "a/b/"))
}

func TestMIMERoundTrip(t *testing.T) {
	for _, mime := range []string{"image/jpeg", "image/png", "image/gif", "image/webp"} {
		assert.Equal(t, mime, MIMEForKey("x"+ExtForMIME(mime)), mime)
	}
	assert.Equal(t, ".jpg", ExtForMIME("application/octet-stream"))
	assert.Equal(t, "image/png", MIMEForKey("folder/A.PNG"))
}
