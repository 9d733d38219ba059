package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCookies(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	c := CreateCookie(AccessCookie, "v", "/", exp)
	assert.Equal(t, "v", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, exp, c.Expires)

	d := DeleteCookie(RefreshCookie, "/")
	assert.Equal(t, -1, d.MaxAge)
	assert.Empty(t, d.Value)
}

func TestSha256Hex(t *testing.T) {
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", Sha256Hex("hello"))
	assert.Len(t, NewJTI(), 36)
	assert.NotEqual(t, NewJTI(), NewJTI())
}
