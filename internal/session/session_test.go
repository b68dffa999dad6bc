package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoLogin(t *testing.T) {
	d := NewDemo()
	assert.False(t, d.IsAuthenticated())

	id, err := d.Login("  Reader@Example.com ", "anything")
	require.NoError(t, err)
	assert.Equal(t, "reader@example.com", id)

	got, ok := d.CurrentUserID()
	assert.True(t, ok)
	assert.Equal(t, id, got)

	d.Logout()
	_, ok = d.CurrentUserID()
	assert.False(t, ok)
}

func TestDemoLoginRequiresCredentials(t *testing.T) {
	d := NewDemo()

	_, err := d.Login("", "secret")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = d.Login("a@b.c", "   ")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.False(t, d.IsAuthenticated())
}

func TestStatic(t *testing.T) {
	var p Provider = Static("u-1")
	id, ok := p.CurrentUserID()
	assert.True(t, ok)
	assert.Equal(t, "u-1", id)
	assert.False(t, Static("").IsAuthenticated())
}
