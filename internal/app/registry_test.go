package app

import (
	"testing"

	"github.com/dkeye/Rooms/internal/core/coretest"
	"github.com/stretchr/testify/assert"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	c1 := coretest.NewConn()
	c2 := coretest.NewConn()

	r.Register("u1", c1)
	got, ok := r.Lookup("u1")
	assert.True(t, ok)
	assert.Same(t, c1, got)

	assert.False(t, r.Unregister("u1", c2), "foreign connection must not unbind u1")
	assert.Equal(t, 1, r.Len())

	assert.True(t, r.Unregister("u1", c1))
	_, ok = r.Lookup("u1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}
