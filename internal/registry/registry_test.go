package registry

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAcquireRejectsDuplicate(t *testing.T) {
	r := New()
	id := uuid.New()
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.True(t, r.Acquire(id, cancel))
	assert.False(t, r.Acquire(id, cancel), "already running")
	assert.Equal(t, 1, r.Running())

	r.Release(id)
	assert.Equal(t, 0, r.Running())
	assert.True(t, r.Acquire(id, cancel), "reacquirable after release")
}

func TestCancel(t *testing.T) {
	r := New()
	id := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())

	assert.False(t, r.Cancel(id), "not running yet")

	r.Acquire(id, cancel)
	assert.True(t, r.Cancel(id))
	assert.Error(t, ctx.Err(), "context cancelled")
}
