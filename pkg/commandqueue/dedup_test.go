package commandqueue

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSeenSet_CheckAndMark(t *testing.T) {
	seen := newSeenSet(time.Minute, 0)

	assert.False(t, seen.CheckAndMark("update:1"))
	assert.True(t, seen.CheckAndMark("update:1"))
	assert.False(t, seen.CheckAndMark("update:2"))
	assert.Equal(t, 2, seen.Len())
}

func TestSeenSet_Expiry(t *testing.T) {
	seen := newSeenSet(20*time.Millisecond, 0)

	assert.False(t, seen.CheckAndMark("update:1"))
	time.Sleep(60 * time.Millisecond)
	assert.False(t, seen.CheckAndMark("update:1"))
}

func TestSeenSet_Bounded(t *testing.T) {
	seen := newSeenSet(time.Minute, 3)

	for i := 0; i < 5; i++ {
		seen.CheckAndMark(fmt.Sprintf("update:%d", i))
	}
	assert.Equal(t, 3, seen.Len())
	// The oldest key was evicted, so it counts as new again.
	assert.False(t, seen.CheckAndMark("update:0"))
	assert.True(t, seen.CheckAndMark("update:4"))
}
