package clocktest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManualClockAdvance(t *testing.T) {
	start := time.Unix(100, 0)
	clock := NewManualClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(1500 * time.Millisecond)
	assert.Equal(t, 1500*time.Millisecond, clock.Now().Sub(start))
}
