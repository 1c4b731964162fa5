package reindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressReportsAtInterval(t *testing.T) {
	var out strings.Builder
	tracker := NewProgressTracker(&out, 10, 5)
	tracker.Start()

	tracker.Update(3)
	assert.Empty(t, out.String(), "below the report interval, nothing is printed")

	tracker.Update(5)
	assert.Contains(t, out.String(), "5/10")
	assert.Contains(t, out.String(), "50.0%")
}

func TestProgressFinishPrintsTotal(t *testing.T) {
	var out strings.Builder
	tracker := NewProgressTracker(&out, 10, 100)
	tracker.Start()

	tracker.Update(4)
	tracker.Finish()

	assert.Contains(t, out.String(), "10/10")
	assert.Contains(t, out.String(), "100.0%")
}

func TestProgressIncrement(t *testing.T) {
	var out strings.Builder
	tracker := NewProgressTracker(&out, 10, 2)
	tracker.Start()

	tracker.Increment(1)
	tracker.Increment(1)
	assert.Contains(t, out.String(), "2/10")
}

func TestProgressCapsAtTotal(t *testing.T) {
	var out strings.Builder
	tracker := NewProgressTracker(&out, 3, 1)
	tracker.Start()

	tracker.Update(99)
	assert.Contains(t, out.String(), "3/3")
}

func TestProgressBeforeStartIsNoop(t *testing.T) {
	var out strings.Builder
	tracker := NewProgressTracker(&out, 10, 1)

	tracker.Update(5)
	tracker.Finish()
	assert.Empty(t, out.String())
	assert.Zero(t, tracker.Elapsed())
}
