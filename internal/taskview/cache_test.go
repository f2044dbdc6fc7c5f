package taskview

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskdeck/internal/domain"
)

func task(id int64, title string) domain.Task {
	return domain.Task{ID: id, Title: title, Status: domain.StatusPending, Priority: domain.PriorityLow}
}

func TestReplaceAppliesInOrder(t *testing.T) {
	c := New()
	s1 := c.NextSeq()
	s2 := c.NextSeq()

	assert.True(t, c.Replace(s1, []domain.Task{task(1, "a")}))
	assert.True(t, c.Replace(s2, []domain.Task{task(1, "a"), task(2, "b")}))
	assert.Equal(t, 2, c.Len())
}

func TestReplaceDiscardsStaleResponse(t *testing.T) {
	c := New()
	s1 := c.NextSeq()
	s2 := c.NextSeq()

	// The later query resolves first; the earlier one must not revert it.
	assert.True(t, c.Replace(s2, []domain.Task{task(2, "fresh")}))
	assert.False(t, c.Replace(s1, []domain.Task{task(1, "stale")}))

	snap := c.Snapshot()
	assert.Len(t, snap, 1)
	assert.Equal(t, int64(2), snap[0].ID)
}

func TestAppendThenReplaceDeduplicates(t *testing.T) {
	c := New()
	s1 := c.NextSeq()
	assert.True(t, c.Replace(s1, []domain.Task{task(1, "a")}))

	// Optimistic append ahead of the authoritative refetch.
	c.Append(task(2, "optimistic"))
	assert.Equal(t, 2, c.Len())

	s2 := c.NextSeq()
	assert.True(t, c.Replace(s2, []domain.Task{task(1, "a"), task(2, "optimistic")}))
	assert.Equal(t, 2, c.Len())
}

func TestRemoveByID(t *testing.T) {
	c := New()
	c.Replace(c.NextSeq(), []domain.Task{task(1, "a"), task(2, "b"), task(3, "c")})

	assert.True(t, c.RemoveByID(2))
	assert.False(t, c.RemoveByID(2), "second removal finds nothing")
	assert.False(t, c.RemoveByID(99))

	snap := c.Snapshot()
	assert.Len(t, snap, 2)
	assert.Equal(t, int64(1), snap[0].ID)
	assert.Equal(t, int64(3), snap[1].ID)
}

func TestClearInvalidatesInflightQueries(t *testing.T) {
	c := New()
	c.Replace(c.NextSeq(), []domain.Task{task(1, "a")})

	seq := c.NextSeq()
	c.Clear()
	assert.Equal(t, 0, c.Len())

	// The in-flight response lands after logout and must be ignored.
	assert.False(t, c.Replace(seq, []domain.Task{task(1, "a")}))
	assert.Equal(t, 0, c.Len())
}

func TestSnapshotIsACopy(t *testing.T) {
	c := New()
	c.Replace(c.NextSeq(), []domain.Task{task(1, "a")})
	snap := c.Snapshot()
	snap[0].Title = "mutated"
	assert.Equal(t, "a", c.Snapshot()[0].Title)
}

func TestLoadingFlag(t *testing.T) {
	c := New()
	assert.False(t, c.Loading())
	c.SetLoading(true)
	assert.True(t, c.Loading())
	c.SetLoading(false)
	assert.False(t, c.Loading())
}
