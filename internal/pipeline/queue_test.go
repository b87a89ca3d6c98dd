package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInputQueue_DrainKeepsInputOrder(t *testing.T) {
	q := newInputQueue([]string{"a.zap", "b.zap", "c.zap"})

	var got []job
	q.drain(func(j job) { got = append(got, j) })
	assert.Equal(t, []job{{0, "a.zap"}, {1, "b.zap"}, {2, "c.zap"}}, got)

	q.drain(func(job) { t.Error("drained queue ran a job") })
}

func TestInputQueue_DrainRunsOneAtATime(t *testing.T) {
	q := newInputQueue([]string{"a", "b", "c"})

	var order []string
	active := 0
	q.drain(func(j job) {
		active++
		assert.Equal(t, 1, active)
		order = append(order, j.File)
		active--
	})
	assert.Equal(t, []string{"a", "b", "c"}, order)
}

func TestInputQueue_Empty(t *testing.T) {
	ran := false
	newInputQueue(nil).drain(func(job) { ran = true })
	assert.False(t, ran)
}
