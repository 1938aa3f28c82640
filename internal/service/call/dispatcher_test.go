package call

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherRunsTasksInOrder(t *testing.T) {
	d := newDispatcher()
	defer d.stop()

	var order []int
	for i := 0; i < 10; i++ {
		i := i
		d.dispatch(func() {
			order = append(order, i)
		})
	}
	d.call(func() {})

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, order)
}

func TestDispatcherCallIsSynchronous(t *testing.T) {
	d := newDispatcher()
	defer d.stop()

	done := false
	d.call(func() {
		done = true
	})

	assert.True(t, done)
}

func TestDispatcherDropsTasksAfterStop(t *testing.T) {
	d := newDispatcher()
	d.stop()

	ran := false
	d.call(func() {
		ran = true
	})

	assert.False(t, ran)
}
