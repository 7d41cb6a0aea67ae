package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesLastValue(t *testing.T) {
	f := New[[]int]()
	f.Publish([]int{1, 2})

	ch, cancel := f.Subscribe()
	defer cancel()

	assert.Equal(t, []int{1, 2}, <-ch)
}

func TestPublishReplacesUnreadValue(t *testing.T) {
	f := New[int]()
	ch, cancel := f.Subscribe()
	defer cancel()

	f.Publish(1)
	f.Publish(2)
	f.Publish(3)

	assert.Equal(t, 3, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected extra value %d", v)
	default:
	}
}

func TestCancelClosesChannel(t *testing.T) {
	f := New[string]()
	ch, cancel := f.Subscribe()
	require.Equal(t, 1, f.Subscribers())

	cancel()
	cancel()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, f.Subscribers())

	f.Publish("after cancel")
}

func TestCloseEndsAllSubscriptions(t *testing.T) {
	f := New[int]()
	a, cancelA := f.Subscribe()
	b, _ := f.Subscribe()

	f.Close()
	f.Publish(7)
	cancelA()

	_, okA := <-a
	_, okB := <-b
	assert.False(t, okA)
	assert.False(t, okB)

	c, _ := f.Subscribe()
	_, okC := <-c
	assert.False(t, okC)
}

func TestSubscribeBeforeFirstPublishWaits(t *testing.T) {
	f := New[int]()
	ch, cancel := f.Subscribe()
	defer cancel()

	select {
	case v := <-ch:
		t.Fatalf("unexpected value %d before publish", v)
	default:
	}

	f.Publish(42)
	assert.Equal(t, 42, <-ch)
}
