package channels

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastChannel_DeliversToEveryListener(t *testing.T) {
	a := &recordingChannel[int]{}
	b := &recordingChannel[int]{}
	broadcast := NewBroadcastChannel[int](a, nil, b)

	require.NoError(t, broadcast.Send(1))

	assert.Equal(t, 2, broadcast.Len())
	assert.Equal(t, []int{1}, a.Messages())
	assert.Equal(t, []int{1}, b.Messages())
}

func TestBroadcastChannel_JoinsListenerFaults(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	healthy := &recordingChannel[int]{}
	broadcast := NewBroadcastChannel[int](
		&recordingChannel[int]{err: errA},
		healthy,
		&recordingChannel[int]{err: errB},
	)

	err := broadcast.Send(3)

	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	assert.Equal(t, []int{3}, healthy.Messages(), "a failing listener must not stop delivery")
}

func TestBroadcastChannel_WithAndWithoutAreImmutable(t *testing.T) {
	a := &recordingChannel[string]{}
	b := &recordingChannel[string]{}
	original := NewBroadcastChannel[string](a)

	extended := original.With(b)
	assert.Equal(t, 1, original.Len())
	assert.Equal(t, 2, extended.Len())
	assert.True(t, extended.Contains(b))

	reduced, found := extended.Without(a)
	assert.True(t, found)
	assert.Equal(t, 1, reduced.Len())
	assert.False(t, reduced.Contains(a))
	assert.Equal(t, 2, extended.Len())

	same, found := reduced.Without(a)
	assert.False(t, found)
	assert.Same(t, reduced, same)
}

type funcChannel func(int) error

func (f funcChannel) Send(m int) error { return f(m) }

func TestBroadcastChannel_NonComparableListenersDoNotPanic(t *testing.T) {
	fn := funcChannel(func(int) error { return nil })
	broadcast := NewBroadcastChannel[int](fn)

	assert.NotPanics(t, func() {
		assert.False(t, broadcast.Contains(fn))
		_, found := broadcast.Without(fn)
		assert.False(t, found)
	})
}

func TestFilterChannel(t *testing.T) {
	rec := &recordingChannel[int]{}
	even := NewFilterChannel[int](rec, func(n int) bool { return n%2 == 0 })

	for i := 0; i < 5; i++ {
		require.NoError(t, even.Send(i))
	}

	assert.Equal(t, []int{0, 2, 4}, rec.Messages())
	assert.Panics(t, func() { NewFilterChannel[int](nil, func(int) bool { return true }) })
}

func TestTypedChannel_ForwardsOnlyMatchingType(t *testing.T) {
	rec := &recordingChannel[string]{}
	typed := NewTypedChannel[string](rec)

	require.NoError(t, typed.Send("yes"))
	require.NoError(t, typed.Send(12))
	require.NoError(t, typed.Send(nil))

	assert.Equal(t, []string{"yes"}, rec.Messages())
}

func TestForwardChannel_FeedsUntypedNetwork(t *testing.T) {
	rec := &recordingChannel[any]{}
	untyped := NewUntypedChannelAdapterWithOutput(rec)
	typed := NewChannelAdapterWithOutput[int](NewForwardChannel[int](untyped))

	require.NoError(t, typed.Send(5))

	assert.Equal(t, []any{5}, rec.Messages())
}

func TestConsumerChannel_PanicsOnNilConsumer(t *testing.T) {
	assert.PanicsWithValue(t, "chanflow: consumer cannot be nil", func() {
		NewConsumerChannel[int](nil)
	})
}

func TestSameChannel(t *testing.T) {
	a := &recordingChannel[int]{}
	b := &recordingChannel[int]{}

	assert.True(t, sameChannel(a, a))
	assert.False(t, sameChannel(a, b))
	assert.True(t, sameChannel(nil, nil))
	assert.False(t, sameChannel(a, nil))
	fn := funcChannel(func(int) error { return nil })
	assert.False(t, sameChannel(fn, fn))
}
