package channels

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryHooks_Merge(t *testing.T) {
	var calls []string
	first := DeliveryHooks{
		OnDeliver: func(Delivery) { calls = append(calls, "first-deliver") },
		OnError:   func(Delivery, error) { calls = append(calls, "first-error") },
	}
	second := DeliveryHooks{
		OnDeliver: func(Delivery) { calls = append(calls, "second-deliver") },
		OnDone:    func(Delivery) { calls = append(calls, "second-done") },
	}

	merged := first.Merge(second)
	merged.OnDeliver(Delivery{})
	merged.OnDone(Delivery{})
	merged.OnError(Delivery{}, errors.New("boom"))

	assert.Equal(t, []string{"first-deliver", "second-deliver", "second-done", "first-error"}, calls)
	assert.True(t, DeliveryHooks{}.IsZero())
	assert.False(t, merged.IsZero())
	assert.Nil(t, DeliveryHooks{}.Merge(DeliveryHooks{}).OnDone)
}

func TestHookedChannel_Success(t *testing.T) {
	out := &recordingChannel[string]{}
	var delivered, done []Delivery
	hooked := NewHookedChannel[string]("audit", out, DeliveryHooks{
		OnDeliver: func(d Delivery) { delivered = append(delivered, d) },
		OnDone:    func(d Delivery) { done = append(done, d) },
		OnError:   func(Delivery, error) { t.Fatal("unexpected error hook") },
	})

	require.NoError(t, hooked.Send("hello"))

	assert.Equal(t, []string{"hello"}, out.Messages())
	require.Len(t, delivered, 1)
	require.Len(t, done, 1)
	assert.Equal(t, "audit", done[0].Consumer)
	assert.Equal(t, "string", done[0].MessageType)
	assert.Equal(t, "hello", done[0].Message)
	assert.GreaterOrEqual(t, done[0].Duration, time.Duration(0))
}

func TestHookedChannel_ErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	var seen error
	hooked := NewHookedChannel[int]("", &recordingChannel[int]{err: boom}, DeliveryHooks{
		OnDone:  func(Delivery) { t.Fatal("unexpected done hook") },
		OnError: func(_ Delivery, err error) { seen = err },
	})

	err := hooked.Send(1)
	assert.Same(t, boom, err)
	assert.Same(t, boom, seen)
}

func TestHookedChannel_PanicsWithoutOutput(t *testing.T) {
	assert.Panics(t, func() { NewHookedChannel[int]("x", nil, DeliveryHooks{}) })
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []error
	names    []string
}

func (r *recordingObserver) ObserveDelivery(consumer, messageType string, elapsed time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, consumer+"/"+messageType)
	r.outcomes = append(r.outcomes, err)
}

func TestObserverHooks(t *testing.T) {
	boom := errors.New("boom")
	observer := &recordingObserver{}
	failing := &recordingChannel[int]{}
	hooked := NewHookedChannel[int]("orders", failing, ObserverHooks(observer))

	require.NoError(t, hooked.Send(1))
	failing.err = boom
	assert.ErrorIs(t, hooked.Send(2), boom)

	assert.Equal(t, []string{"orders/int", "orders/int"}, observer.names)
	assert.Equal(t, []error{nil, boom}, observer.outcomes)
	assert.True(t, ObserverHooks(nil).IsZero())
}

func TestHookedChannel_Describe(t *testing.T) {
	consumer := NewNamedConsumerChannel[int]("sink", func(int) error { return nil })
	node := Describe(NewHookedChannel[int]("audit", consumer, DeliveryHooks{}))

	assert.Equal(t, KindHooked, node.Kind)
	assert.Equal(t, "audit", node.Name)
	require.Len(t, node.Children, 1)
	assert.Equal(t, KindConsumer, node.Children[0].Kind)
}
