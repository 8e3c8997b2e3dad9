package channels

import (
	"time"

	idspkg "github.com/drblury/chanflow/internal/runtime/ids"
)

// Delivery describes one message handed to a consumer branch.
type Delivery struct {
	// Consumer is the branch name given at configuration time, if any.
	Consumer string
	// MessageType is the Go type of the delivered message.
	MessageType string
	// Message is the delivered value.
	Message any
	// StartedAt is when the message entered the branch.
	StartedAt time.Time
	// Duration is only set for OnDone and OnError.
	Duration time.Duration
}

// DeliveryHooks are callbacks around a consumer branch. Nil hooks are skipped.
type DeliveryHooks struct {
	// OnDeliver runs before the message is passed downstream.
	OnDeliver func(d Delivery)
	// OnDone runs after downstream returned without error.
	OnDone func(d Delivery)
	// OnError runs after downstream returned err. The error still reaches the
	// sender unchanged.
	OnError func(d Delivery, err error)
}

// Merge returns hooks that call h first and then other.
func (h DeliveryHooks) Merge(other DeliveryHooks) DeliveryHooks {
	return DeliveryHooks{
		OnDeliver: chainHooks(h.OnDeliver, other.OnDeliver),
		OnDone:    chainHooks(h.OnDone, other.OnDone),
		OnError:   chainErrorHooks(h.OnError, other.OnError),
	}
}

// IsZero reports whether no hook is set.
func (h DeliveryHooks) IsZero() bool {
	return h.OnDeliver == nil && h.OnDone == nil && h.OnError == nil
}

func chainHooks(a, b func(Delivery)) func(Delivery) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(d Delivery) {
		a(d)
		b(d)
	}
}

func chainErrorHooks(a, b func(Delivery, error)) func(Delivery, error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(d Delivery, err error) {
		a(d, err)
		b(d, err)
	}
}

// DeliveryObserver receives the outcome of every delivery on an instrumented
// branch. A nil err means the consumer succeeded.
type DeliveryObserver interface {
	ObserveDelivery(consumer, messageType string, elapsed time.Duration, err error)
}

// ObserverHooks adapts a DeliveryObserver to DeliveryHooks.
func ObserverHooks(observer DeliveryObserver) DeliveryHooks {
	if observer == nil {
		return DeliveryHooks{}
	}
	return DeliveryHooks{
		OnDone: func(d Delivery) {
			observer.ObserveDelivery(d.Consumer, d.MessageType, d.Duration, nil)
		},
		OnError: func(d Delivery, err error) {
			observer.ObserveDelivery(d.Consumer, d.MessageType, d.Duration, err)
		},
	}
}

// HookedChannel runs DeliveryHooks around every send to its output.
type HookedChannel[T any] struct {
	id     string
	name   string
	hooks  DeliveryHooks
	output Channel[T]
}

// NewHookedChannel decorates output with hooks. It panics on a nil output.
func NewHookedChannel[T any](name string, output Channel[T], hooks DeliveryHooks) *HookedChannel[T] {
	if output == nil {
		panic("chanflow: hooked channel requires an output")
	}
	return &HookedChannel[T]{id: idspkg.CreateULID(), name: name, hooks: hooks, output: output}
}

// Send runs the hooks around output.Send and returns its error unchanged.
func (h *HookedChannel[T]) Send(message T) error {
	d := Delivery{
		Consumer:    h.name,
		MessageType: MessageTypeName[T](),
		Message:     message,
		StartedAt:   time.Now(),
	}
	if h.hooks.OnDeliver != nil {
		h.hooks.OnDeliver(d)
	}

	err := h.output.Send(message)
	d.Duration = time.Since(d.StartedAt)

	if err != nil {
		if h.hooks.OnError != nil {
			h.hooks.OnError(d, err)
		}
		return err
	}
	if h.hooks.OnDone != nil {
		h.hooks.OnDone(d)
	}
	return nil
}

// NodeInfo implements Inspectable.
func (h *HookedChannel[T]) NodeInfo() NodeInfo {
	return NodeInfo{ID: h.id, Kind: KindHooked, Name: h.name, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (h *HookedChannel[T]) Children() []any {
	return []any{h.output}
}
