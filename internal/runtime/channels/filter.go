package channels

import idspkg "github.com/drblury/chanflow/internal/runtime/ids"

// FilterChannel forwards only the messages accepted by its predicate.
type FilterChannel[T any] struct {
	id     string
	accept func(T) bool
	output Channel[T]
}

// NewFilterChannel returns a channel that forwards to output whenever accept
// returns true. Rejected messages are dropped without error.
func NewFilterChannel[T any](output Channel[T], accept func(T) bool) *FilterChannel[T] {
	if output == nil || accept == nil {
		panic("chanflow: filter channel requires an output and a predicate")
	}
	return &FilterChannel[T]{id: idspkg.CreateULID(), accept: accept, output: output}
}

// Send forwards message when the predicate accepts it.
func (f *FilterChannel[T]) Send(message T) error {
	if !f.accept(message) {
		return nil
	}
	return f.output.Send(message)
}

// NodeInfo implements Inspectable.
func (f *FilterChannel[T]) NodeInfo() NodeInfo {
	return NodeInfo{ID: f.id, Kind: KindFilter, MessageType: MessageTypeName[T]()}
}

// Children implements Inspectable.
func (f *FilterChannel[T]) Children() []any { return []any{f.output} }
