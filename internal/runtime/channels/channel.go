package channels

import "reflect"

// Channel accepts messages of type T and forwards them to whatever sits
// behind it.
type Channel[T any] interface {
	Send(message T) error
}

// UntypedChannel accepts messages of any type. It has the same method set as
// Channel[any], so the two are interchangeable.
type UntypedChannel interface {
	Send(message any) error
}

// Send delivers message through an untyped channel. It exists so call sites
// can keep the static message type visible.
func Send[T any](ch UntypedChannel, message T) error {
	return ch.Send(message)
}

// sameChannel reports whether a and b are the same channel value. Values whose
// dynamic type is not comparable (for example func-backed channels) are never
// considered equal instead of panicking.
func sameChannel(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta := reflect.TypeOf(a)
	if ta != reflect.TypeOf(b) || !ta.Comparable() {
		return false
	}
	return a == b
}

// MessageTypeName returns the Go type name of T as shown in topology
// descriptions, e.g. "main.Order".
func MessageTypeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
