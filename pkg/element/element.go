// Package element models an addressable UI element: either a native handle
// issued by the accessibility subsystem or a mock identity used for testing
// and error injection. Both variants share the Element capability set.
package element

import (
	"fmt"
	"reflect"
)

// Element is the capability set shared by every identity variant.
type Element interface {
	Payload() interface{}
	ProcessIdentifier() int32
	IsNative() bool
}

// Kind identifies the variant behind an Identity.
type Kind int

const (
	KindInvalid Kind = iota // Zero value, never produced by the constructors
	KindNative              // Backed by a live accessibility handle
	KindMock                // Synthetic identity with a caller-owned payload
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindNative:
		return "native"
	case KindMock:
		return "mock"
	default:
		return "invalid"
	}
}

// Ref is a non-owning reference to a live accessibility handle. The daemon owns
// the handle; Token is the opaque identifier it issued for it.
type Ref struct {
	PID   int32
	Token string
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r == Ref{}
}

// DeviceRef addresses the physical device itself.
var DeviceRef = Ref{PID: 0, Token: "device"}

// PayloadSource derives the live payload of a native element.
type PayloadSource interface {
	ElementPayload(ref Ref) interface{}
}

// PayloadFunc adapts a function to PayloadSource.
type PayloadFunc func(ref Ref) interface{}

// ElementPayload calls f(ref).
func (f PayloadFunc) ElementPayload(ref Ref) interface{} {
	return f(ref)
}

type placeholder struct{}

func (placeholder) String() string { return "<placeholder>" }

// Placeholder is the payload of a mock created without one.
var Placeholder interface{} = placeholder{}

// Identity is one addressable UI element. It is a small value type; copy it freely.
type Identity struct {
	kind    Kind
	ref     Ref
	pid     int32
	payload interface{}   // mock only
	source  PayloadSource // native only; not part of identity
}

var _ Element = Identity{}

// Option configures a native identity.
type Option func(*Identity)

// WithPayloadSource makes Payload() read through src on every call.
func WithPayloadSource(src PayloadSource) Option {
	return func(id *Identity) {
		id.source = src
	}
}

// Native wraps a live handle. The caller must make sure ref is currently alive;
// a stale ref is not detected here.
func Native(ref Ref, opts ...Option) Identity {
	id := Identity{kind: KindNative, ref: ref, pid: ref.PID}
	for _, opt := range opts {
		opt(&id)
	}
	return id
}

// Mock creates a synthetic identity carrying payload.
func Mock(pid int32, payload interface{}) Identity {
	return Identity{kind: KindMock, pid: pid, payload: payload}
}

// MockPID creates a synthetic identity with the placeholder payload.
func MockPID(pid int32) Identity {
	return Mock(pid, Placeholder)
}

var device = Native(DeviceRef)

// Device returns the device-root identity. Every call returns an equal value.
func Device() Identity {
	return device
}

// Kind returns the variant.
func (id Identity) Kind() Kind {
	return id.kind
}

// IsNative reports whether the identity is backed by a live handle.
func (id Identity) IsNative() bool {
	return id.kind == KindNative
}

// ProcessIdentifier returns the owning process id (0 for the device root).
func (id Identity) ProcessIdentifier() int32 {
	return id.pid
}

// Ref returns the native reference, or the zero Ref for mocks.
func (id Identity) Ref() Ref {
	return id.ref
}

// IsDevice reports whether id is the device root.
func (id Identity) IsDevice() bool {
	return id.kind == KindNative && id.ref == DeviceRef
}

// IsZero reports whether id was never constructed.
func (id Identity) IsZero() bool {
	return id.kind == KindInvalid
}

// Payload returns the mock payload, or for native elements a live view read
// from the payload source. It may differ between calls as the UI changes.
func (id Identity) Payload() interface{} {
	switch id.kind {
	case KindMock:
		return id.payload
	case KindNative:
		if id.source != nil {
			if p := id.source.ElementPayload(id.ref); p != nil {
				return p
			}
		}
		return map[string]interface{}{
			"pid":   id.ref.PID,
			"token": id.ref.Token,
		}
	default:
		return nil
	}
}

// Equal reports whether both identities denote the same element: same variant,
// same process, and same native ref or deeply equal mock payload.
func (id Identity) Equal(other Identity) bool {
	if id.kind != other.kind || id.pid != other.pid {
		return false
	}
	switch id.kind {
	case KindNative:
		return id.ref == other.ref
	case KindMock:
		return reflect.DeepEqual(id.payload, other.payload)
	default:
		return true
	}
}

// Equal reports whether a and b denote the same element.
func Equal(a, b Identity) bool {
	return a.Equal(b)
}

// String renders the identity for logs.
func (id Identity) String() string {
	switch id.kind {
	case KindNative:
		if id.IsDevice() {
			return "native(device)"
		}
		return fmt.Sprintf("native(pid=%d, ref=%s)", id.pid, id.ref.Token)
	case KindMock:
		return fmt.Sprintf("mock(pid=%d, payload=%v)", id.pid, id.payload)
	default:
		return "invalid"
	}
}
