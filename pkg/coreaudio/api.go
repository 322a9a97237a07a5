package coreaudio

import (
	"encoding/binary"
	"math"
)

// PropertyAPI is the boundary to the platform audio hardware service.
// The three primitives exchange raw bytes sized by the caller; a zero
// status means success and any other value is passed through untouched.
// Implementations: the Core Audio backend on darwin, a stub elsewhere,
// and MockAPI for tests.
type PropertyAPI interface {
	GetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) Status
	SetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) Status
	HasProperty(obj ObjectID, addr PropertyAddress) bool
}

// Value32 constrains property values to the fixed 4-byte types Core
// Audio exchanges for the properties this package touches: Float32 for
// volume, SInt32/UInt32 for mute and device IDs. The in-memory layout
// of these types matches what the platform expects, which is the whole
// contract; there is no runtime type tag.
type Value32 interface {
	float32 | int32 | uint32
}

// GetProperty reads one property value from an object. The value is
// zero-initialized and only returned when the platform reports success.
func GetProperty[T Value32](api PropertyAPI, obj ObjectID, prop Property) (T, error) {
	var zero T
	buf := make([]byte, 4)
	if status := api.GetPropertyData(obj, prop.Address(), buf); status != StatusOK {
		return zero, &Error{Status: status}
	}
	return fromBits[T](binary.NativeEndian.Uint32(buf)), nil
}

// SetProperty writes one property value to an object.
func SetProperty[T Value32](api PropertyAPI, obj ObjectID, prop Property, value T) error {
	buf := make([]byte, 4)
	binary.NativeEndian.PutUint32(buf, toBits(value))
	if status := api.SetPropertyData(obj, prop.Address(), buf); status != StatusOK {
		return &Error{Status: status}
	}
	return nil
}

// HasProperty reports whether the object exposes the property. The
// platform query has no error path.
func HasProperty(api PropertyAPI, obj ObjectID, prop Property) bool {
	return api.HasProperty(obj, prop.Address())
}

func toBits[T Value32](v T) uint32 {
	switch v := any(v).(type) {
	case float32:
		return math.Float32bits(v)
	case int32:
		return uint32(v)
	case uint32:
		return v
	}
	panic("unreachable")
}

func fromBits[T Value32](bits uint32) T {
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(math.Float32frombits(bits)).(T)
	case int32:
		return any(int32(bits)).(T)
	case uint32:
		return any(bits).(T)
	}
	panic("unreachable")
}
