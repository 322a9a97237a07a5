// Package coreaudio controls the system default audio output device
// through the Core Audio object property API: volume, mute and
// default-device identity. It is a control-plane shim only; no audio
// data passes through it.
package coreaudio

// ObjectID identifies a Core Audio object. Device handles are plain
// values assigned by the platform; nothing here owns or releases them.
type ObjectID uint32

// DeviceID identifies one audio device.
type DeviceID = ObjectID

// Status is a raw OSStatus code from the audio hardware service.
// Zero means success; any other value is opaque to this package.
type Status int32

// Well-known Core Audio constants. The selectors and scopes are
// four-character codes packed big-endian into 32 bits.
const (
	// SystemObjectID is the well-known handle for the audio subsystem
	// itself (kAudioObjectSystemObject).
	SystemObjectID ObjectID = 1

	// StatusOK is kAudioHardwareNoError.
	StatusOK Status = 0

	// StatusUnsupported is kAudioHardwareUnsupportedOperationError
	// ('unop'), returned by the stub backend on platforms without
	// Core Audio.
	StatusUnsupported Status = 0x756E6F70

	// StatusUnknownProperty is kAudioHardwareUnknownPropertyError
	// ('who?').
	StatusUnknownProperty Status = 0x77686F3F

	selectorVolumeScalar        uint32 = 0x766F6C6D // 'volm' kAudioDevicePropertyVolumeScalar
	selectorMute                uint32 = 0x6D757465 // 'mute' kAudioDevicePropertyMute
	selectorDefaultOutputDevice uint32 = 0x644F7574 // 'dOut' kAudioHardwarePropertyDefaultOutputDevice

	scopeOutput uint32 = 0x6F757470 // 'outp' kAudioDevicePropertyScopeOutput
	scopeGlobal uint32 = 0x676C6F62 // 'glob' kAudioObjectPropertyScopeGlobal

	// ElementMaster addresses the whole device rather than one channel.
	ElementMaster uint32 = 0
)

// PropertyAddress is the (selector, scope, element) triple Core Audio
// uses to name one property of one object. Element 0 is the master
// (whole-device) channel; elements >= 1 address individual channels.
type PropertyAddress struct {
	Selector uint32
	Scope    uint32
	Element  uint32
}

// Property is a logical device property. The predefined values cover
// everything the controller needs; CustomProperty is the escape hatch
// for callers that have to build an exact address themselves.
type Property struct {
	addr PropertyAddress
}

var (
	// PropVolume is the per-channel scalar volume (0.0 - 1.0) of an
	// output device.
	PropVolume = Property{PropertyAddress{selectorVolumeScalar, scopeOutput, ElementMaster}}

	// PropMute is the mute flag of an output device.
	PropMute = Property{PropertyAddress{selectorMute, scopeOutput, ElementMaster}}

	// PropDefaultOutputDevice is the system object property holding the
	// current default output device ID.
	PropDefaultOutputDevice = Property{PropertyAddress{selectorDefaultOutputDevice, scopeGlobal, ElementMaster}}
)

// CustomProperty wraps a raw property address.
func CustomProperty(addr PropertyAddress) Property {
	return Property{addr: addr}
}

// Address returns the underlying property address.
func (p Property) Address() PropertyAddress {
	return p.addr
}

// WithElement returns a copy of the property addressing the given
// channel element. The channel scan and the per-channel volume/mute
// loops use this to vary only the element field.
func (p Property) WithElement(element uint32) Property {
	p.addr.Element = element
	return p
}
