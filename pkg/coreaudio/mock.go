package coreaudio

import (
	"encoding/binary"
	"math"
	"sync"
)

// MockAPI implements PropertyAPI against an in-memory property table.
// It backs the package tests and the daemon's mock mode on machines
// without a usable audio device. Individual get/set calls can be
// scripted to fail with a chosen status.
type MockAPI struct {
	mu     sync.RWMutex
	values map[ObjectID]map[PropertyAddress]uint32

	getFailures map[ObjectID]map[PropertyAddress]Status
	setFailures map[ObjectID]map[PropertyAddress]Status

	getCalls int
	setCalls int
	hasCalls int
}

// NewMockAPI creates an empty mock property table.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		values:      make(map[ObjectID]map[PropertyAddress]uint32),
		getFailures: make(map[ObjectID]map[PropertyAddress]Status),
		setFailures: make(map[ObjectID]map[PropertyAddress]Status),
	}
}

// AddOutputDevice registers a device exposing volume and mute on the
// given channel elements, with volume 0.5 and mute off. The master
// element always accepts mute, matching typical hardware.
func (m *MockAPI) AddOutputDevice(id DeviceID, channels ...uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	props := m.props(id)
	for _, ch := range channels {
		props[PropVolume.WithElement(ch).Address()] = math.Float32bits(0.5)
		props[PropMute.WithElement(ch).Address()] = 0
	}
	props[PropMute.Address()] = 0
}

// SetDefaultOutputDevice makes id the system default output device.
func (m *MockAPI) SetDefaultOutputDevice(id DeviceID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props(SystemObjectID)[PropDefaultOutputDevice.Address()] = uint32(id)
}

// SetChannelVolume sets the stored volume scalar for one channel.
func (m *MockAPI) SetChannelVolume(id DeviceID, channel uint32, scalar float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.props(id)[PropVolume.WithElement(channel).Address()] = math.Float32bits(scalar)
}

// SetMuteValue sets the stored mute flag for one element.
func (m *MockAPI) SetMuteValue(id DeviceID, element uint32, muted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bits uint32
	if muted {
		bits = 1
	}
	m.props(id)[PropMute.WithElement(element).Address()] = bits
}

// RemoveProperty deletes a property, so existence probes miss it.
func (m *MockAPI) RemoveProperty(id DeviceID, prop Property) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.props(id), prop.Address())
}

// FailGet makes reads of one property fail with the given status.
func (m *MockAPI) FailGet(id ObjectID, prop Property, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getFailures[id] == nil {
		m.getFailures[id] = make(map[PropertyAddress]Status)
	}
	m.getFailures[id][prop.Address()] = status
}

// FailSet makes writes of one property fail with the given status.
func (m *MockAPI) FailSet(id ObjectID, prop Property, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setFailures[id] == nil {
		m.setFailures[id] = make(map[PropertyAddress]Status)
	}
	m.setFailures[id][prop.Address()] = status
}

// Value returns the raw stored bits for a property, for assertions.
func (m *MockAPI) Value(id ObjectID, prop Property) (uint32, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bits, ok := m.values[id][prop.Address()]
	return bits, ok
}

// HasCalls returns how many existence probes have been issued.
func (m *MockAPI) HasCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasCalls
}

// props returns the property table for an object, creating it if
// needed. Callers must hold the lock.
func (m *MockAPI) props(id ObjectID) map[PropertyAddress]uint32 {
	if m.values[id] == nil {
		m.values[id] = make(map[PropertyAddress]uint32)
	}
	return m.values[id]
}

// GetPropertyData implements PropertyAPI.
func (m *MockAPI) GetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++

	if status, ok := m.getFailures[obj][addr]; ok {
		return status
	}

	bits, ok := m.values[obj][addr]
	if !ok {
		return StatusUnknownProperty
	}

	binary.NativeEndian.PutUint32(data, bits)
	return StatusOK
}

// SetPropertyData implements PropertyAPI.
func (m *MockAPI) SetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setCalls++

	if status, ok := m.setFailures[obj][addr]; ok {
		return status
	}

	m.props(obj)[addr] = binary.NativeEndian.Uint32(data)
	return StatusOK
}

// HasProperty implements PropertyAPI.
func (m *MockAPI) HasProperty(obj ObjectID, addr PropertyAddress) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasCalls++

	_, ok := m.values[obj][addr]
	return ok
}
