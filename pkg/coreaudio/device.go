package coreaudio

// channelScanMisses bounds the channel scan: probing stops once this
// many element probes have missed in total.
const channelScanMisses = 3

// OutputDevice controls one audio output device. It is an immutable
// snapshot: the device ID and channel list are fixed at construction,
// so an instance keeps addressing the same device even after the user
// picks a new system default. Callers that care should poll IsDefault
// and construct a fresh instance when it reports false.
//
// Instances hold no locks and are safe for concurrent readers. Nothing
// coordinates writes against the same physical device from multiple
// instances; the platform serializes individual property calls but the
// multi-channel loops here are not atomic as a whole.
type OutputDevice struct {
	api      PropertyAPI
	id       DeviceID
	channels []uint32
}

// DefaultOutputDevice binds a controller to the current system default
// output device and discovers its addressable channels.
func DefaultOutputDevice(api PropertyAPI) (*OutputDevice, error) {
	id, err := defaultOutputDeviceID(api)
	if err != nil {
		return nil, err
	}

	return &OutputDevice{
		api:      api,
		id:       id,
		channels: scanChannels(api, id),
	}, nil
}

// ID returns the platform device handle this controller is bound to.
func (d *OutputDevice) ID() DeviceID {
	return d.id
}

// Channels returns the channel elements discovered at construction,
// in ascending order. May be empty.
func (d *OutputDevice) Channels() []uint32 {
	out := make([]uint32, len(d.channels))
	copy(out, d.channels)
	return out
}

// Volume returns the device volume as a percentage. The platform only
// exposes volume per channel, so the value is the truncated average of
// all channel volumes; expect an error of up to one percent against
// what was last set. The first failed channel read aborts the whole
// operation.
func (d *OutputDevice) Volume() (uint8, error) {
	if len(d.channels) == 0 {
		return 0, ErrNoChannels
	}

	var sum float32
	for _, ch := range d.channels {
		scalar, err := GetProperty[float32](d.api, d.id, PropVolume.WithElement(ch))
		if err != nil {
			return 0, err
		}
		sum += scalar * 100.0
	}

	return uint8(sum / float32(len(d.channels))), nil
}

// SetVolume sets the volume on every channel. pct is clamped to
// [0, 100]. The first failed write aborts the loop; channels already
// written stay at the new level, there is no rollback.
func (d *OutputDevice) SetVolume(pct uint8) error {
	if len(d.channels) == 0 {
		return ErrNoChannels
	}

	if pct > 100 {
		pct = 100
	}
	scalar := float32(pct) / 100.0

	for _, ch := range d.channels {
		if err := SetProperty(d.api, d.id, PropVolume.WithElement(ch), scalar); err != nil {
			return err
		}
	}

	return nil
}

// Muted reports whether the device is muted, read at the master
// element only.
func (d *OutputDevice) Muted() (bool, error) {
	value, err := GetProperty[int32](d.api, d.id, PropMute)
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

// SetMute sets the mute flag on every channel. Some devices only
// support mute at the master element, so if any per-channel write
// fails the master element is written once instead and that result is
// returned. When all per-channel writes succeed the master element is
// never touched.
func (d *OutputDevice) SetMute(mute bool) error {
	var value uint32
	if mute {
		value = 1
	}

	failed := false
	for _, ch := range d.channels {
		if err := SetProperty(d.api, d.id, PropMute.WithElement(ch), value); err != nil {
			failed = true
		}
	}

	if failed || len(d.channels) == 0 {
		return SetProperty(d.api, d.id, PropMute.WithElement(ElementMaster), value)
	}

	return nil
}

// IsDefault reports whether this controller's device is still the
// system default output device.
func (d *OutputDevice) IsDefault() (bool, error) {
	id, err := defaultOutputDeviceID(d.api)
	if err != nil {
		return false, err
	}
	return id == d.id, nil
}

func defaultOutputDeviceID(api PropertyAPI) (DeviceID, error) {
	id, err := GetProperty[uint32](api, SystemObjectID, PropDefaultOutputDevice)
	if err != nil {
		return 0, err
	}
	return DeviceID(id), nil
}

// scanChannels probes volume support at element 0, 1, 2, ... and
// records every element that answers. The scan stops after
// channelScanMisses probes have missed in total; the counter never
// resets on a hit, which tolerates small gaps in channel numbering
// while bounding the scan to len(channels)+channelScanMisses probes.
func scanChannels(api PropertyAPI, id DeviceID) []uint32 {
	var channels []uint32
	misses := 0

	for element := uint32(0); misses < channelScanMisses; element++ {
		if HasProperty(api, id, PropVolume.WithElement(element)) {
			channels = append(channels, element)
		} else {
			misses++
		}
	}

	return channels
}
