package coreaudio

import (
	"errors"
	"testing"
)

func TestDefaultOutputDevice(t *testing.T) {
	t.Run("Binds Current Default", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(42, 1, 2)
		api.SetDefaultOutputDevice(42)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		if dev.ID() != 42 {
			t.Errorf("Expected device ID 42, got %d", dev.ID())
		}

		channels := dev.Channels()
		if len(channels) != 2 || channels[0] != 1 || channels[1] != 2 {
			t.Errorf("Expected channels [1 2], got %v", channels)
		}
	})

	t.Run("No Default Device", func(t *testing.T) {
		api := NewMockAPI()

		_, err := DefaultOutputDevice(api)
		if err == nil {
			t.Fatal("Expected error when system object has no default device")
		}
		if !IsStatus(err, StatusUnknownProperty) {
			t.Errorf("Expected unknown property status, got: %v", err)
		}
	})
}

func TestChannelScan(t *testing.T) {
	t.Run("Contiguous Channels", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(7, 0, 1, 2)
		api.SetDefaultOutputDevice(7)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		channels := dev.Channels()
		if len(channels) != 3 {
			t.Fatalf("Expected 3 channels, got %v", channels)
		}
		for i, want := range []uint32{0, 1, 2} {
			if channels[i] != want {
				t.Errorf("Expected channel %d at index %d, got %d", want, i, channels[i])
			}
		}
	})

	t.Run("Scans Past Single Gap", func(t *testing.T) {
		// Channel 1 missing out of {0,2,3}: one miss does not stop
		// the scan because the failure budget is 3.
		api := NewMockAPI()
		api.AddOutputDevice(7, 0, 2, 3)
		api.SetDefaultOutputDevice(7)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		channels := dev.Channels()
		if len(channels) != 3 || channels[0] != 0 || channels[1] != 2 || channels[2] != 3 {
			t.Errorf("Expected channels [0 2 3], got %v", channels)
		}
	})

	t.Run("Bounded Probe Count", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(7, 0, 1)
		api.SetDefaultOutputDevice(7)

		if _, err := DefaultOutputDevice(api); err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		// 2 hits plus the 3 tolerated misses.
		if got := api.HasCalls(); got != 5 {
			t.Errorf("Expected 5 existence probes, got %d", got)
		}
	})

	t.Run("Ascending Without Duplicates", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(7, 0, 1, 3, 5)
		api.SetDefaultOutputDevice(7)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}

		channels := dev.Channels()
		for i := 1; i < len(channels); i++ {
			if channels[i] <= channels[i-1] {
				t.Fatalf("Expected strictly ascending channels, got %v", channels)
			}
		}
	})

	t.Run("Zero Channels", func(t *testing.T) {
		// Default device exists but exposes no volume property at all.
		api := NewMockAPI()
		api.AddOutputDevice(9)
		api.SetDefaultOutputDevice(9)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if len(dev.Channels()) != 0 {
			t.Errorf("Expected no channels, got %v", dev.Channels())
		}
	})
}

func TestVolume(t *testing.T) {
	newDevice := func(t *testing.T, channels ...uint32) (*MockAPI, *OutputDevice) {
		t.Helper()
		api := NewMockAPI()
		api.AddOutputDevice(42, channels...)
		api.SetDefaultOutputDevice(42)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Failed to bind device: %v", err)
		}
		return api, dev
	}

	t.Run("Set Then Get Round Trip", func(t *testing.T) {
		_, dev := newDevice(t, 1, 2)

		for _, pct := range []uint8{0, 1, 37, 50, 99, 100} {
			if err := dev.SetVolume(pct); err != nil {
				t.Fatalf("SetVolume(%d): %v", pct, err)
			}

			got, err := dev.Volume()
			if err != nil {
				t.Fatalf("Volume() after SetVolume(%d): %v", pct, err)
			}

			diff := int(got) - int(pct)
			if diff < -1 || diff > 1 {
				t.Errorf("SetVolume(%d) read back %d, want within 1", pct, got)
			}
		}
	})

	t.Run("Clamps Above 100", func(t *testing.T) {
		_, dev := newDevice(t, 1, 2)

		if err := dev.SetVolume(150); err != nil {
			t.Fatalf("SetVolume(150): %v", err)
		}

		got, err := dev.Volume()
		if err != nil {
			t.Fatalf("Volume(): %v", err)
		}
		if got != 100 {
			t.Errorf("Expected clamped volume 100, got %d", got)
		}
	})

	t.Run("Averages Unequal Channels", func(t *testing.T) {
		api, dev := newDevice(t, 1, 2)

		api.SetChannelVolume(42, 1, 0.20)
		api.SetChannelVolume(42, 2, 0.60)

		got, err := dev.Volume()
		if err != nil {
			t.Fatalf("Volume(): %v", err)
		}
		if got != 40 {
			t.Errorf("Expected average 40, got %d", got)
		}
	})

	t.Run("Read Failure Short Circuits", func(t *testing.T) {
		api, dev := newDevice(t, 1, 2)
		api.FailGet(42, PropVolume.WithElement(2), -10851)

		_, err := dev.Volume()
		if err == nil {
			t.Fatal("Expected error from failing channel read")
		}
		if !IsStatus(err, -10851) {
			t.Errorf("Expected status -10851 passthrough, got: %v", err)
		}
	})

	t.Run("Write Failure Aborts", func(t *testing.T) {
		api, dev := newDevice(t, 1, 2)
		api.FailSet(42, PropVolume.WithElement(1), -10851)

		err := dev.SetVolume(80)
		if err == nil {
			t.Fatal("Expected error from failing channel write")
		}
		if !IsStatus(err, -10851) {
			t.Errorf("Expected status -10851 passthrough, got: %v", err)
		}
	})

	t.Run("Zero Channels Is Explicit Error", func(t *testing.T) {
		_, dev := newDevice(t)

		if _, err := dev.Volume(); !errors.Is(err, ErrNoChannels) {
			t.Errorf("Expected ErrNoChannels from Volume, got: %v", err)
		}
		if err := dev.SetVolume(50); !errors.Is(err, ErrNoChannels) {
			t.Errorf("Expected ErrNoChannels from SetVolume, got: %v", err)
		}
	})
}

func TestMute(t *testing.T) {
	t.Run("Set And Read Back", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(42, 1, 2)
		api.SetDefaultOutputDevice(42)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Failed to bind device: %v", err)
		}

		if err := dev.SetMute(true); err != nil {
			t.Fatalf("SetMute(true): %v", err)
		}
		// Reads go to the master element, which per-channel writes do
		// not touch; mirror the flag there like real hardware does.
		api.SetMuteValue(42, ElementMaster, true)

		muted, err := dev.Muted()
		if err != nil {
			t.Fatalf("Muted(): %v", err)
		}
		if !muted {
			t.Error("Expected device to be muted")
		}

		if err := dev.SetMute(false); err != nil {
			t.Fatalf("SetMute(false): %v", err)
		}
		api.SetMuteValue(42, ElementMaster, false)

		muted, err = dev.Muted()
		if err != nil {
			t.Fatalf("Muted(): %v", err)
		}
		if muted {
			t.Error("Expected device to be unmuted")
		}
	})

	t.Run("Per Channel Writes Set Every Channel", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(42, 1, 2)
		api.SetDefaultOutputDevice(42)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Failed to bind device: %v", err)
		}

		if err := dev.SetMute(true); err != nil {
			t.Fatalf("SetMute(true): %v", err)
		}

		for _, ch := range []uint32{1, 2} {
			bits, ok := api.Value(42, PropMute.WithElement(ch))
			if !ok || bits != 1 {
				t.Errorf("Expected mute=1 on channel %d, got %d (present=%t)", ch, bits, ok)
			}
		}
	})

	t.Run("Master Fallback On Channel Failure", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(42, 1, 2)
		api.SetDefaultOutputDevice(42)
		api.FailSet(42, PropMute.WithElement(1), -10851)
		api.FailSet(42, PropMute.WithElement(2), -10851)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Failed to bind device: %v", err)
		}

		// Both channel writes fail but the master write succeeds, so
		// the overall operation must succeed.
		if err := dev.SetMute(true); err != nil {
			t.Fatalf("Expected master fallback to succeed, got: %v", err)
		}

		bits, ok := api.Value(42, PropMute)
		if !ok || bits != 1 {
			t.Errorf("Expected master mute=1, got %d (present=%t)", bits, ok)
		}
	})

	t.Run("Fallback Failure Propagates", func(t *testing.T) {
		api := NewMockAPI()
		api.AddOutputDevice(42, 1)
		api.SetDefaultOutputDevice(42)
		api.FailSet(42, PropMute.WithElement(1), -10851)
		api.FailSet(42, PropMute, -10851)

		dev, err := DefaultOutputDevice(api)
		if err != nil {
			t.Fatalf("Failed to bind device: %v", err)
		}

		err = dev.SetMute(true)
		if err == nil {
			t.Fatal("Expected error when both channel and master writes fail")
		}
		if !IsStatus(err, -10851) {
			t.Errorf("Expected status -10851 passthrough, got: %v", err)
		}
	})
}

func TestIsDefault(t *testing.T) {
	api := NewMockAPI()
	api.AddOutputDevice(42, 1, 2)
	api.AddOutputDevice(43, 1, 2)
	api.SetDefaultOutputDevice(42)

	dev, err := DefaultOutputDevice(api)
	if err != nil {
		t.Fatalf("Failed to bind device: %v", err)
	}

	t.Run("Fresh Instance Is Default", func(t *testing.T) {
		isDefault, err := dev.IsDefault()
		if err != nil {
			t.Fatalf("IsDefault(): %v", err)
		}
		if !isDefault {
			t.Error("Expected freshly bound device to be default")
		}
	})

	t.Run("Stale After Default Change", func(t *testing.T) {
		api.SetDefaultOutputDevice(43)

		isDefault, err := dev.IsDefault()
		if err != nil {
			t.Fatalf("IsDefault(): %v", err)
		}
		if isDefault {
			t.Error("Expected device to no longer be default")
		}

		// The stale instance still addresses the old device.
		if dev.ID() != 42 {
			t.Errorf("Expected instance to stay bound to 42, got %d", dev.ID())
		}
	})
}
