//go:build darwin && cgo

package coreaudio

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation

#include <CoreAudio/CoreAudio.h>
*/
import "C"
import "unsafe"

// coreAudioAPI talks to the real Core Audio hardware service. Every
// call is a synchronous round-trip into the audio subsystem; there is
// no timeout, a blocked call blocks the caller.
type coreAudioAPI struct{}

// SystemAPI returns the native Core Audio property backend.
func SystemAPI() PropertyAPI {
	return coreAudioAPI{}
}

func cAddress(addr PropertyAddress) C.AudioObjectPropertyAddress {
	return C.AudioObjectPropertyAddress{
		mSelector: C.AudioObjectPropertySelector(addr.Selector),
		mScope:    C.AudioObjectPropertyScope(addr.Scope),
		mElement:  C.AudioObjectPropertyElement(addr.Element),
	}
}

func (coreAudioAPI) GetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) Status {
	caddr := cAddress(addr)
	size := C.UInt32(len(data))
	status := C.AudioObjectGetPropertyData(C.AudioObjectID(obj), &caddr,
		0, nil, &size, unsafe.Pointer(&data[0]))
	return Status(status)
}

func (coreAudioAPI) SetPropertyData(obj ObjectID, addr PropertyAddress, data []byte) Status {
	caddr := cAddress(addr)
	status := C.AudioObjectSetPropertyData(C.AudioObjectID(obj), &caddr,
		0, nil, C.UInt32(len(data)), unsafe.Pointer(&data[0]))
	return Status(status)
}

func (coreAudioAPI) HasProperty(obj ObjectID, addr PropertyAddress) bool {
	caddr := cAddress(addr)
	return C.AudioObjectHasProperty(C.AudioObjectID(obj), &caddr) != 0
}
