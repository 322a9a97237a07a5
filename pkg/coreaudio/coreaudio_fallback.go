//go:build !darwin || !cgo

package coreaudio

// unsupportedAPI stands in on platforms without Core Audio. Every call
// fails with the unsupported-operation status so callers see a normal
// platform error instead of a build-time hole.
type unsupportedAPI struct{}

// SystemAPI returns the platform property backend. On this platform
// there is none, so every operation reports StatusUnsupported.
func SystemAPI() PropertyAPI {
	return unsupportedAPI{}
}

func (unsupportedAPI) GetPropertyData(ObjectID, PropertyAddress, []byte) Status {
	return StatusUnsupported
}

func (unsupportedAPI) SetPropertyData(ObjectID, PropertyAddress, []byte) Status {
	return StatusUnsupported
}

func (unsupportedAPI) HasProperty(ObjectID, PropertyAddress) bool {
	return false
}
