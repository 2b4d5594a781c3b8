package backends

import "github.com/pkg/errors"

var (
	// ErrNoBackend is returned when no engine backend reported a device,
	// device lookups cannot succeed.
	ErrNoBackend = errors.New("no engine backend available")

	// ErrDeviceNotFound is returned when a device name matches nothing on
	// the active backend.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrBackendUnavailable is returned by dynamically loaded backends
	// whose library is not present. The registry skips them quietly.
	ErrBackendUnavailable = errors.New("backend library unavailable")

	// ErrDynamicLoadingUnsupported is returned on platforms where backend
	// libraries cannot be loaded at run time.
	ErrDynamicLoadingUnsupported = errors.New("dynamic backend loading not supported on this platform")
)
