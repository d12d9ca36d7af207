// internal/serial/errors.go
package serial

import (
	"errors"
	"io/fs"
	"syscall"

	"go.bug.st/serial"
)

// I/O error taxonomy for the serial link. Callers branch on these with
// errors.Is; every failure a Link returns wraps exactly one of them.
var (
	ErrNotFound         = errors.New("serial port not found")
	ErrBusy             = errors.New("serial port busy")
	ErrPermissionDenied = errors.New("serial port permission denied")
	ErrTimeout          = errors.New("serial read timed out")
	ErrDisconnected     = errors.New("serial port disconnected")
)

// classifyOpenError maps library and OS open failures onto the taxonomy.
func classifyOpenError(err error) error {
	var portErr *serial.PortError
	if errors.As(err, &portErr) {
		switch portErr.Code() {
		case serial.PortNotFound:
			return ErrNotFound
		case serial.PortBusy:
			return ErrBusy
		case serial.PermissionDenied:
			return ErrPermissionDenied
		}
	}

	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOENT) {
		return ErrNotFound
	}
	if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) {
		return ErrPermissionDenied
	}
	if errors.Is(err, syscall.EBUSY) {
		return ErrBusy
	}

	return ErrDisconnected
}
