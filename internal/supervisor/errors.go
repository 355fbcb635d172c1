package supervisor

import "fmt"

// portInUseError signals that the requested port is already bound, either by
// a tracked gateway or an unrelated listener.
type portInUseError struct{ port int }

func (e portInUseError) Error() string {
	return fmt.Sprintf("port %d is already in use; stop the running gateway or pick another port", e.port)
}

// IsPortInUse reports whether err indicates an occupied port.
func IsPortInUse(err error) bool {
	_, ok := err.(portInUseError)
	return ok
}

// missingRuntimeError signals that the interpreter or the gateway source tree
// needed to start the server is absent.
type missingRuntimeError struct{ what string }

func (e missingRuntimeError) Error() string {
	return fmt.Sprintf("cannot start gateway: %s; run the installer first", e.what)
}

// IsMissingRuntime reports whether err indicates an absent runtime.
func IsMissingRuntime(err error) bool {
	_, ok := err.(missingRuntimeError)
	return ok
}

// notFoundError signals a stop request for a process that is no longer alive.
// Callers treat it as already-stopped, distinct from a successful stop.
type notFoundError struct{ pid int }

func (e notFoundError) Error() string {
	return fmt.Sprintf("no gateway process with pid %d is alive", e.pid)
}

// IsNotFound reports whether err indicates a stale or already-stopped process.
func IsNotFound(err error) bool {
	_, ok := err.(notFoundError)
	return ok
}
