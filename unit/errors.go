package unit

import "errors"

// ErrCapabilityWithheld is returned when a caller attempts an operation
// not permitted by the session's current Capabilities, e.g. calling
// read_track on a session in update mode or one that needs a firmware
// update, or update_firmware on a session in normal mode.
var ErrCapabilityWithheld = errors.New("unit: operation not available in this capability mode")
