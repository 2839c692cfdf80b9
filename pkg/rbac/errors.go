package rbac

import "errors"

var errReaderPanic = errors.New("rbac: session reader panicked")
