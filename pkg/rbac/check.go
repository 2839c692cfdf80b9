package rbac

import "context"

// Check binds a required-role set to a session reader. Each call to Allowed
// re-reads the reader, so role changes are observed without rebuilding the
// Check.
type Check struct {
	reader   SessionReader
	required []string
}

// NewCheck captures a copy of required; later changes to the caller's slice
// do not affect the Check.
func NewCheck(reader SessionReader, required ...string) *Check {
	return &Check{
		reader:   reader,
		required: append([]string(nil), required...),
	}
}

// Required returns a copy of the captured required roles.
func (c *Check) Required() []string {
	if c == nil {
		return nil
	}
	return append([]string(nil), c.required...)
}

// Allowed evaluates the captured requirement against the reader's current roles.
func (c *Check) Allowed(ctx context.Context) bool {
	if c == nil || c.reader == nil {
		return false
	}
	assigned, err := c.currentRoles(ctx)
	if err != nil {
		return false
	}
	return HasAccess(c.required, assigned)
}

// currentRoles reads the reader inside a recover boundary; a panicking reader
// is reported as an error.
func (c *Check) currentRoles(ctx context.Context) (roles []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			roles, err = nil, errReaderPanic
		}
	}()
	return c.reader.CurrentRoles(ctx)
}
