package roles

import "strings"

// Definition is a role hr-console knows how to assign.
type Definition struct {
	// Name is the label carried in sessions, e.g. "hr-manager".
	Name string

	Description string
}

// IsValid checks if the role definition is valid
func (d *Definition) IsValid() bool {
	return strings.TrimSpace(d.Name) != "" && !strings.ContainsAny(d.Name, " \t,")
}
