package roles

// Built-in role names.
const (
	Admin          = "admin"
	HRManager      = "hr-manager"
	HRViewer       = "hr-viewer"
	PayrollOfficer = "payroll-officer"
	Employee       = "employee"
)

// Catalog represents a collection of role definitions
type Catalog struct {
	definitions []Definition
	byName      map[string]Definition
}

// NewCatalog creates a new roles catalog from definitions
func NewCatalog(definitions []Definition) *Catalog {
	c := &Catalog{
		definitions: definitions,
		byName:      make(map[string]Definition, len(definitions)),
	}
	for _, def := range definitions {
		c.byName[def.Name] = def
	}
	return c
}

// DefaultCatalog returns the roles hr-console ships with.
func DefaultCatalog() *Catalog {
	return NewCatalog([]Definition{
		{Name: Admin, Description: "Full administrative access"},
		{Name: HRManager, Description: "Manage employee records"},
		{Name: HRViewer, Description: "Read-only access to employee records"},
		{Name: PayrollOfficer, Description: "Manage payroll data"},
		{Name: Employee, Description: "Self-service access"},
	})
}

// Definitions returns all role definitions in the catalog
func (c *Catalog) Definitions() []Definition {
	return c.definitions
}

// ByName returns a role definition by name
func (c *Catalog) ByName(name string) (Definition, bool) {
	def, ok := c.byName[name]
	return def, ok
}

// Contains reports whether name is a catalog role.
func (c *Catalog) Contains(name string) bool {
	_, ok := c.byName[name]
	return ok
}

// Names returns all role names in the catalog
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.definitions))
	for _, def := range c.definitions {
		names = append(names, def.Name)
	}
	return names
}

// Count returns the number of role definitions in the catalog
func (c *Catalog) Count() int {
	return len(c.definitions)
}
