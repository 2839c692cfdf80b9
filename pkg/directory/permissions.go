package directory

import (
	"github.com/milan604/hr-console/pkg/permissions"
	"github.com/milan604/hr-console/pkg/roles"
)

const service = "hr"

// Permission codes guarding the directory routes.
var (
	PermEmployeesRead   = permissions.GenerateCode(service, "employees", "read")
	PermEmployeesWrite  = permissions.GenerateCode(service, "employees", "write")
	PermEmployeesDelete = permissions.GenerateCode(service, "employees", "delete")
	PermRolesManage     = permissions.GenerateCode(service, "roles", "manage")
)

// Permissions returns the catalog of directory actions and their default
// required roles. Deployments override the roles through access.rules.
func Permissions() *permissions.Catalog {
	return permissions.NewCatalog([]permissions.Definition{
		{
			Reference:     permissions.Reference{Service: service, Category: "employees", Action: "read"},
			Name:          "View employees",
			RequiredRoles: []string{roles.HRViewer, roles.HRManager, roles.Admin},
		},
		{
			Reference:     permissions.Reference{Service: service, Category: "employees", Action: "write"},
			Name:          "Edit employees",
			RequiredRoles: []string{roles.HRManager, roles.Admin},
		},
		{
			Reference:     permissions.Reference{Service: service, Category: "employees", Action: "delete"},
			Name:          "Delete employees",
			RequiredRoles: []string{roles.Admin},
		},
		{
			Reference:     permissions.Reference{Service: service, Category: "roles", Action: "manage"},
			Name:          "Manage role assignments",
			RequiredRoles: []string{roles.Admin},
		},
	})
}
