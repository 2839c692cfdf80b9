package permissions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milan604/hr-console/pkg/config"
	"github.com/milan604/hr-console/pkg/logger"
)

func testCatalog() *Catalog {
	return NewCatalog([]Definition{
		{Reference: Reference{Service: "HR", Category: "Employees", Action: "Read"}, Name: "Read employees", RequiredRoles: []string{"hr", "admin"}},
		{Reference: Reference{Service: "hr", Category: "employees", Action: "delete"}, Name: "Delete employees", RequiredRoles: []string{"admin"}},
	})
}

func TestGenerateCode(t *testing.T) {
	assert.Equal(t, "hr-employees-read", GenerateCode(" HR ", "Employees", "Read"))
	assert.Equal(t, "hr-payrollruns-approve", GenerateCode("hr", "Payroll Runs", "approve"))
}

func TestCatalog(t *testing.T) {
	c := testCatalog()
	assert.Equal(t, 2, c.Count())
	assert.Equal(t, []string{"hr-employees-read", "hr-employees-delete"}, c.Codes())

	def, ok := c.ByCode("hr-employees-delete")
	require.True(t, ok)
	assert.Equal(t, "Delete employees", def.Name)

	_, ok = c.ByName("Read employees")
	assert.True(t, ok)
	_, ok = c.ByCode("missing")
	assert.False(t, ok)
}

func TestStoreLoadFromCatalog(t *testing.T) {
	store := NewStore(LoaderFromCatalog(testCatalog()))
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, loaded, 2)

	assert.Equal(t, []string{"hr", "admin"}, store.RequiredRoles("hr-employees-read"))
	assert.Equal(t, []string{"hr", "admin"}, store.RequiredRoles("  hr-employees-read "))
	assert.Nil(t, store.RequiredRoles("hr-payroll-approve"))
	assert.Nil(t, store.RequiredRoles(""))
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(nil)
	roles := []string{"admin"}
	store.Replace(map[string]Metadata{"a-b-c": {RequiredRoles: roles}})
	roles[0] = "mutated"

	got := store.RequiredRoles("a-b-c")
	assert.Equal(t, []string{"admin"}, got)
	got[0] = "again"
	assert.Equal(t, []string{"admin"}, store.RequiredRoles("a-b-c"))

	snap := store.Snapshot()
	assert.Equal(t, "a-b-c", snap["a-b-c"].Code)
}

func TestStoreLoaderErrors(t *testing.T) {
	_, err := NewStore(nil).Load(context.Background())
	assert.ErrorIs(t, err, ErrLoaderNotConfigured)

	boom := errors.New("boom")
	store := NewStore(func(context.Context) (map[string]Metadata, error) { return nil, boom })
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.Count())
}

func TestLoaderFromConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
access:
  rules:
    hr-employees-delete: [hr-manager, admin]
    hr-reports-export: ["payroll-admin, admin"]
`), 0o600))
	cfg := config.New(config.WithFile(path))

	store := NewStore(nil)
	require.NoError(t, Bootstrap(context.Background(), testCatalog(), cfg, logger.NewNop(), store))

	assert.Equal(t, 3, store.Count())
	assert.Equal(t, []string{"hr", "admin"}, store.RequiredRoles("hr-employees-read"))
	assert.Equal(t, []string{"hr-manager", "admin"}, store.RequiredRoles("hr-employees-delete"))
	assert.Equal(t, []string{"payroll-admin", "admin"}, store.RequiredRoles("hr-reports-export"))

	meta, ok := store.Lookup("hr-employees-delete")
	require.True(t, ok)
	assert.Equal(t, "Delete employees", meta.Name)
}

func TestBootstrapWithoutConfig(t *testing.T) {
	store := NewStore(nil)
	require.NoError(t, Bootstrap(context.Background(), testCatalog(), nil, nil, store))
	assert.Equal(t, 2, store.Count())

	assert.Error(t, Bootstrap(context.Background(), testCatalog(), nil, nil, nil))
	assert.Error(t, Bootstrap(context.Background(), nil, nil, nil, NewStore(nil)))
}
