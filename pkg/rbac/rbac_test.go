package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasAccess(t *testing.T) {
	tests := []struct {
		name     string
		required []string
		assigned []string
		want     bool
	}{
		{"substring match", []string{"admin"}, []string{"super-admin"}, true},
		{"exact match", []string{"admin"}, []string{"admin"}, true},
		{"no match", []string{"admin"}, []string{"viewer"}, false},
		{"empty required denies", []string{}, []string{"admin"}, false},
		{"nil required denies", nil, []string{"admin"}, false},
		{"any of several required", []string{"admin", "hr"}, []string{"hr-manager"}, true},
		{"nothing assigned", []string{"admin"}, nil, false},
		{"both empty", nil, nil, false},
		{"containment is one way", []string{"super-admin"}, []string{"admin"}, false},
		{"case sensitive", []string{"Admin"}, []string{"admin"}, false},
		{"empty assigned string", []string{"admin"}, []string{""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasAccess(tt.required, tt.assigned))
		})
	}
}

func TestHasAccessDoesNotMutateInputs(t *testing.T) {
	required := []string{"hr", "admin"}
	assigned := []string{"viewer", "hr-manager"}

	HasAccess(required, assigned)

	assert.Equal(t, []string{"hr", "admin"}, required)
	assert.Equal(t, []string{"viewer", "hr-manager"}, assigned)
}

func TestHasAccessOrderIndependent(t *testing.T) {
	required := []string{"payroll", "admin", "hr"}
	assigned := []string{"employee", "viewer", "hr-manager"}

	want := HasAccess(required, assigned)
	for _, r := range permutations(required) {
		for _, a := range permutations(assigned) {
			assert.Equal(t, want, HasAccess(r, a), "required=%v assigned=%v", r, a)
		}
	}
}

func TestHasAccessIdempotent(t *testing.T) {
	required := []string{"admin"}
	assigned := []string{"co-administration"}

	first := HasAccess(required, assigned)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, HasAccess(required, assigned))
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusAuthenticated.Valid())
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusUnauthenticated.Valid())
	assert.False(t, Status("expired").Valid())
}

func TestStrings(t *testing.T) {
	assert.Equal(t, []string{"admin", "hr"}, Strings(Role("admin"), Role("hr")))
	assert.Empty(t, Strings())
}

func permutations(in []string) [][]string {
	if len(in) <= 1 {
		return [][]string{append([]string(nil), in...)}
	}
	var out [][]string
	for i := range in {
		rest := make([]string, 0, len(in)-1)
		rest = append(rest, in[:i]...)
		rest = append(rest, in[i+1:]...)
		for _, p := range permutations(rest) {
			out = append(out, append([]string{in[i]}, p...))
		}
	}
	return out
}
