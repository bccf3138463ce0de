package app

import (
	"errors"
	"testing"

	"hotel-inventory/internal/core"
)

func TestRoleAuthorizer(t *testing.T) {
	a := NewRoleAuthorizer()

	tests := []struct {
		role   core.Role
		module Module
		action Action
		allow  bool
	}{
		{core.RoleAdmin, ModuleCatalog, ActionDelete, true},
		{core.RoleAdmin, ModuleCounts, ActionApprove, true},
		{core.RoleManager, ModuleRequisitions, ActionApprove, true},
		{core.RoleManager, ModuleCatalog, ActionEdit, true},
		{core.RoleManager, ModuleCatalog, ActionDelete, false},
		{core.RoleStaff, ModuleReports, ActionView, true},
		{core.RoleStaff, ModuleStock, ActionCreate, true},
		{core.RoleStaff, ModuleCounts, ActionEdit, true},
		{core.RoleStaff, ModuleRequisitions, ActionApprove, false},
		{core.RoleStaff, ModuleCounts, ActionApprove, false},
		{core.RoleStaff, ModuleCatalog, ActionCreate, false},
		{core.Role("guest"), ModuleReports, ActionView, false},
	}

	for _, tc := range tests {
		err := a.Authorize(tc.role, tc.module, tc.action)
		if tc.allow && err != nil {
			t.Errorf("%s %s.%s: expected allow, got %v", tc.role, tc.module, tc.action, err)
		}
		if !tc.allow {
			if err == nil {
				t.Errorf("%s %s.%s: expected deny", tc.role, tc.module, tc.action)
			} else if !errors.Is(err, ErrForbidden) {
				t.Errorf("%s %s.%s: expected ErrForbidden, got %v", tc.role, tc.module, tc.action, err)
			}
		}
	}
}
