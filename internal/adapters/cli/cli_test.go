package cli

import (
	"testing"

	"hotel-inventory/internal/app"
	"hotel-inventory/internal/core"
)

func TestCommandCapability_StaffCannotApplyCounts(t *testing.T) {
	authz := app.NewRoleAuthorizer()

	module, action, ok := commandCapability("apply-count")
	if !ok {
		t.Fatal("apply-count should require a capability")
	}
	if err := authz.Authorize(core.RoleStaff, module, action); err == nil {
		t.Error("staff should not be able to apply counts")
	}
	if err := authz.Authorize(core.RoleManager, module, action); err != nil {
		t.Errorf("manager should be able to apply counts: %v", err)
	}
}

func TestCommandCapability_EveryCommandMapped(t *testing.T) {
	for _, cmd := range []string{
		"stock", "alerts", "onhand", "suggest", "receive", "issue", "transfer",
		"adjust", "requisitions", "pick", "counts", "apply-count",
	} {
		if _, _, ok := commandCapability(cmd); !ok {
			t.Errorf("%s has no capability mapping", cmd)
		}
	}
	if _, _, ok := commandCapability("bogus"); ok {
		t.Error("unknown command should not map to a capability")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Bath Towel", 22); got != "Bath Towel" {
		t.Errorf("short string changed: %q", got)
	}
	if got := truncate("Housekeeping Closet 3", 10); got != "Housekeep~" {
		t.Errorf("truncate = %q", got)
	}
}
