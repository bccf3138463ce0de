package app

import (
	"errors"
	"fmt"

	"hotel-inventory/internal/core"
)

// Module is a permission area.
type Module string

const (
	ModuleCatalog      Module = "catalog"
	ModuleStock        Module = "stock"
	ModuleVendors      Module = "vendors"
	ModuleRequisitions Module = "requisitions"
	ModuleReceiving    Module = "receiving"
	ModuleCounts       Module = "counts"
	ModuleReports      Module = "reports"
)

// Action is what an actor wants to do within a Module.
type Action string

const (
	ActionView    Action = "view"
	ActionCreate  Action = "create"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
	ActionApprove Action = "approve"
)

// ErrForbidden is wrapped by every authorization failure.
var ErrForbidden = errors.New("forbidden")

// ForbiddenError names the capability the role lacks.
type ForbiddenError struct {
	Role   core.Role
	Module Module
	Action Action
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q may not %s %s", e.Role, e.Action, e.Module)
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// Authorizer decides whether a role may perform an action. It never inspects
// entity state; that is the core's job.
type Authorizer interface {
	Authorize(role core.Role, module Module, action Action) error
}

type capability struct {
	module Module
	action Action
}

// RoleAuthorizer is a static capability map. Admins bypass it.
type RoleAuthorizer struct {
	grants map[core.Role]map[capability]bool
}

// NewRoleAuthorizer returns the default capability map.
func NewRoleAuthorizer() *RoleAuthorizer {
	all := []Module{ModuleCatalog, ModuleStock, ModuleVendors, ModuleRequisitions, ModuleReceiving, ModuleCounts, ModuleReports}

	staff := map[capability]bool{}
	for _, m := range all {
		staff[capability{m, ActionView}] = true
	}
	for _, c := range []capability{
		{ModuleStock, ActionCreate},
		{ModuleRequisitions, ActionCreate},
		{ModuleCounts, ActionCreate},
		{ModuleCounts, ActionEdit},
		{ModuleReceiving, ActionCreate},
	} {
		staff[c] = true
	}

	manager := map[capability]bool{}
	for _, m := range all {
		for _, a := range []Action{ActionView, ActionCreate, ActionEdit, ActionApprove} {
			manager[capability{m, a}] = true
		}
	}

	return &RoleAuthorizer{grants: map[core.Role]map[capability]bool{
		core.RoleStaff:   staff,
		core.RoleManager: manager,
	}}
}

// Authorize returns a ForbiddenError unless role holds (module, action).
func (a *RoleAuthorizer) Authorize(role core.Role, module Module, action Action) error {
	if role == core.RoleAdmin {
		return nil
	}
	if a.grants[role][capability{module, action}] {
		return nil
	}
	return &ForbiddenError{Role: role, Module: module, Action: action}
}
