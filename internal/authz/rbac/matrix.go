// Package rbac implements the static permission matrix that maps
// (role, resource, action) to an allow/deny decision.
package rbac

import (
	"gestora/internal/tenant/models"
)

// Action is a coarse operation class against a resource.
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Resource names understood by the default matrix.
const (
	ResourceClientes  = "clientes"
	ResourceContratos = "contratos"
	ResourceProdutos  = "produtos"
	ResourceAlunos    = "alunos"
	ResourceDashboard = "dashboard"
)

// Rule declares which roles may perform each action on one resource. An
// action mapped to an empty role list is disabled for everyone; an action
// absent from the map is likewise denied.
type Rule struct {
	Resource string
	Actions  map[Action][]models.Role
}

// Matrix is an immutable permission table. Lookups against resources or
// actions it does not know about always deny.
type Matrix struct {
	rules map[string]map[Action]map[models.Role]struct{}
}

// NewMatrix builds a matrix from rules, deep-copying so later mutation of
// the input cannot change decisions.
func NewMatrix(rules []Rule) *Matrix {
	m := &Matrix{rules: make(map[string]map[Action]map[models.Role]struct{}, len(rules))}
	for _, r := range rules {
		actions := make(map[Action]map[models.Role]struct{}, len(r.Actions))
		for action, roles := range r.Actions {
			set := make(map[models.Role]struct{}, len(roles))
			for _, role := range roles {
				set[role] = struct{}{}
			}
			actions[action] = set
		}
		m.rules[r.Resource] = actions
	}
	return m
}

// DefaultMatrix returns the product permission table.
//
// Dashboard is read-only: the mutating actions are declared with empty
// role lists so the denial is an explicit decision rather than a missing
// entry.
func DefaultMatrix() *Matrix {
	return NewMatrix([]Rule{
		{
			Resource: ResourceClientes,
			Actions: map[Action][]models.Role{
				ActionRead:   {models.RoleAdmin, models.RoleClient},
				ActionCreate: {models.RoleAdmin},
				ActionUpdate: {models.RoleAdmin},
				ActionDelete: {models.RoleAdmin},
			},
		},
		{
			Resource: ResourceContratos,
			Actions: map[Action][]models.Role{
				ActionRead:   {models.RoleAdmin, models.RoleClient},
				ActionCreate: {models.RoleAdmin, models.RoleClient},
				ActionUpdate: {models.RoleAdmin, models.RoleClient},
				ActionDelete: {models.RoleAdmin},
			},
		},
		{
			Resource: ResourceProdutos,
			Actions: map[Action][]models.Role{
				ActionRead:   {models.RoleAdmin, models.RoleClient, models.RoleStudent},
				ActionCreate: {models.RoleAdmin},
				ActionUpdate: {models.RoleAdmin},
				ActionDelete: {models.RoleAdmin},
			},
		},
		{
			Resource: ResourceAlunos,
			Actions: map[Action][]models.Role{
				ActionRead:   {models.RoleAdmin, models.RoleClient},
				ActionCreate: {models.RoleAdmin, models.RoleClient},
				ActionUpdate: {models.RoleAdmin, models.RoleClient},
				ActionDelete: {models.RoleAdmin},
			},
		},
		{
			Resource: ResourceDashboard,
			Actions: map[Action][]models.Role{
				ActionRead:   {models.RoleAdmin, models.RoleClient},
				ActionCreate: {},
				ActionUpdate: {},
				ActionDelete: {},
			},
		},
	})
}

// Knows reports whether the matrix has any rule for the resource.
func (m *Matrix) Knows(resource string) bool {
	_, ok := m.rules[resource]
	return ok
}

// Allows reports whether role may perform action on resource. Unknown
// resources, unknown actions, and empty role lists all deny.
func (m *Matrix) Allows(role models.Role, resource string, action Action) bool {
	actions, ok := m.rules[resource]
	if !ok {
		return false
	}
	roles, ok := actions[action]
	if !ok {
		return false
	}
	_, ok = roles[role]
	return ok
}
