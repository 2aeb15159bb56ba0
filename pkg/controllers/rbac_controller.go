package controllers

import (
	"context"
	"fmt"
	"sort"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/sukryu/gqpanel/pkg/apis/panel/v1alpha1"
	"github.com/sukryu/gqpanel/pkg/errors"
	"github.com/sukryu/gqpanel/pkg/store/schema"
)

// ResourceDatabase is the system resource guarded by backup and restore.
const ResourceDatabase = "database"

type RBACController interface {
	GetRole(ctx context.Context, name string) (*v1alpha1.Role, error)
	ListRoles(ctx context.Context) ([]*v1alpha1.Role, error)

	CheckAccess(ctx context.Context, principal *v1alpha1.Principal, verb, resource, apiGroup string) (bool, error)
	// PrincipalFor builds the authenticated caller, resolving the entity
	// kinds its role may touch in any catalog.
	PrincipalFor(accountID int64, email, role string) *v1alpha1.Principal
}

type rbacController struct {
	roles    map[string]*v1alpha1.Role
	catalogs map[string]*schema.Registry
}

// NewRBACController serves a fixed role table. With no roles given it uses
// DefaultRoles.
func NewRBACController(roles ...*v1alpha1.Role) RBACController {
	if len(roles) == 0 {
		roles = DefaultRoles()
	}
	c := &rbacController{
		roles: make(map[string]*v1alpha1.Role, len(roles)),
		catalogs: map[string]*schema.Registry{
			v1alpha1.GroupAirline: schema.Airline(),
			v1alpha1.GroupStore:   schema.Coral(),
		},
	}
	for _, r := range roles {
		c.roles[r.Name] = r.DeepCopy()
	}
	return c
}

func newRole(name string, rules ...v1alpha1.PolicyRule) *v1alpha1.Role {
	return &v1alpha1.Role{
		TypeMeta:   metav1.TypeMeta{APIVersion: "panel.gqpanel/v1alpha1", Kind: "Role"},
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Rules:      rules,
	}
}

func kindNames(kinds ...schema.EntityKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

// DefaultRoles returns the panel roles. ADMIN manages every airline table,
// reads the audit log, manages the coral store and runs backups. MANAGER
// works on the operational tables and reads and exports reports. USER has no
// panel access.
func DefaultRoles() []*v1alpha1.Role {
	var adminKinds []schema.EntityKind
	for _, k := range schema.AirlineKinds {
		if k != schema.KindAuditLog {
			adminKinds = append(adminKinds, k)
		}
	}

	return []*v1alpha1.Role{
		newRole(v1alpha1.RoleAdmin,
			v1alpha1.PolicyRule{Verbs: []string{"*"}, Resources: kindNames(adminKinds...), APIGroups: []string{v1alpha1.GroupAirline}},
			v1alpha1.PolicyRule{Verbs: []string{v1alpha1.VerbGet, v1alpha1.VerbList}, Resources: kindNames(schema.KindAuditLog), APIGroups: []string{v1alpha1.GroupAirline}},
			v1alpha1.PolicyRule{Verbs: []string{"*"}, Resources: []string{"*"}, APIGroups: []string{v1alpha1.GroupStore, v1alpha1.GroupReports}},
			v1alpha1.PolicyRule{Verbs: []string{v1alpha1.VerbBackup, v1alpha1.VerbRestore}, Resources: []string{ResourceDatabase}, APIGroups: []string{v1alpha1.GroupSystem}},
		),
		newRole(v1alpha1.RoleManager,
			v1alpha1.PolicyRule{
				Verbs:     []string{"*"},
				Resources: kindNames(schema.KindFlight, schema.KindPassenger, schema.KindPayment, schema.KindTicket, schema.KindBaggage),
				APIGroups: []string{v1alpha1.GroupAirline},
			},
			v1alpha1.PolicyRule{Verbs: []string{v1alpha1.VerbGet, v1alpha1.VerbList, v1alpha1.VerbExport}, Resources: []string{"*"}, APIGroups: []string{v1alpha1.GroupReports}},
		),
		newRole(v1alpha1.RoleUser),
	}
}

func (c *rbacController) GetRole(ctx context.Context, name string) (*v1alpha1.Role, error) {
	if name == "" {
		return nil, errors.ErrInvalidInput.WithReason("role name is required")
	}
	role, ok := c.roles[name]
	if !ok {
		return nil, errors.ErrNotFound.WithReason(fmt.Sprintf("role %s", name))
	}
	return role.DeepCopy(), nil
}

func (c *rbacController) ListRoles(ctx context.Context) ([]*v1alpha1.Role, error) {
	names := make([]string, 0, len(c.roles))
	for name := range c.roles {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*v1alpha1.Role, len(names))
	for i, name := range names {
		out[i] = c.roles[name].DeepCopy()
	}
	return out, nil
}

func (c *rbacController) CheckAccess(ctx context.Context, principal *v1alpha1.Principal, verb, resource, apiGroup string) (bool, error) {
	if principal == nil {
		return false, errors.ErrInvalidInput.WithReason("principal cannot be nil")
	}
	role, ok := c.roles[principal.Role]
	if !ok {
		return false, nil
	}
	for _, rule := range role.Rules {
		if allows(rule, verb, resource, apiGroup) {
			return true, nil
		}
	}
	return false, nil
}

func (c *rbacController) PrincipalFor(accountID int64, email, role string) *v1alpha1.Principal {
	permitted := sets.New[string]()
	if r, ok := c.roles[role]; ok {
		for group, reg := range c.catalogs {
			for _, kind := range reg.Kinds() {
				for _, rule := range r.Rules {
					if matchesResource(rule, string(kind), group) {
						permitted.Insert(string(kind))
						break
					}
				}
			}
		}
	}
	return &v1alpha1.Principal{
		AccountID: accountID,
		Email:     email,
		Role:      role,
		Permitted: permitted,
	}
}

func allows(rule v1alpha1.PolicyRule, verb, resource, apiGroup string) bool {
	if !matchesResource(rule, resource, apiGroup) {
		return false
	}
	return contains(rule.Verbs, verb) || contains(rule.Verbs, "*")
}

func matchesResource(rule v1alpha1.PolicyRule, resource, apiGroup string) bool {
	if !contains(rule.APIGroups, apiGroup) && !contains(rule.APIGroups, "*") {
		return false
	}
	return contains(rule.Resources, resource) || contains(rule.Resources, "*")
}

// Helper function
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
