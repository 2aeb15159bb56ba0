package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Panel roles as stored in roles.role_name.
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleUser    = "USER"
)

const (
	VerbGet     = "get"
	VerbList    = "list"
	VerbCreate  = "create"
	VerbUpdate  = "update"
	VerbDelete  = "delete"
	VerbExport  = "export"
	VerbBackup  = "backup"
	VerbRestore = "restore"
)

// API groups partition the resources a rule can name.
const (
	GroupAirline = "airline"
	GroupStore   = "store"
	GroupReports = "reports"
	GroupSystem  = "system"
)

// Role is a named set of policy rules.
type Role struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Rules []PolicyRule `json:"rules"`
}

type PolicyRule struct {
	Verbs     []string `json:"verbs"`
	Resources []string `json:"resources"`
	APIGroups []string `json:"apiGroups"`
}

// Principal is the authenticated caller handed to every engine operation.
type Principal struct {
	AccountID int64  `json:"accountId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	// Permitted holds the entity kinds this principal may work with.
	Permitted sets.Set[string] `json:"-"`
}

// Permits reports whether kind is in the principal's permitted set.
func (p *Principal) Permits(kind string) bool {
	return p != nil && p.Permitted.Has(kind)
}

// ActorID returns the account id for audit attribution, or nil when unknown.
func (p *Principal) ActorID() *int64 {
	if p == nil || p.AccountID == 0 {
		return nil
	}
	id := p.AccountID
	return &id
}

// DeepCopyInto copies the receiver into out
func (in *Role) DeepCopyInto(out *Role) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)

	if in.Rules != nil {
		out.Rules = make([]PolicyRule, len(in.Rules))
		for i := range in.Rules {
			in.Rules[i].DeepCopyInto(&out.Rules[i])
		}
	}
}

// DeepCopy creates a deep copy of Role
func (in *Role) DeepCopy() *Role {
	if in == nil {
		return nil
	}
	out := new(Role)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies PolicyRule into out
func (in *PolicyRule) DeepCopyInto(out *PolicyRule) {
	*out = *in
	if in.Verbs != nil {
		out.Verbs = make([]string, len(in.Verbs))
		copy(out.Verbs, in.Verbs)
	}
	if in.Resources != nil {
		out.Resources = make([]string, len(in.Resources))
		copy(out.Resources, in.Resources)
	}
	if in.APIGroups != nil {
		out.APIGroups = make([]string, len(in.APIGroups))
		copy(out.APIGroups, in.APIGroups)
	}
}
