package accounts

import (
	goerrors "github.com/goliatone/go-errors"
)

// Resource identifies a protected asset class in the access matrix
type Resource string

const (
	ResourceUserAccount   Resource = "user_account"
	ResourceMediaResource Resource = "media_resource"
)

// Action identifies what a role wants to do with a resource
type Action string

const (
	ActionRead  Action = "r"
	ActionWrite Action = "w"
)

// AclEntry grants a set of roles one (resource, action) pair
type AclEntry struct {
	Resource Resource
	Action   Action
	Roles    []RoleCode
}

type aclKey struct {
	resource Resource
	action   Action
}

// AccessControl evaluates a static role to resource permission matrix.
// The matrix is built once at construction and never mutated, so
// concurrent readers need no locking.
type AccessControl struct {
	matrix map[aclKey]map[RoleCode]struct{}
	logger Logger
}

// NewAccessControl builds an AccessControl from explicit grants
func NewAccessControl(entries ...AclEntry) *AccessControl {
	ac := &AccessControl{
		matrix: make(map[aclKey]map[RoleCode]struct{}, len(entries)),
		logger: defLogger{},
	}

	for _, entry := range entries {
		key := aclKey{resource: entry.Resource, action: entry.Action}
		roles, ok := ac.matrix[key]
		if !ok {
			roles = make(map[RoleCode]struct{}, len(entry.Roles))
			ac.matrix[key] = roles
		}
		for _, role := range entry.Roles {
			roles[role] = struct{}{}
		}
	}

	return ac
}

// DefaultAccessControl returns the grant set used by the account
// service: every known role may read its own account, guests may not
// write.
func DefaultAccessControl() *AccessControl {
	return NewAccessControl(
		AclEntry{
			Resource: ResourceUserAccount,
			Action:   ActionRead,
			Roles:    []RoleCode{RoleGuest, RoleMember, RoleAdmin, RoleOwner},
		},
		AclEntry{
			Resource: ResourceUserAccount,
			Action:   ActionWrite,
			Roles:    []RoleCode{RoleMember, RoleAdmin, RoleOwner},
		},
		AclEntry{
			Resource: ResourceMediaResource,
			Action:   ActionRead,
			Roles:    []RoleCode{RoleMember, RoleAdmin, RoleOwner},
		},
		AclEntry{
			Resource: ResourceMediaResource,
			Action:   ActionWrite,
			Roles:    []RoleCode{RoleAdmin, RoleOwner},
		},
	)
}

// WithLogger sets the logger used for denial diagnostics
func (ac *AccessControl) WithLogger(logger Logger) *AccessControl {
	if logger != nil {
		ac.logger = logger
	}
	return ac
}

// Can reports whether the role is in the permitted set for the pair
func (ac *AccessControl) Can(role RoleCode, resource Resource, action Action) bool {
	roles, ok := ac.matrix[aclKey{resource: resource, action: action}]
	if !ok {
		return false
	}
	_, allowed := roles[role]
	return allowed
}

// Authorize rejects with ErrForbidden when the role is not granted the
// (resource, action) pair.
func (ac *AccessControl) Authorize(role RoleCode, resource Resource, action Action) error {
	if ac.Can(role, resource, action) {
		return nil
	}

	ac.logger.Debug("AccessControl denied role %s on %s:%s", role, resource, action)

	return goerrors.New(ErrForbidden.Message, ErrForbidden.Category).
		WithTextCode(ErrForbidden.TextCode).
		WithCode(ErrForbidden.Code).
		WithMetadata(map[string]any{
			"role":     string(role),
			"resource": string(resource),
			"action":   string(action),
		})
}

// LoginCheck is the signin path variant: it runs after credential
// verification succeeded and before a session token is issued, so a
// role stripped of read access to its own account cannot establish a
// session.
func (ac *AccessControl) LoginCheck(identity Identity, resource Resource, action Action) error {
	if identity == nil {
		return ErrForbidden
	}
	return ac.Authorize(RoleCode(identity.RoleCode()), resource, action)
}
