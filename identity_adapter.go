package accounts

// UserIdentity adapts a User row into the Identity interface used by
// token issuance and the ACL.
type UserIdentity struct {
	user *User
}

// NewIdentityFromUser returns an Identity adapter for the provided user.
func NewIdentityFromUser(user *User) Identity {
	if user == nil {
		return nil
	}
	return UserIdentity{user: user}
}

// ID returns the user's ID as a string.
func (u UserIdentity) ID() string {
	if u.user == nil {
		return ""
	}
	return u.user.ID.String()
}

// Username returns the user's username.
func (u UserIdentity) Username() string {
	if u.user == nil {
		return ""
	}
	return u.user.Username
}

// Email returns the user's email address.
func (u UserIdentity) Email() string {
	if u.user == nil {
		return ""
	}
	return u.user.Email
}

// RoleID returns the role ID the user was loaded with.
func (u UserIdentity) RoleID() string {
	if u.user == nil {
		return ""
	}
	return u.user.RoleID.String()
}

// RoleCode returns the role code when the role relation was loaded.
func (u UserIdentity) RoleCode() string {
	if u.user == nil {
		return ""
	}
	return u.user.RoleCodeOrEmpty()
}

// RoleName returns the role display name when the role relation was
// loaded, empty otherwise.
func (u UserIdentity) RoleName() string {
	if u.user == nil || u.user.Role == nil {
		return ""
	}
	return u.user.Role.Name
}

var _ Identity = UserIdentity{}
