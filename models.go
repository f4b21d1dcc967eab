package accounts

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RoleCode identifies a role in the ACL matrix
type RoleCode = string

const (
	// RoleGuest can read public resources only
	RoleGuest RoleCode = "guest"
	// RoleMember is a standard account holder
	RoleMember RoleCode = "member"
	// RoleAdmin manages accounts and content
	RoleAdmin RoleCode = "admin"
	// RoleOwner has every permission
	RoleOwner RoleCode = "owner"
)

// Role drives ACL decisions; referenced by User
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:rol"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Code          RoleCode   `bun:"code,notnull,unique" json:"code,omitempty"`
	Name          string     `bun:"name,notnull" json:"name,omitempty"`
	Description   string     `bun:"description" json:"description,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// User is the user model. A non deleted, activated user is unique by
// email and by username; unauthenticated lookups exclude soft deleted
// and unactivated rows except during the confirmation flow itself.
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	RoleID         uuid.UUID  `bun:"role_id,notnull,type:uuid" json:"role_id,omitempty"`
	Role           *Role      `bun:"rel:belongs-to,join:role_id=id" json:"role,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash   string     `bun:"password_hash,notnull" json:"-"`
	Activated      bool       `bun:"activated" json:"activated"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// RoleCodeOrEmpty returns the joined role code, empty when the
// relation was not loaded.
func (u *User) RoleCodeOrEmpty() RoleCode {
	if u == nil || u.Role == nil {
		return ""
	}
	return u.Role.Code
}

// Account holds optional profile data, one-to-one with User. Created
// on first create_account call, updated thereafter.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:acc"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID  `bun:"user_id,notnull,unique,type:uuid" json:"user_id,omitempty"`
	User          *User      `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Prefix        string     `bun:"prefix" json:"prefix,omitempty"`
	Suffix        string     `bun:"suffix" json:"suffix,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	MiddleName    string     `bun:"middle_name" json:"middle_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	Gender        string     `bun:"gender" json:"gender,omitempty"`
	Birthdate     string     `bun:"birthdate" json:"birthdate,omitempty"`
	Title         string     `bun:"title" json:"title,omitempty"`
	Position      string     `bun:"position" json:"position,omitempty"`
	Location      string     `bun:"location" json:"location,omitempty"`
	Avatar        string     `bun:"avatar" json:"avatar,omitempty"`
	Mobile        string     `bun:"mobile" json:"mobile,omitempty"`
	Website       string     `bun:"website" json:"website,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// UserAccountView is the combined view returned to callers after
// signin and account upserts. Password hash never leaves the store
// layer through this type.
type UserAccountView struct {
	User    *User    `json:"user"`
	Account *Account `json:"account"`
}

// Sanitize strips credential material before the view is serialized
func (v *UserAccountView) Sanitize() *UserAccountView {
	if v == nil || v.User == nil {
		return v
	}
	u := *v.User
	u.PasswordHash = ""
	v.User = &u
	return v
}
