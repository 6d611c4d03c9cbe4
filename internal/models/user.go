package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the account type a user signs up with.
type Role string

const (
	RoleStudent   Role = "student"
	RolePlayer    Role = "player"
	RoleParent    Role = "parent"
	RoleDojoOwner Role = "dojo_owner"
	RoleCoach     Role = "coach"
	RoleReferee   Role = "referee"
	RoleJudge     Role = "judge"
	RoleSeller    Role = "seller"
	RoleAdmin     Role = "admin"
)

var validRoles = map[Role]bool{
	RoleStudent: true, RolePlayer: true, RoleParent: true, RoleDojoOwner: true,
	RoleCoach: true, RoleReferee: true, RoleJudge: true, RoleSeller: true, RoleAdmin: true,
}

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	return validRoles[r]
}

// User represents a registered account.
type User struct {
	ID        string         `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Username  string         `json:"username" gorm:"uniqueIndex;type:varchar(100)"`
	Email     string         `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Password  string         `json:"-" gorm:"type:varchar(255)"` // bcrypt hash
	Role      Role           `json:"role" gorm:"type:varchar(20);index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

// Identity is the caller resolved from a session token. It is passed
// explicitly into every service operation.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsZero reports whether no caller was resolved.
func (i Identity) IsZero() bool {
	return i.UserID == ""
}
