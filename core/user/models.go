package user

import (
	"strings"

	"github.com/trezcool/schoolhealth/core"
)

// Roles, which are also the API collections listing their users.
const (
	RoleAdmin   = "admin"
	RoleNurse   = "nurse"
	RoleParent  = "parent"
	RoleStudent = "student"
)

var (
	AllRoles = []string{RoleAdmin, RoleNurse, RoleParent, RoleStudent}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleNurse:   20,
		RoleParent:  10,
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Parent", Value: RoleParent},
		{Name: "Nurse", Value: RoleNurse},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

func IsRole(role string) bool {
	_, ok := rolePriorities[role]
	return ok
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID        core.ID   `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	ClassName string    `json:"class_name,omitempty"`
	ParentID  core.ID   `json:"parent_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt core.Time `json:"created_at"`
}

// Key qualifies the id with the role: each role is its own collection and their ids overlap.
func (u User) Key() core.ID { return KeyOf(u.Role, u.ID) }

// KeyOf builds the list key of the user with id in role.
func KeyOf(role string, id core.ID) core.ID { return core.ID(role + ":" + id.String()) }

// SplitKey is the reverse of KeyOf. ok is false when key carries no known role.
func SplitKey(key core.ID) (role string, id core.ID, ok bool) {
	role, rest, found := strings.Cut(key.String(), ":")
	if !found || !IsRole(role) || rest == "" {
		return "", "", false
	}
	return role, core.ID(rest), true
}

// StatusLabel is the role: user lists are narrowed by role.
func (u User) StatusLabel() string { return u.Role }

func (u User) WithStatus(role string) User {
	u.Role = role
	return u
}

func (u User) SearchText() []string {
	return []string{u.Name, u.Email, u.Phone, u.ClassName}
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsNurse() bool   { return u.Role == RoleNurse }
func (u User) IsParent() bool  { return u.Role == RoleParent }
func (u User) IsStudent() bool { return u.Role == RoleStudent }

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string  `json:"name" validate:"required,notblank"`
	Email           string  `json:"email" validate:"required,email"`
	Phone           string  `json:"phone" validate:"omitempty,numeric,min=9,max=15"`
	Role            string  `json:"role" validate:"required,userrole"`
	Password        string  `json:"password" validate:"required"`
	PasswordConfirm string  `json:"password_confirm" validate:"required,eqfield=Password"`
	AvatarURL       string  `json:"avatar_url"`
	ClassName       string  `json:"class_name"`
	ParentID        core.ID `json:"parent_id"`
}

// Clean normalizes the user input before validation.
func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
	nu.Role = core.CleanString(nu.Role, true /* lower */)
	nu.ClassName = core.CleanString(nu.ClassName)
}

// UpdateUser defines what information may be provided to modify an existing User.
type UpdateUser struct {
	Name      string `json:"name,omitempty"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,numeric,min=9,max=15"`
	AvatarURL string `json:"avatar_url,omitempty"`
	ClassName string `json:"class_name,omitempty"`
	IsActive  *bool  `json:"is_active,omitempty"`
}

// Child is the dependent a parent currently looks after in the dashboard.
type Child struct {
	ID        core.ID `json:"id"`
	Name      string  `json:"name"`
	ClassName string  `json:"class_name,omitempty"`
}

func ChildOf(u User) Child {
	return Child{ID: u.ID, Name: u.Name, ClassName: u.ClassName}
}

// ImportResult is the backend's report of a student XLSX import.
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Errors  []string `json:"errors,omitempty"`
}
