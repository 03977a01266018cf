package models

const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// BuiltinRoles are created by migration and cannot be deleted.
var BuiltinRoles = []Role{
	{Name: RoleUser, Description: "Regular member"},
	{Name: RoleAdmin, Description: "Administrator"},
}

type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:varchar(255)" json:"description"`
}

func IsBuiltinRole(name string) bool {
	for _, r := range BuiltinRoles {
		if r.Name == name {
			return true
		}
	}
	return false
}
