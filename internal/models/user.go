package models

import "time"

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"type:varchar(100);not null" json:"name"`
	PublicName   string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"publicName"`
	Email        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"` // Never expose password hash in JSON
	Province     string    `gorm:"type:varchar(100)" json:"province"`
	City         string    `gorm:"type:varchar(100)" json:"city"`
	RegisteredAt time.Time `gorm:"not null" json:"registeredAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Roles         []Role `gorm:"many2many:user_roles;constraint:OnDelete:CASCADE" json:"roles,omitempty"`
	Games         []Game `gorm:"foreignKey:OwnerID" json:"games,omitempty"`
	LoansLent     []Loan `gorm:"foreignKey:LenderID" json:"loansLent,omitempty"`
	LoansBorrowed []Loan `gorm:"foreignKey:BorrowerID" json:"loansBorrowed,omitempty"`
}

// RoleNames flattens the loaded roles. Roles must have been preloaded.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
