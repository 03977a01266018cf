package dto

import (
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
)

type UpdateUserRequest struct {
	Name       string `json:"name" binding:"max=100"`
	PublicName string `json:"publicName" binding:"omitempty,min=3,max=50"`
	Province   string `json:"province" binding:"max=100"`
	City       string `json:"city" binding:"max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=128"`
}

type AssignRoleRequest struct {
	RoleID uint `json:"roleId" binding:"required"`
}

// UserSummary is the public face of a user inside other resources.
type UserSummary struct {
	ID         uint   `json:"id"`
	PublicName string `json:"publicName"`
}

type UserResponse struct {
	ID            uint           `json:"id"`
	Name          string         `json:"name"`
	PublicName    string         `json:"publicName"`
	Email         string         `json:"email,omitempty"`
	Province      string         `json:"province"`
	City          string         `json:"city"`
	RegisteredAt  time.Time      `json:"registeredAt"`
	Roles         []string       `json:"roles"`
	Games         []GameResponse `json:"games,omitempty"`
	LoansLent     []LoanResponse `json:"loansLent,omitempty"`
	LoansBorrowed []LoanResponse `json:"loansBorrowed,omitempty"`
}

func UserSummaryFrom(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, PublicName: u.PublicName}
}

func UserResponseFrom(u *models.User) UserResponse {
	resp := UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		PublicName:   u.PublicName,
		Email:        u.Email,
		Province:     u.Province,
		City:         u.City,
		RegisteredAt: u.RegisteredAt,
		Roles:        u.RoleNames(),
	}
	for i := range u.Games {
		resp.Games = append(resp.Games, GameResponseFrom(&u.Games[i]))
	}
	for i := range u.LoansLent {
		resp.LoansLent = append(resp.LoansLent, LoanResponseFrom(&u.LoansLent[i]))
	}
	for i := range u.LoansBorrowed {
		resp.LoansBorrowed = append(resp.LoansBorrowed, LoanResponseFrom(&u.LoansBorrowed[i]))
	}
	return resp
}

func UserResponses(users []models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, UserResponseFrom(&users[i]))
	}
	return out
}

type RoleRequest struct {
	Name        string `json:"name" binding:"required,max=50"`
	Description string `json:"description" binding:"max=255"`
}

type RoleResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func RoleResponses(roles []models.Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		out = append(out, RoleResponse{ID: r.ID, Name: r.Name, Description: r.Description})
	}
	return out
}
