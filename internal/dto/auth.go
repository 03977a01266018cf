package dto

import "github.com/Baaaki/gameshelf/internal/models"

type RegisterRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	PublicName string `json:"publicName" binding:"required,min=3,max=50"`
	Email      string `json:"email" binding:"required,email,max=100"`
	Password   string `json:"password" binding:"required,min=8,max=128"`
	Province   string `json:"province" binding:"max=100"`
	City       string `json:"city" binding:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthResponse is the body of register, login and refresh.
type AuthResponse struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	UserID       uint     `json:"userId"`
	PublicName   string   `json:"publicName"`
	Roles        []string `json:"roles"`
}

func AuthResponseFrom(access, refresh string, u *models.User) AuthResponse {
	return AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       u.ID,
		PublicName:   u.PublicName,
		Roles:        u.RoleNames(),
	}
}
