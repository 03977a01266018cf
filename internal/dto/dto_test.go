package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/Baaaki/gameshelf/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameDTO_RoundTripPreservesFields(t *testing.T) {
	in := GameDTO{
		Title:       "Chrono Trigger",
		Platform:    "SNES",
		Genre:       "RPG",
		Description: "Time travel classic",
		Status:      models.GameUnavailable,
	}

	out := GameResponseFrom(in.ToModel())

	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Platform, out.Platform)
	assert.Equal(t, in.Genre, out.Genre)
	assert.Equal(t, in.Description, out.Description)
	assert.Equal(t, in.Status, out.Status)
}

func TestGameDTO_DefaultStatus(t *testing.T) {
	assert.Equal(t, models.GameAvailable, GameDTO{Title: "x"}.ToModel().Status)
}

func TestEnvelope_JSONShape(t *testing.T) {
	ok, err := json.Marshal(OK(map[string]int{"n": 1}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"data":{"n":1}}`, string(ok))

	fail, err := json.Marshal(Fail("conflict", "email already exists", nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"error":{"code":"conflict","message":"email already exists"}}`, string(fail))
}

func TestLoanResponseFrom(t *testing.T) {
	returned := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	loan := &models.Loan{
		ID:         4,
		GameID:     2,
		LenderID:   1,
		BorrowerID: 3,
		ReturnDate: &returned,
		Game:       &models.Game{Title: "Chrono Trigger"},
		Borrower:   &models.User{ID: 3, PublicName: "bob"},
	}

	resp := LoanResponseFrom(loan)

	assert.Equal(t, models.LoanReturned, resp.State)
	assert.Equal(t, "Chrono Trigger", resp.GameTitle)
	assert.Nil(t, resp.Lender)
	require.NotNil(t, resp.Borrower)
	assert.Equal(t, "bob", resp.Borrower.PublicName)
}

func TestUserResponseFrom_HidesSecrets(t *testing.T) {
	u := &models.User{ID: 1, PublicName: "alice", PasswordHash: "$argon2id$secret", Roles: []models.Role{{Name: models.RoleUser}}}

	data, err := json.Marshal(UserResponseFrom(u))

	require.NoError(t, err)
	assert.NotContains(t, string(data), "argon2id")
	assert.Contains(t, string(data), `"roles":["ROLE_USER"]`)
}
