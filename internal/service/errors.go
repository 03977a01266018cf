package service

import "github.com/Baaaki/gameshelf/pkg/apperror"

var (
	ErrUnauthenticated = apperror.New(apperror.CodeUnauthorized, "authentication required")
	ErrForbidden       = apperror.Forbidden("not allowed to perform this action")

	ErrEmailAlreadyExists      = apperror.Conflict("email already exists")
	ErrPublicNameAlreadyExists = apperror.Conflict("public name already exists")
	ErrInvalidCredentials      = apperror.New(apperror.CodeUnauthorized, "invalid credentials")
	ErrWrongPassword           = apperror.Invalid("current password is incorrect")

	ErrExpiredToken     = apperror.New(apperror.CodeUnauthorized, "token expired")
	ErrMalformedToken   = apperror.New(apperror.CodeUnauthorized, "malformed token")
	ErrInvalidSignature = apperror.New(apperror.CodeUnauthorized, "invalid token signature")
	ErrRevokedToken     = apperror.New(apperror.CodeUnauthorized, "token revoked")
	ErrInvalidTokenType = apperror.New(apperror.CodeUnauthorized, "invalid token type")

	ErrUserNotFound        = apperror.NotFound("user not found")
	ErrUserHasActiveLoans  = apperror.Conflict("user takes part in active loans")
	ErrRoleNotFound        = apperror.NotFound("role not found")
	ErrRoleAlreadyExists   = apperror.Conflict("role already exists")
	ErrBuiltinRole         = apperror.Conflict("built-in roles cannot be changed or deleted")
	ErrGameNotFound        = apperror.NotFound("game not found")
	ErrGameNotAvailable    = apperror.Conflict("game is not available")
	ErrGameBorrowed        = apperror.Conflict("game is currently borrowed")
	ErrNotCatalogGame      = apperror.Invalid("game is not a catalog game")
	ErrLoanNotFound        = apperror.NotFound("loan not found")
	ErrLoanAlreadyReturned = apperror.Conflict("loan already returned")
	ErrDocumentNotFound    = apperror.NotFound("document not found")
)
