package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/dto"
	"github.com/Baaaki/gameshelf/internal/service"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

func respondOK[T any](c *gin.Context, status int, data T) {
	c.JSON(status, dto.OK(data))
}

// respondError maps an error to its status code. Internal causes are logged
// and never sent to the client.
func respondError(c *gin.Context, err error) {
	code := apperror.CodeOf(err)
	status := apperror.HTTPStatus(code)

	if code == apperror.CodeInternal {
		logger.Log.Error("Request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	_ = c.Error(err)
	c.JSON(status, dto.Fail(string(code), apperror.MessageOf(err), nil))
}

// respondBindError answers 400 with one entry per failed field.
func respondBindError(c *gin.Context, err error) {
	logger.Log.Debug("Request binding failed",
		zap.String("path", c.FullPath()),
		zap.String("ip", c.ClientIP()),
		zap.Error(err),
	)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[lowerFirst(fe.Field())] = describeFieldError(fe)
		}
		c.JSON(http.StatusBadRequest, dto.Fail(string(apperror.CodeInvalid), "validation failed", details))
		return
	}

	c.JSON(http.StatusBadRequest, dto.Fail(string(apperror.CodeInvalid), "invalid request body", nil))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 64)
	if err != nil || id == 0 {
		respondError(c, apperror.Invalid("invalid "+param))
		return 0, false
	}
	return uint(id), true
}

// queryUint parses an optional numeric query parameter; absent means 0.
func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(c, apperror.Invalid("invalid "+name))
		return 0, false
	}
	return uint(v), true
}

func formUint(c *gin.Context, name string) (uint, bool) {
	raw := c.PostForm(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		respondError(c, apperror.Invalid("invalid "+name))
		return 0, false
	}
	return uint(v), true
}

// queryBool parses an optional boolean query parameter; absent means nil.
func queryBool(c *gin.Context, name string) (*bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondError(c, apperror.Invalid("invalid "+name))
		return nil, false
	}
	return &v, true
}

// principal returns the caller or answers 401.
func principal(c *gin.Context) (*auth.Principal, bool) {
	p := auth.FromContext(c.Request.Context())
	if p == nil {
		respondError(c, service.ErrUnauthenticated)
		return nil, false
	}
	return p, true
}
