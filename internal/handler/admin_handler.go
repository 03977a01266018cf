package handler

import (
	"net"
	"net/http"

	"github.com/Baaaki/gameshelf/internal/auth"
	"github.com/Baaaki/gameshelf/internal/middleware"
	"github.com/Baaaki/gameshelf/pkg/apperror"
	"github.com/Baaaki/gameshelf/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler manages the IP ban list consulted by the auth rate limiter.
type AdminHandler struct {
	limiter *middleware.RateLimiter
}

func NewAdminHandler(limiter *middleware.RateLimiter) *AdminHandler {
	return &AdminHandler{limiter: limiter}
}

type BanIPRequest struct {
	IP     string `json:"ip" binding:"required,ip"`
	Reason string `json:"reason" binding:"max=255"`
}

// GET /api/admin/ip-bans
func (h *AdminHandler) ListBans(c *gin.Context) {
	ips, err := h.limiter.BannedIPs(c.Request.Context())
	if err != nil {
		respondError(c, apperror.Internal(err, "failed to list banned IPs"))
		return
	}
	respondOK(c, http.StatusOK, ips)
}

// POST /api/admin/ip-bans
func (h *AdminHandler) BanIP(c *gin.Context) {
	var req BanIPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if err := h.limiter.BanIP(c.Request.Context(), req.IP); err != nil {
		respondError(c, apperror.Internal(err, "failed to ban IP"))
		return
	}

	logger.Log.Info("Admin banned IP",
		zap.Uint("admin_id", auth.FromContext(c.Request.Context()).UserID),
		zap.String("ip", req.IP),
		zap.String("reason", req.Reason),
	)
	c.Status(http.StatusNoContent)
}

// DELETE /api/admin/ip-bans/:ip
func (h *AdminHandler) UnbanIP(c *gin.Context) {
	ip := c.Param("ip")
	if net.ParseIP(ip) == nil {
		respondError(c, apperror.Invalid("invalid ip"))
		return
	}

	if err := h.limiter.UnbanIP(c.Request.Context(), ip); err != nil {
		respondError(c, apperror.Internal(err, "failed to unban IP"))
		return
	}

	logger.Log.Info("Admin unbanned IP",
		zap.Uint("admin_id", auth.FromContext(c.Request.Context()).UserID),
		zap.String("ip", ip),
	)
	c.Status(http.StatusNoContent)
}
