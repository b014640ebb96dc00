package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
	"github.com/flockpay/xero_adapter_app/internal/core/services"
	"github.com/flockpay/xero_adapter_app/internal/dto"
	"github.com/flockpay/xero_adapter_app/internal/middleware"
)

// connectionHandler serves the OAuth connect flow and connection status.
type connectionHandler struct {
	connection portssvc.ConnectionSvcFacade
}

func newConnectionHandler(connection portssvc.ConnectionSvcFacade) *connectionHandler {
	return &connectionHandler{connection: connection}
}

// registerConnectionRoutes registers the authenticated connection endpoints.
func registerConnectionRoutes(rg *gin.RouterGroup, connection portssvc.ConnectionSvcFacade) {
	h := newConnectionHandler(connection)

	conn := rg.Group("/connection")
	{
		conn.GET("/status", h.status)
		conn.POST("/connect", h.connect)
		conn.POST("/disconnect", h.disconnect)
	}
}

// registerCallbackRoute registers the public OAuth redirect endpoint. The
// consent provider calls it directly, so it sits outside webhook auth; the
// CSRF state issued on connect is its guard.
func registerCallbackRoute(r *gin.Engine, connection portssvc.ConnectionSvcFacade) {
	h := newConnectionHandler(connection)
	r.GET("/callback", h.callback)
}

func (h *connectionHandler) status(c *gin.Context) {
	connected, err := h.connection.IsConnected(c.Request.Context())
	if err != nil {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Failed to read connection status", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read connection status"})
		return
	}
	c.JSON(http.StatusOK, dto.ConnectionStatusResponse{IsConnected: connected})
}

func (h *connectionHandler) connect(c *gin.Context) {
	url, err := h.connection.GetAuthorizeURL(c.Request.Context())
	if err != nil {
		middleware.GetLoggerFromCtx(c.Request.Context()).Error("Failed to build authorize URL", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start connect flow"})
		return
	}
	c.JSON(http.StatusOK, dto.AuthorizeURLResponse{URL: url})
}

func (h *connectionHandler) callback(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	err := h.connection.HandleCallback(c.Request.Context(), code, state)
	if errors.Is(err, services.ErrInvalidOAuthState) {
		logger.Warn("OAuth callback with invalid state")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid or expired state"})
		return
	}
	if err != nil {
		logger.Error("OAuth callback failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "connection failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "connected"})
}

func (h *connectionHandler) disconnect(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	err := h.connection.Disconnect(c.Request.Context())
	if errors.Is(err, services.ErrNotConnected) {
		c.JSON(http.StatusConflict, gin.H{"error": "account is not connected"})
		return
	}
	if err != nil {
		logger.Error("Disconnect failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "disconnect failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "disconnected"})
}
