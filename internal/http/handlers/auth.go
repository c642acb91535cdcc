package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forgeq/dispatcher/internal/adminauth"
	"github.com/forgeq/dispatcher/internal/http/response"
	pkgerrors "github.com/forgeq/dispatcher/internal/pkg/errors"
)

// AuthHandler issues and confirms the single admin bearer token (spec
// section 6: POST /auth/login, GET /auth/me).
type AuthHandler struct {
	auth *adminauth.Service
}

func NewAuthHandler(auth *adminauth.Service) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	token, user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		status := http.StatusUnauthorized
		if !errors.Is(err, pkgerrors.ErrUnauthorized) {
			status = http.StatusBadRequest
		}
		response.RespondError(c, status, "invalid_credentials", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true, "token": token, "user": user})
}

func (h *AuthHandler) Me(c *gin.Context) {
	subject, _ := c.Get("admin_subject")
	response.RespondOK(c, gin.H{"ok": true, "user": subject})
}
