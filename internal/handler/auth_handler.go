package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aicalorie/internal/service"
)

// AuthHandler handles identity verification endpoints.
type AuthHandler struct {
	identityService service.IdentityService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(identityService service.IdentityService) *AuthHandler {
	return &AuthHandler{identityService: identityService}
}

// Verify handles POST /api/v1/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var input service.VerifyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	claims, err := h.identityService.VerifyToken(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, claims)
}
