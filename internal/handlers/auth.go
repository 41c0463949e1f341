package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"routelynk/internal/models"
	"routelynk/internal/services"
	"routelynk/internal/utils"
)

type AuthHandler struct {
	tokenService *services.TokenService
}

func NewAuthHandler(tokenService *services.TokenService) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
	}
}

// ExchangeToken trades an identity-provider assertion for an access token.
// A rejected assertion gets a bare 401 so the caller cannot tell whether the
// signature, issuer or expiry failed.
func (h *AuthHandler) ExchangeToken(c *gin.Context) {
	var req models.TokenExchangeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	accessToken, user, err := h.tokenService.Exchange(req.Assertion)
	if err != nil {
		if err == services.ErrInvalidAssertion {
			c.JSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid identity assertion", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Token exchange failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Token issued", &models.TokenExchangeResponse{
		AccessToken: accessToken,
		User:        user,
	}))
}
