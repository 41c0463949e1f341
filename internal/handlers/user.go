package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"routelynk/internal/models"
	"routelynk/internal/services"
	"routelynk/internal/storage"
	"routelynk/internal/utils"
)

type UserHandler struct {
	store          storage.Store
	catalogService *services.CatalogService
}

func NewUserHandler(store storage.Store, catalogService *services.CatalogService) *UserHandler {
	return &UserHandler{
		store:          store,
		catalogService: catalogService,
	}
}

// UpsertUser updates the caller's own profile. Role and status come from the
// store for existing accounts; a brand-new account always starts as a user.
func (h *UserHandler) UpsertUser(c *gin.Context) {
	email := c.Param("email")

	var req models.UpsertUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	now := time.Now()
	user, err := h.store.UpsertUser(&models.User{
		Email:     email,
		Name:      req.Name,
		Image:     req.Image,
		Role:      models.RoleUser,
		Status:    models.AccountActive,
		CreatedAt: now,
		LastLogin: now,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to save user", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("User saved", user))
}

func (h *UserHandler) GetUser(c *gin.Context) {
	user, err := h.store.GetUser(c.Param("email"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("User not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve user", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("User retrieved", user))
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list users", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Users retrieved", users))
}

// SetRole is the admin role switch. Fraud is not assignable here; flagging a
// vendor goes through MarkFraud so the ticket cascade runs with it.
func (h *UserHandler) SetRole(c *gin.Context) {
	email := c.Param("email")

	var req models.SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	if !models.ValidRole(req.Role) || req.Role == models.RoleFraud {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid role", string(req.Role)))
		return
	}

	if err := h.store.SetUserRole(email, req.Role); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("User not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update role", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Role updated", gin.H{"email": email, "role": req.Role}))
}

// MarkFraud flags a vendor as fraudulent and rejects all their tickets in one
// store transaction.
func (h *UserHandler) MarkFraud(c *gin.Context) {
	email := c.Param("email")

	rejected, err := h.catalogService.FraudCascade(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("User not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to flag vendor", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Vendor flagged as fraud", gin.H{
		"email":           email,
		"ticketsRejected": rejected,
	}))
}
