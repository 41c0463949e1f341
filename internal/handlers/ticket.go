package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"routelynk/internal/middleware"
	"routelynk/internal/models"
	"routelynk/internal/services"
	"routelynk/internal/utils"
)

type TicketHandler struct {
	catalogService *services.CatalogService
}

func NewTicketHandler(catalogService *services.CatalogService) *TicketHandler {
	return &TicketHandler{
		catalogService: catalogService,
	}
}

// callerIdentity reads what the auth guard stored on the context.
func callerIdentity(c *gin.Context) (email string, isAdmin bool) {
	email = c.GetString(middleware.ContextEmailKey)
	isAdmin = c.GetString(middleware.ContextRoleKey) == string(models.RoleAdmin)
	return email, isAdmin
}

// SearchTickets is the public catalog view: approved tickets only, filtered
// by route and transport type, optionally sorted by price, paginated.
func (h *TicketHandler) SearchTickets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "6"))

	sort := models.SortOrder(c.Query("sort"))
	if sort != models.SortDefault && sort != models.SortPriceAsc && sort != models.SortPriceDesc {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid sort order", string(sort)))
		return
	}

	query := &models.TicketQuery{
		From:          c.Query("from"),
		To:            c.Query("to"),
		TransportType: c.Query("transportType"),
		Sort:          sort,
		Page:          page,
		PageSize:      pageSize,
	}

	result, err := h.catalogService.Search(c.Request.Context(), query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Search failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Tickets retrieved", result))
}

// GetTicket serves the detail view. Unapproved tickets are only visible to
// their owner and to admins; everyone else cannot tell them from missing ones.
func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.catalogService.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == services.ErrTicketNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve ticket", err.Error()))
		return
	}

	if ticket.Status != models.TicketApproved {
		email, isAdmin := callerIdentity(c)
		if !isAdmin && email != ticket.VendorEmail {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
			return
		}
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Ticket retrieved", ticket))
}

func (h *TicketHandler) ListAdvertised(c *gin.Context) {
	tickets, err := h.catalogService.ListAdvertised(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list advertised tickets", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Advertised tickets retrieved", tickets))
}

// ListVendorTickets returns the caller's own listings in every status.
func (h *TicketHandler) ListVendorTickets(c *gin.Context) {
	email, _ := callerIdentity(c)
	tickets, err := h.catalogService.ListVendorTickets(c.Request.Context(), email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list vendor tickets", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Vendor tickets retrieved", tickets))
}

func (h *TicketHandler) CreateTicket(c *gin.Context) {
	email, _ := callerIdentity(c)

	var draft models.TicketDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	ticket, err := h.catalogService.CreateTicket(c.Request.Context(), email, &draft)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create ticket", err.Error()))
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Ticket submitted for review", ticket))
}

func (h *TicketHandler) UpdateTicket(c *gin.Context) {
	email, isAdmin := callerIdentity(c)

	var patch models.TicketPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	ticket, err := h.catalogService.UpdateTicket(c.Request.Context(), email, isAdmin, c.Param("id"), &patch)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		case err == services.ErrTicketNotFound:
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
		case err == services.ErrTicketLocked:
			c.JSON(http.StatusForbidden, utils.ErrorResponse("Rejected tickets cannot be edited", ""))
		case err == services.ErrForbidden:
			c.JSON(http.StatusForbidden, utils.ErrorResponse("forbidden access", ""))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update ticket", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Ticket updated", ticket))
}

func (h *TicketHandler) DeleteTicket(c *gin.Context) {
	email, isAdmin := callerIdentity(c)

	err := h.catalogService.DeleteTicket(c.Request.Context(), email, isAdmin, c.Param("id"))
	if err != nil {
		switch {
		case err == services.ErrTicketNotFound:
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
		case err == services.ErrForbidden:
			c.JSON(http.StatusForbidden, utils.ErrorResponse("forbidden access", ""))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to delete ticket", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Ticket deleted", gin.H{"ticketId": c.Param("id")}))
}

// SetStatus is the admin moderation decision: approved or rejected.
func (h *TicketHandler) SetStatus(c *gin.Context) {
	var req models.SetTicketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	ticket, err := h.catalogService.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		switch {
		case err == services.ErrInvalidStatus:
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Status must be approved or rejected", string(req.Status)))
		case err == services.ErrTicketNotFound:
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update ticket status", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Ticket status updated", ticket))
}

// SetAdvertised toggles promotional placement. Hitting the cap is a normal
// answer, not an error: 200 with limitReached set.
func (h *TicketHandler) SetAdvertised(c *gin.Context) {
	var req models.SetAdvertisedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	applied, err := h.catalogService.SetAdvertised(c.Request.Context(), c.Param("id"), req.Advertised)
	if err != nil {
		if err == services.ErrTicketNotFound {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Ticket not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update advertisement", err.Error()))
		return
	}

	if !applied {
		c.JSON(http.StatusOK, gin.H{
			"success":      true,
			"limitReached": true,
			"message":      "Advertised ticket limit reached",
		})
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Advertisement updated", gin.H{
		"ticketId":     c.Param("id"),
		"advertised":   req.Advertised,
		"limitReached": false,
	}))
}
