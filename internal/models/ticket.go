package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TicketStatus string

const (
	TicketPending  TicketStatus = "pending"
	TicketApproved TicketStatus = "approved"
	TicketRejected TicketStatus = "rejected"
)

// AdvertisedLimit caps how many tickets may carry the advertised flag at once.
const AdvertisedLimit = 6

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	TicketID      string       `json:"ticketId" bun:"ticket_id,pk"`
	VendorEmail   string       `json:"vendorEmail" bun:"vendor_email"`
	Title         string       `json:"title" bun:"title"`
	From          string       `json:"from" bun:"from_city"`
	To            string       `json:"to" bun:"to_city"`
	TransportType string       `json:"transportType" bun:"transport_type"`
	Price         float64      `json:"price" bun:"price"`
	Quantity      int          `json:"quantity" bun:"quantity"`
	DepartureDate string       `json:"departureDate" bun:"departure_date"`
	DepartureTime string       `json:"departureTime" bun:"departure_time"`
	Description   string       `json:"description" bun:"description"`
	Perks         string       `json:"perks" bun:"perks"`
	Image         string       `json:"image" bun:"image"`
	Status        TicketStatus `json:"status" bun:"status"`
	IsAdvertised  bool         `json:"isAdvertised" bun:"is_advertised"`
	CreatedAt     time.Time    `json:"createdAt" bun:"created_at"`
}

// TicketDraft is the vendor-supplied listing payload. Status, advertisement
// flag and creation time are server-owned and cannot be set here.
type TicketDraft struct {
	Title         string  `json:"title" binding:"required"`
	From          string  `json:"from" binding:"required"`
	To            string  `json:"to" binding:"required"`
	TransportType string  `json:"transportType" binding:"required"`
	Price         float64 `json:"price" binding:"required,gt=0"`
	Quantity      int     `json:"quantity" binding:"required,gt=0"`
	DepartureDate string  `json:"departureDate" binding:"required"`
	DepartureTime string  `json:"departureTime" binding:"required"`
	Description   string  `json:"description"`
	Perks         string  `json:"perks"`
	Image         string  `json:"image"`
}

// TicketPatch carries a vendor edit. Nil fields are left untouched.
type TicketPatch struct {
	Title         *string  `json:"title"`
	From          *string  `json:"from"`
	To            *string  `json:"to"`
	TransportType *string  `json:"transportType"`
	Price         *float64 `json:"price"`
	Quantity      *int     `json:"quantity"`
	DepartureDate *string  `json:"departureDate"`
	DepartureTime *string  `json:"departureTime"`
	Description   *string  `json:"description"`
	Perks         *string  `json:"perks"`
	Image         *string  `json:"image"`
}

type SetTicketStatusRequest struct {
	Status TicketStatus `json:"status" binding:"required"`
}

type SetAdvertisedRequest struct {
	Advertised bool `json:"advertised"`
}

type SortOrder string

const (
	SortDefault   SortOrder = ""
	SortPriceAsc  SortOrder = "asc"
	SortPriceDesc SortOrder = "desc"
)

// TicketQuery is the public search surface over approved tickets.
type TicketQuery struct {
	From          string
	To            string
	TransportType string
	Sort          SortOrder
	Page          int
	PageSize      int
}

type TicketPage struct {
	Items      []*Ticket `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	TotalPages int       `json:"totalPages"`
}
