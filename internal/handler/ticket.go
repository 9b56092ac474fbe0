package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/artround/engagement-ledger/internal/queue"
	"github.com/artround/engagement-ledger/internal/repository"
	"github.com/artround/engagement-ledger/internal/service/admission"
)

// TicketHandler exposes free-ticket issuance from the exhibition detail
// page. Paid tickets are created by the payment gateway callback and are
// not served here.
type TicketHandler struct {
	Admission admission.Service
	Tickets   *repository.TicketRepo
}

// NewTicketHandler constructs a TicketHandler. The admission service
// must be non-nil; the ticket repository may be nil when the listing
// endpoint is not registered.
func NewTicketHandler(adm admission.Service, tickets *repository.TicketRepo) *TicketHandler {
	if adm == nil {
		panic("nil service passed to NewTicketHandler")
	}
	return &TicketHandler{Admission: adm, Tickets: tickets}
}

// IssueFreeTicket handles POST /v1/exhibitions/:id/free-ticket. The body
// may carry {"people_count": n}; omitted or zero defaults to 1. Every
// rejection carries a distinct reason code because the UI shows a
// different message for each ("already issued" vs "sold out").
func (h *TicketHandler) IssueFreeTicket(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	exhibitionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || exhibitionID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid exhibition id", "reason": "VALIDATION"})
	}
	var body struct {
		PeopleCount uint32 `json:"people_count"`
	}
	if err := c.Bind(&body); err != nil && c.Request().ContentLength > 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "reason": "VALIDATION"})
	}

	ctx := c.Request().Context()
	ticket, err := h.Admission.IssueFreeTicket(ctx, userID, exhibitionID, body.PeopleCount)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrExhibitionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "exhibition not found", "reason": "NOT_FOUND"})
		case errors.Is(err, admission.ErrNotFree):
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "exhibition is not free", "reason": "NOT_FREE"})
		case errors.Is(err, repository.ErrAlreadyIssued):
			return c.JSON(http.StatusConflict, echo.Map{"error": "free ticket already issued", "reason": "ALREADY_ISSUED"})
		case errors.Is(err, repository.ErrSoldOut):
			return c.JSON(http.StatusConflict, echo.Map{"error": "free tickets sold out", "reason": "SOLD_OUT"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue ticket", "reason": "STORAGE"})
		}
	}

	_ = queue.PublishEngagementEvent(ctx, queue.EngagementEvent{
		Type:         queue.EventTicketIssued,
		UserID:       userID,
		TicketID:     ticket.ID,
		ExhibitionID: exhibitionID,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"ticket_id":    ticket.ID,
		"order_id":     ticket.OrderID,
		"people_count": ticket.PeopleCount,
		"amount":       ticket.Amount,
		"status":       ticket.Status,
	})
}

// ListMyTickets handles GET /v1/my-tickets for the authenticated member.
func (h *TicketHandler) ListMyTickets(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	tickets, err := h.Tickets.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load tickets", "reason": "STORAGE"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": tickets})
}
