package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/artround/engagement-ledger/internal/model"
	"github.com/artround/engagement-ledger/internal/queue"
	"github.com/artround/engagement-ledger/internal/repository"
	"github.com/artround/engagement-ledger/internal/service/points"
)

// PointsHandler exposes the member balance view and the administrator
// moderation queue with its approve/reject transitions.
type PointsHandler struct {
	Ledger points.Service
}

// NewPointsHandler constructs a PointsHandler. The service must be non-nil.
func NewPointsHandler(ledger points.Service) *PointsHandler {
	if ledger == nil {
		panic("nil service passed to NewPointsHandler")
	}
	return &PointsHandler{Ledger: ledger}
}

// Balance handles GET /v1/points/balance for the authenticated member.
func (h *PointsHandler) Balance(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	balance, err := h.Ledger.BalanceOf(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to compute balance", "reason": "STORAGE"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user_id": userID, "balance": balance})
}

// History handles GET /v1/points/history for the authenticated member.
func (h *PointsHandler) History(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txs, err := h.Ledger.HistoryOf(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load history", "reason": "STORAGE"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": txs})
}

// ListPending handles GET /v1/admin/points/pending. The optional
// ?window= query (Go duration, e.g. "48h") overrides the configured
// moderation window. Results are grouped by user with count and total.
// The listing is a snapshot: a grant decided mid-listing may still
// appear, and acting on it yields ALREADY_DECIDED.
func (h *PointsHandler) ListPending(c echo.Context) error {
	var window time.Duration
	if raw := c.QueryParam("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid window", "reason": "VALIDATION"})
		}
		window = d
	}
	groups, err := h.Ledger.ListPending(c.Request().Context(), window)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load pending grants", "reason": "STORAGE"})
	}
	return c.JSON(http.StatusOK, echo.Map{"groups": groups})
}

// Approve handles POST /v1/admin/points/:id/approve.
func (h *PointsHandler) Approve(c echo.Context) error {
	return h.decide(c, true)
}

// Reject handles POST /v1/admin/points/:id/reject. The body may carry a
// {"note": ...} recorded on the transaction.
func (h *PointsHandler) Reject(c echo.Context) error {
	return h.decide(c, false)
}

func (h *PointsHandler) decide(c echo.Context, approve bool) error {
	adminID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	txID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || txID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id", "reason": "VALIDATION"})
	}

	ctx := c.Request().Context()
	var note string
	if !approve {
		var body struct {
			Note string `json:"note"`
		}
		if err := c.Bind(&body); err == nil {
			note = body.Note
		}
	}

	var decidedTx *model.PointTransaction
	if approve {
		decidedTx, err = h.Ledger.Approve(ctx, txID, adminID)
	} else {
		decidedTx, err = h.Ledger.Reject(ctx, txID, adminID, note)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrTransactionNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found", "reason": "NOT_FOUND"})
		case errors.Is(err, repository.ErrAlreadyDecided):
			return c.JSON(http.StatusConflict, echo.Map{"error": "transaction already decided", "reason": "ALREADY_DECIDED"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to decide transaction", "reason": "STORAGE"})
		}
	}

	// Event emission is best-effort observability.
	_ = queue.PublishEngagementEvent(ctx, queue.EngagementEvent{
		Type:          queue.EventPointsDecided,
		UserID:        decidedTx.UserID,
		TransactionID: decidedTx.ID,
		Amount:        decidedTx.Amount,
		Status:        decidedTx.Status,
		Detail:        note,
	})

	return c.JSON(http.StatusOK, echo.Map{
		"transaction_id": decidedTx.ID,
		"status":         decidedTx.Status,
		"decided_at":     decidedTx.DecidedAt,
		"decided_by":     decidedTx.DecidedBy,
	})
}
