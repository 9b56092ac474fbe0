package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/artround/engagement-ledger/internal/repository"
	"github.com/artround/engagement-ledger/internal/service/review"
)

// ReviewHandler exposes the review submission flow. Authentication and
// role validation are performed by middleware; the handler only maps the
// request body onto the service contract and the service errors onto
// reason codes the calling UI branches on.
type ReviewHandler struct {
	Reviews review.Service
}

// NewReviewHandler constructs a ReviewHandler. The service must be non-nil.
func NewReviewHandler(reviews review.Service) *ReviewHandler {
	if reviews == nil {
		panic("nil service passed to NewReviewHandler")
	}
	return &ReviewHandler{Reviews: reviews}
}

// SubmitReview handles POST /v1/reviews. The body carries an optional
// exhibition_id (absent for custom reviews), a rating, the review text
// and the proof image URL already uploaded to the blob store. Responds
// 201 with the review and its pending grant, 400 with a VALIDATION
// reason, or 409 with ALREADY_REVIEWED.
func (h *ReviewHandler) SubmitReview(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		ExhibitionID  *uint64 `json:"exhibition_id"`
		Rating        uint8   `json:"rating"`
		Content       string  `json:"content"`
		ProofImageURL string  `json:"proof_image_url"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "reason": "VALIDATION"})
	}

	result, err := h.Reviews.SubmitReview(c.Request().Context(), review.SubmitInput{
		UserID:        userID,
		ExhibitionID:  body.ExhibitionID,
		Rating:        body.Rating,
		Content:       body.Content,
		ProofImageURL: body.ProofImageURL,
	})
	if err != nil {
		switch {
		case errors.Is(err, review.ErrRatingOutOfRange),
			errors.Is(err, review.ErrContentTooShort),
			errors.Is(err, review.ErrProofRequired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error(), "reason": "VALIDATION"})
		case errors.Is(err, repository.ErrAlreadyReviewed):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already reviewed", "reason": review.ReasonAlreadyReviewed})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to submit review", "reason": "STORAGE"})
		}
	}

	resp := echo.Map{
		"review_id":  result.Review.ID,
		"created_at": result.Review.CreatedAt,
	}
	if result.Grant != nil {
		resp["pending_points"] = result.Grant.Amount
		resp["transaction_id"] = result.Grant.ID
	}
	return c.JSON(http.StatusCreated, resp)
}
