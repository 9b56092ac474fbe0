package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/artround/engagement-ledger/internal/model"
	"github.com/artround/engagement-ledger/internal/repository"
	"github.com/artround/engagement-ledger/internal/service/review"
)

// stubReviews scripts the review service for status-mapping tests.
type stubReviews struct {
	result *review.SubmitResult
	err    error
	gotIn  review.SubmitInput
}

func (s *stubReviews) CanSubmitReview(ctx context.Context, userID uint64, exhibitionID *uint64) (review.Eligibility, error) {
	return review.Eligibility{Allowed: true}, nil
}

func (s *stubReviews) SubmitReview(ctx context.Context, in review.SubmitInput) (*review.SubmitResult, error) {
	s.gotIn = in
	return s.result, s.err
}

func postReview(t *testing.T, svc review.Service, userID interface{}, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/reviews", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != nil {
		c.Set("user_id", userID)
	}
	h := NewReviewHandler(svc)
	if err := h.SubmitReview(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestSubmitReviewCreated(t *testing.T) {
	exhibitionID := uint64(10)
	svc := &stubReviews{result: &review.SubmitResult{
		Review: &model.Review{ID: 31, UserID: 7, ExhibitionID: &exhibitionID},
		Grant:  &model.PointTransaction{ID: 55, Amount: model.ReviewRewardPoints, Status: model.TxStatusPending},
	}}

	rec := postReview(t, svc, uint64(7),
		`{"exhibition_id":10,"rating":5,"content":"A quiet, careful retrospective.","proof_image_url":"https://cdn.example.com/p.jpg"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["review_id"].(float64) != 31 {
		t.Fatalf("expected review_id 31, got %v", resp["review_id"])
	}
	if resp["pending_points"].(float64) != float64(model.ReviewRewardPoints) {
		t.Fatalf("expected pending_points %d, got %v", model.ReviewRewardPoints, resp["pending_points"])
	}
	if svc.gotIn.UserID != 7 {
		t.Fatalf("expected user 7 on the service call, got %d", svc.gotIn.UserID)
	}
	if svc.gotIn.ExhibitionID == nil || *svc.gotIn.ExhibitionID != 10 {
		t.Fatalf("exhibition id not forwarded: %v", svc.gotIn.ExhibitionID)
	}
}

func TestSubmitReviewErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantReason string
	}{
		{"validation", review.ErrContentTooShort, http.StatusBadRequest, "VALIDATION"},
		{"duplicate", repository.ErrAlreadyReviewed, http.StatusConflict, review.ReasonAlreadyReviewed},
		{"storage", errors.New("db gone"), http.StatusInternalServerError, "STORAGE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postReview(t, &stubReviews{err: tc.err}, uint64(7),
				`{"rating":5,"content":"long enough content","proof_image_url":"https://x/p.jpg"}`)
			if rec.Code != tc.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tc.wantStatus, rec.Code, rec.Body.String())
			}
			var resp map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid response body: %v", err)
			}
			if resp["reason"] != tc.wantReason {
				t.Fatalf("expected reason %q, got %v", tc.wantReason, resp["reason"])
			}
		})
	}
}

func TestSubmitReviewUnauthorized(t *testing.T) {
	rec := postReview(t, &stubReviews{}, nil, `{}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user_id, got %d", rec.Code)
	}
}

func TestSubmitReviewGrantGapOmitsPoints(t *testing.T) {
	svc := &stubReviews{result: &review.SubmitResult{Review: &model.Review{ID: 31, UserID: 7}}}
	rec := postReview(t, svc, uint64(7),
		`{"rating":4,"content":"worth a second visit","proof_image_url":"https://x/p.jpg"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if _, ok := resp["pending_points"]; ok {
		t.Fatal("pending_points must be absent when no grant was opened")
	}
}
