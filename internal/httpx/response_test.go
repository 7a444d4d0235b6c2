package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fekuna/omnipos-store-service/internal/apperror"
	"github.com/fekuna/omnipos-store-service/internal/logger"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		kind apperror.Kind
		want int
	}{
		{apperror.KindValidation, http.StatusBadRequest},
		{apperror.KindNotFound, http.StatusNotFound},
		{apperror.KindConflict, http.StatusConflict},
		{apperror.KindStateInvariant, http.StatusUnprocessableEntity},
		{apperror.KindInfrastructure, http.StatusInternalServerError},
		{apperror.KindUnauthorized, http.StatusUnauthorized},
		{apperror.KindForbidden, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := StatusOf(tt.kind); got != tt.want {
				t.Fatalf("StatusOf(%s) = %d, want %d", tt.kind, got, tt.want)
			}
		})
	}
}

func serve(err error) *httptest.ResponseRecorder {
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { Error(c, logger.NewNop(), err) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	return w
}

func TestErrorEnvelopeCarriesCodeAndDetails(t *testing.T) {
	err := apperror.Conflict(apperror.CodeInsufficientStock, "not enough stock").With("available", 2)
	w := serve(err)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Code != apperror.CodeInsufficientStock {
		t.Fatalf("unexpected body %+v", body)
	}
	if body.Details["available"] != float64(2) {
		t.Fatalf("expected available=2, got %v", body.Details["available"])
	}
}

func TestErrorHidesInfrastructureCause(t *testing.T) {
	w := serve(errors.New("dial tcp 10.0.0.1:5432: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body Response
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "internal server error" || body.Code != apperror.CodeInternal {
		t.Fatalf("leaked cause: %+v", body)
	}
}

func TestNewPageTotalPages(t *testing.T) {
	p := NewPage([]int{1, 2}, 1, 2, 5)
	if p.Pagination.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", p.Pagination.TotalPages)
	}
}
