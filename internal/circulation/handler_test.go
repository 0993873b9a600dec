// internal/circulation/handler_test.go
package circulation_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfmark/internal/circulation"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	f := newFixture(t)
	r := chi.NewRouter()
	circulation.NewHandler(f.service).Routes(r)
	return r
}

func post(t *testing.T, r chi.Router, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlePurchase(t *testing.T) {
	r := newTestRouter(t)

	rec := post(t, r, "/circulation/purchase",
		`{"school_id":"S001","class":"10","barcode":"B001","confirmed":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var receipt circulation.Receipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	assert.Equal(t, circulation.StatusCompleted, receipt.Status)
	assert.Equal(t, circulation.KindPurchase, receipt.Kind)
	assert.False(t, receipt.Book.Available)
}

func TestHandlePurchaseValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"invalid student", `{"school_id":"S999","class":"10","barcode":"B001","confirmed":true}`, http.StatusUnprocessableEntity},
		{"unknown barcode", `{"school_id":"S001","class":"10","barcode":"B999","confirmed":true}`, http.StatusNotFound},
		{"checked out copy", `{"school_id":"S001","class":"10","barcode":"B003","confirmed":true}`, http.StatusUnprocessableEntity},
		{"missing fields", `{"school_id":"S001"}`, http.StatusBadRequest},
		{"malformed json", `{school_id}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(t)
			rec := post(t, r, "/circulation/purchase", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleDeclinedPurchase(t *testing.T) {
	r := newTestRouter(t)

	rec := post(t, r, "/circulation/purchase",
		`{"school_id":"S001","class":"10","barcode":"B001","confirmed":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	// A declined transaction never completed, so the receipt carries no
	// completion timestamp at all.
	assert.NotContains(t, body, "completed_at")
	assert.NotContains(t, body, "sequence_id")

	var receipt circulation.Receipt
	require.NoError(t, json.NewDecoder(strings.NewReader(body)).Decode(&receipt))
	assert.Equal(t, circulation.StatusDeclined, receipt.Status)
	assert.Nil(t, receipt.CompletedAt)
}

func TestHandleReturn(t *testing.T) {
	r := newTestRouter(t)

	rec := post(t, r, "/circulation/purchase",
		`{"school_id":"S001","class":"10","barcode":"B001","confirmed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = post(t, r, "/circulation/return",
		`{"school_id":"S001","class":"10","barcode":"B001","confirmed":true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var receipt circulation.Receipt
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&receipt))
	assert.Equal(t, circulation.KindReturn, receipt.Kind)
	assert.True(t, receipt.Book.Available)
}

func TestHandleReturnWithoutPurchase(t *testing.T) {
	r := newTestRouter(t)

	rec := post(t, r, "/circulation/return",
		`{"school_id":"S001","class":"10","barcode":"B003","confirmed":true}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}
