package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/avendano-dev/storefront-backend/pkg/errors"
	"github.com/avendano-dev/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope
}

func TestWriteSuccess(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"status": "ok"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}

	var envelope types.SuccessEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["status"] != "ok" {
		t.Fatalf("unexpected payload %+v", envelope.Data)
	}
}

func TestWriteSuccessStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteSuccessStatus(rec, http.StatusCreated, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestWriteErrorMapsCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   pkgerrors.Code
		status int
	}{
		{pkgerrors.CodeValidation, http.StatusBadRequest},
		{pkgerrors.CodeUnauthorized, http.StatusUnauthorized},
		{pkgerrors.CodePaymentDeclined, http.StatusPaymentRequired},
		{pkgerrors.CodeConflict, http.StatusConflict},
		{pkgerrors.CodeStateConflict, http.StatusUnprocessableEntity},
		{pkgerrors.CodeDependency, http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, pkgerrors.New(tc.code, "nope"))
		if rec.Code != tc.status {
			t.Fatalf("code %s: expected %d, got %d", tc.code, tc.status, rec.Code)
		}
	}
}

func TestWriteErrorPassesClientSafeMessages(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"))

	envelope := decodeError(t, rec)
	if envelope.Error.Message != "quantity must be positive" {
		t.Fatalf("expected message pass-through, got %q", envelope.Error.Message)
	}
}

func TestWriteErrorHidesInternalMessages(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeInternal, "pointer dereference in cart.go"))

	envelope := decodeError(t, rec)
	if envelope.Error.Message == "pointer dereference in cart.go" {
		t.Fatalf("internal detail leaked to the client")
	}
	if envelope.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
}

func TestWriteErrorWrapsUntypedErrors(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("raw failure"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for untyped errors, got %d", rec.Code)
	}
	envelope := decodeError(t, rec)
	if envelope.Error.Code != string(pkgerrors.CodeInternal) {
		t.Fatalf("unexpected code %q", envelope.Error.Code)
	}
}

func TestWriteErrorDetailsGating(t *testing.T) {
	t.Parallel()

	details := map[string]string{"quantity": "must be at least 1"}

	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeValidation, "invalid input").WithDetails(details))
	envelope := decodeError(t, rec)
	if envelope.Error.Details == nil {
		t.Fatalf("validation details should reach the client")
	}

	rec = httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, pkgerrors.New(pkgerrors.CodeInternal, "boom").WithDetails(details))
	envelope = decodeError(t, rec)
	if envelope.Error.Details != nil {
		t.Fatalf("internal details must not leak")
	}
}
