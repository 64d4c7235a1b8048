package errors

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
)

func TestHTTPStatusDispositionTable(t *testing.T) {
	cases := []struct {
		code Code
		want int
	}{
		{CodeBookNotFound, 404},
		{CodeBorrowNotFound, 404},
		{CodePurchaseNotFound, 404},
		{CodeUserNotFound, 404},
		{CodeNoCopiesAvailable, 409},
		{CodeBorrowLimitExceeded, 409},
		{CodeBookBuyLimitExceeded, 409},
		{CodeTotalBuyLimitExceeded, 409},
		{CodeCancellationWindowExpired, 400},
		{CodeUserEmailRequired, 400},
		{CodeIdempotencyKeyRequired, 400},
		{CodeInvalidEmail, 400},
		{CodeInvalidField, 400},
		{CodeForbidden, 403},
		{CodeSerializationFailure, 500},
		{CodeInternal, 500},
		{CodeInsufficientFunds, 500},
	}

	for _, c := range cases {
		if got := c.code.HTTPStatus(); got != c.want {
			t.Errorf("Code(%q).HTTPStatus() = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestWriteJSONWritesEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, New(CodeBookNotFound, "book not found"))

	if rec.Code != 404 {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != CodeBookNotFound {
		t.Fatalf("expected code %q, got %q", CodeBookNotFound, resp.Error.Code)
	}
	if resp.Error.Message != "book not found" {
		t.Fatalf("expected message %q, got %q", "book not found", resp.Error.Message)
	}
}

func TestWriteJSONFallsBackToInternalForUntypedError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, errPlain("boom"))

	if rec.Code != 500 {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error.Code != CodeInternal {
		t.Fatalf("expected code %q, got %q", CodeInternal, resp.Error.Code)
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, CodeForbidden, "nope")

	if rec.Code != 403 {
		t.Fatalf("expected status 403, got %d", rec.Code)
	}
}

type errPlain string

func (e errPlain) Error() string { return string(e) }
