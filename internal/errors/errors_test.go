package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestDomainError(t *testing.T) {
	err := NewDomainError("size position", "entry equals stop loss", ErrDivisionByZero)
	if !strings.Contains(err.Error(), "size position") || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("unexpected message %q", err.Error())
	}
	wrapped := Wrap(err, "plan")
	if !IsDomain(wrapped) {
		t.Error("IsDomain should see through wrapping")
	}
	if !Is(wrapped, ErrDivisionByZero) {
		t.Error("expected ErrDivisionByZero in chain")
	}
	if IsDomain(errors.New("plain")) {
		t.Error("plain error is not a DomainError")
	}
}

func TestValidationErrorUnwrapsToSentinel(t *testing.T) {
	err := NewValidationError("risk_percent", 120.0, "must be in (0, 100]")
	if !errors.Is(err, ErrInputValidation) {
		t.Error("ValidationError should match ErrInputValidation")
	}
	var ve *ValidationError
	if !As(Wrapf(err, "field %d", 3), &ve) || ve.Field != "risk_percent" {
		t.Errorf("As failed, got %+v", ve)
	}
}

func TestStoreError(t *testing.T) {
	err := NewStoreError("assets", "get", "abc", ErrDataNotFound)
	if !errors.Is(err, ErrDataNotFound) {
		t.Error("StoreError should unwrap to its cause")
	}
	if got := err.Error(); got != "store error [assets] get abc: data not found" {
		t.Errorf("Error() = %q", got)
	}
	if got := NewStoreError("profiles", "list", "", ErrDatabaseError).Error(); got != "store error [profiles] list: database error" {
		t.Errorf("Error() without id = %q", got)
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "x") != nil || Wrapf(nil, "x %d", 1) != nil {
		t.Error("wrapping nil must return nil")
	}
}

func TestAgentAndDataErrors(t *testing.T) {
	cause := errors.New("503")
	if !errors.Is(NewAgentError("gemini", "chat", cause), cause) {
		t.Error("AgentError should unwrap")
	}
	if !errors.Is(NewDataError("quote", "AAPL", "fetch failed", cause), cause) {
		t.Error("DataError should unwrap")
	}
	if got := NewDataError("quote", "AAPL", "empty", nil).Error(); got != "data error [quote] AAPL: empty" {
		t.Errorf("Error() = %q", got)
	}
}
