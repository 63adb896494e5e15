package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidRequest      = errors.New("invalid_request")
	ErrInvalidCustomer     = errors.New("invalid_customer")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrSessionNotFound     = errors.New("session_not_found")
	ErrRowNotFound         = errors.New("row_not_found")
	ErrInvalidField        = errors.New("invalid_field")
	ErrUnknownEvent        = errors.New("unknown_event")
	ErrAlreadySubmitted    = errors.New("invoice_already_submitted")
	ErrInvoiceNotFound     = errors.New("invoice_not_found")
	ErrInvalidAccount      = errors.New("invalid_account")
	ErrInvalidExchangeRate = errors.New("invalid_exchange_rate")
)

// FieldError describes one reason an invoice cannot be submitted.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitErrors collects every submission check that failed.
type SubmitErrors struct {
	Errors []FieldError `json:"errors"`
}

func (e *SubmitErrors) Error() string {
	codes := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		codes = append(codes, fe.Code)
	}
	return "invoice_invalid: " + strings.Join(codes, ",")
}

func (e *SubmitErrors) Add(field, code, message string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code, Message: message})
}

// Err returns nil when no check failed.
func (e *SubmitErrors) Err() error {
	if e == nil || len(e.Errors) == 0 {
		return nil
	}
	return e
}
