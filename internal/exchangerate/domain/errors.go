package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCurrency     = errors.New("invalid_currency")
	ErrRateNotFound        = errors.New("exchange_rate_not_found")
)
