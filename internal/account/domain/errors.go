package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrAccountNotFound     = errors.New("account_not_found")
)
