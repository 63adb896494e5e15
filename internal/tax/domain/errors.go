package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTaxCode      = errors.New("invalid_tax_code")
	ErrInvalidName         = errors.New("invalid_name")
	ErrNotFound            = errors.New("not_found")
)
