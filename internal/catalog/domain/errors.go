package domain

import "errors"

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidItemID       = errors.New("invalid_item_id")
	ErrItemNotFound        = errors.New("item_not_found")
)
