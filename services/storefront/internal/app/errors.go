package app

import "errors"

var (
	// ErrProductNotFound indicates the id is absent from the loaded catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrIncompleteContact indicates a contact message with a blank field.
	ErrIncompleteContact = errors.New("name, email, subject and message are required")
)
