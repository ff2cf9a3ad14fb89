package models

import "errors"

// ErrValidation marks a rejected user action; no state was mutated.
var ErrValidation = errors.New("validation failed")

// ErrEmptyCart indicates a bill was requested for a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// ErrUnknownItem indicates an item name is absent from the catalog or stock table.
var ErrUnknownItem = errors.New("unknown item")

// ErrMalformedData indicates a remote file could not be decoded.
var ErrMalformedData = errors.New("malformed data")
