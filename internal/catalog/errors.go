package catalog

import "errors"

// ErrInvalidCatalog marks a catalog document that failed to decode or check.
var ErrInvalidCatalog = errors.New("invalid catalog")
