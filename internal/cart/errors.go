package cart

import "errors"

// ErrInvalidInput is returned for a quantity below 1 or a negative price.
var ErrInvalidInput = errors.New("cart: invalid input")
