package checkout

import "errors"

var (
	ErrEmptyCart            = errors.New("cart is empty, nothing to checkout")
	ErrInvalidPaymentMethod = errors.New("unsupported payment method")
	ErrCheckoutInProgress   = errors.New("checkout already in progress")
)
