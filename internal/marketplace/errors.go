package marketplace

import "errors"

var (
	ErrInvalidPrice        = errors.New("price must be greater than 0")
	ErrNotTokenOwner       = errors.New("not token owner")
	ErrListingNotActive    = errors.New("listing is not active")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrTransferFailed      = errors.New("transfer failed")
)
