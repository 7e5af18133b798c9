package exchange

import "errors"

var (
	// ErrInsufficientFiat refuses a buy order whose cost exceeds usable fiat.
	ErrInsufficientFiat = errors.New("insufficient usable fiat")
	// ErrInsufficientCoins refuses a transfer or sell order exceeding usable coins.
	ErrInsufficientCoins = errors.New("insufficient coins")
	// ErrNegativeAmount refuses transfers of a negative coin amount.
	ErrNegativeAmount = errors.New("negative transfer amount")
	// ErrNonPositiveQuantity refuses orders for zero or negative quantity.
	ErrNonPositiveQuantity = errors.New("order quantity must be positive")
)
