package payment

import (
	"github.com/tmarchant/vesper/internal/domain"
)

var (
	// ErrProviderUnavailable marks a transient provider failure. The order
	// stays PENDING and the capture can be retried safely.
	ErrProviderUnavailable = &domain.Error{
		Code:    domain.EUNAVAILABLE,
		Message: "Payment provider is temporarily unavailable, please retry",
	}

	// ErrProviderDeclined marks a definitive refusal. Retrying without a
	// different payment method will not help.
	ErrProviderDeclined = &domain.Error{
		Code:    domain.EPAYMENT,
		Message: "Payment was declined by the provider",
	}

	// ErrInvalidAmount rejects a capture for a non-positive amount.
	ErrInvalidAmount = &domain.Error{
		Code:    domain.EINVALID,
		Message: "Payment amount must be positive",
	}

	// ErrNoProviderOrder means capture was attempted before a provider
	// order was opened for the order.
	ErrNoProviderOrder = &domain.Error{
		Code:    domain.ECONFLICT,
		Message: "Order has no payment provider order to capture",
	}
)
