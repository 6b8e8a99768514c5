package domain

import "errors"

// Error taxonomy shared by the use cases and the adapters.
// Parse failures are deliberately absent: malformed numbers and dates are
// recovered to safe defaults by the normalizer and never surface as errors.
var (
	// ErrNotFound is returned when an asset (or other record) does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput rejects user input before any write occurs
	ErrInvalidInput = errors.New("invalid input")

	// ErrIntegrityViolation reports stored data that breaks an invariant,
	// e.g. two balance-adjustment entries for one account
	ErrIntegrityViolation = errors.New("integrity violation")

	// ErrProviderUnavailable wraps network, timeout and empty-result failures
	// coming from the market data provider
	ErrProviderUnavailable = errors.New("market data provider unavailable")
)
