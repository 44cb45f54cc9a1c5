package engine

import "errors"

// Sentinel errors surfaced to the façade, which maps them onto the HTTP
// error envelope. Downstream port failures are wrapped with %w and reach
// the façade as none-of-the-below (dependency errors).
var (
	// ErrInsufficientStock means a sell was placed for more shares than
	// the user owns.
	ErrInsufficientStock = errors.New("insufficient stock balance")

	// ErrPortfolioUpdate means the reservation decrement could not be
	// applied even though the balance check passed.
	ErrPortfolioUpdate = errors.New("portfolio update failed")

	// ErrNotFound means a cancellation target is absent from the book:
	// unknown, not owned by the caller, or already matched or cancelled.
	ErrNotFound = errors.New("order not found")

	// ErrUnknownStock means the order referenced a stock id the catalog
	// has never seen.
	ErrUnknownStock = errors.New("unknown stock")

	// ErrInvalidOrder means quantity or price failed the engine's own
	// guards. The façade normally rejects these before the engine runs.
	ErrInvalidOrder = errors.New("invalid order")
)
