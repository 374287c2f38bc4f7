package ledger

import "errors"

// Ledger error kinds. All public operations return these unwrapped or
// wrapped with call context; nothing is swallowed internally.
var (
	// ErrInsufficientBalance means a redemption asked for more points than
	// the customer (or lot) has available. Recoverable by the caller.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrInvalidLotState means the operation is not allowed for the lot's
	// current status, e.g. cancelling an expired lot. Caller error.
	ErrInvalidLotState = errors.New("ledger: invalid lot state")

	// ErrConcurrencyConflict means a compare-and-swap precondition failed
	// mid-transaction. The whole call rolled back; callers retry bounded.
	ErrConcurrencyConflict = errors.New("ledger: concurrency conflict")

	// ErrLotNotFound means the referenced lot or payment has no lots.
	ErrLotNotFound = errors.New("ledger: lot not found")

	// ErrInvalidArgument means the request itself is malformed
	// (non-positive points, refund exceeding the original amount, ...).
	ErrInvalidArgument = errors.New("ledger: invalid argument")
)
