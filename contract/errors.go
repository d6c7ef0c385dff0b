package contract

import "errors"

// Sentinel errors for the registry's failure classes. Operations wrap these
// with call-site context via %w so callers can classify failures with
// errors.Is. Every failed precondition aborts the transaction with no state
// change; the ledger discards the write set of a failed invocation.
var (
	// ErrUnauthorized means the caller lacks the capability the operation
	// requires (not the owner, or not a currently authorized contributor).
	ErrUnauthorized = errors.New("caller is not authorized for this operation")

	// ErrForbidden means the caller holds no qualifying relationship to the
	// target record (update is creator-exclusive; deactivate is creator or owner).
	ErrForbidden = errors.New("caller may not act on this record")

	// ErrInvalidArgument flags empty or zero-value inputs.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAlreadyAuthorized guards grant idempotency: granting an identity that
	// is currently authorized fails without touching state.
	ErrAlreadyAuthorized = errors.New("contributor is already authorized")

	// ErrNotAuthorized is the revoke-side guard: the identity is not currently
	// an authorized contributor.
	ErrNotAuthorized = errors.New("contributor is not currently authorized")

	// ErrRecordNotFound is returned by reads when the identifier is 0 or was
	// never assigned.
	ErrRecordNotFound = errors.New("record does not exist")

	// ErrRecordInactive is returned by mutations when the target record is
	// absent or already deactivated. Nonexistence is treated as a special case
	// of inactive for mutation preconditions.
	ErrRecordInactive = errors.New("record is inactive")
)
