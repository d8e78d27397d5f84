package host

import "errors"

// ErrReceiptPending is returned by Receipt.Result while the underlying call
// chain has not yet resolved.
var ErrReceiptPending = errors.New("host: receipt pending")

// Receipt is the handle returned to the external caller of a mutating
// contract operation. It resolves once the operation's asynchronous call
// chain completes, to either a typed result or a terminal error.
type Receipt struct {
	resolved bool
	value    any
	err      error
}

// NewReceipt returns an unresolved receipt.
func NewReceipt() *Receipt { return &Receipt{} }

// Resolve records the terminal outcome. Resolving twice is a programming
// error and panics, mirroring the exactly-once callback guarantee.
func (r *Receipt) Resolve(value any, err error) {
	if r.resolved {
		panic("host: receipt resolved twice")
	}
	r.resolved = true
	r.value = value
	r.err = err
}

// Resolved reports whether a terminal outcome has been recorded.
func (r *Receipt) Resolved() bool { return r.resolved }

// Result returns the terminal outcome, or ErrReceiptPending while the call
// chain is still in flight.
func (r *Receipt) Result() (any, error) {
	if !r.resolved {
		return nil, ErrReceiptPending
	}
	return r.value, r.err
}
