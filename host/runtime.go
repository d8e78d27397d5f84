package host

import (
	"errors"
	"fmt"
	"math/big"
	"time"
)

var (
	// ErrUnknownContract is delivered to callbacks when a call targets an
	// address with no registered handler.
	ErrUnknownContract = errors.New("host: unknown contract")
)

// Handler is implemented by contracts that can receive cross-contract calls.
// The signer is the account that initiated the outermost transaction, not the
// contract that issued the call.
type Handler interface {
	Receive(signer string, msg any) (any, error)
}

// CallResult carries the outcome of an asynchronous cross-contract call back
// to the callback attached by the issuing contract.
type CallResult struct {
	Value any
	Err   error
}

// Success reports whether the call completed without error.
func (r CallResult) Success() bool { return r.Err == nil }

type queuedCall struct {
	signer   string
	target   string
	msg      any
	callback func(CallResult)
}

// Runtime models the deterministic, single-lane execution environment the
// contracts run in. Calls against registered contracts are serialized into a
// strict FIFO order; an asynchronous call suspends the issuing logical action
// until the runtime delivers its callback, exactly once, with either a
// success or a failure outcome. No locks are needed: one goroutine drives the
// runtime end to end.
type Runtime struct {
	handlers        map[string]Handler
	queue           []queuedCall
	nowFn           func() time.Time
	storageByteCost *big.Int
}

// NewRuntime constructs a runtime with the supplied per-byte storage price.
func NewRuntime(storageByteCost *big.Int) *Runtime {
	cost := big.NewInt(0)
	if storageByteCost != nil {
		cost = new(big.Int).Set(storageByteCost)
	}
	return &Runtime{
		handlers:        make(map[string]Handler),
		nowFn:           time.Now,
		storageByteCost: cost,
	}
}

// Register associates a contract address with its handler. Re-registering an
// address replaces the previous handler.
func (r *Runtime) Register(addr string, h Handler) {
	r.handlers[addr] = h
}

// SetNowFunc overrides the time source used for block timestamps. Primarily
// intended for tests to provide deterministic timestamps.
func (r *Runtime) SetNowFunc(now func() time.Time) {
	if now == nil {
		r.nowFn = time.Now
		return
	}
	r.nowFn = now
}

// BlockTimestamp returns the current block time in nanoseconds.
func (r *Runtime) BlockTimestamp() uint64 {
	return uint64(r.nowFn().UnixNano())
}

// StorageByteCost returns the prevailing price per persisted byte.
func (r *Runtime) StorageByteCost() *big.Int {
	return new(big.Int).Set(r.storageByteCost)
}

// Invoke schedules an asynchronous call against the target contract. The
// callback, when non-nil, is delivered exactly once after the target has
// executed, carrying either the handler's return value or its error. The
// issuing contract must not mutate state between Invoke and the callback.
func (r *Runtime) Invoke(signer, target string, msg any, callback func(CallResult)) {
	r.queue = append(r.queue, queuedCall{
		signer:   signer,
		target:   target,
		msg:      msg,
		callback: callback,
	})
}

// Step executes the next queued call and delivers its callback. It reports
// whether a call was executed.
func (r *Runtime) Step() bool {
	if len(r.queue) == 0 {
		return false
	}
	call := r.queue[0]
	r.queue = r.queue[1:]

	var result CallResult
	handler, ok := r.handlers[call.target]
	if !ok {
		result.Err = fmt.Errorf("%w: %s", ErrUnknownContract, call.target)
	} else {
		result.Value, result.Err = handler.Receive(call.signer, call.msg)
	}
	if call.callback != nil {
		call.callback(result)
	}
	return true
}

// Run drains the call queue, including calls enqueued by callbacks, until the
// runtime is quiescent.
func (r *Runtime) Run() {
	for r.Step() {
	}
}

// Pending reports the number of calls awaiting execution.
func (r *Runtime) Pending() int { return len(r.queue) }
