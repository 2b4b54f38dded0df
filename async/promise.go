// Package async provides a minimal promise type for operations that complete off the main
// thread. The loading pipeline is cooperative: it never blocks on a promise, it polls
// Settled from its tick loop and reads the value once settled.
package async

import (
	"fmt"
	"sync"
)

// Promise holds the eventual result of an asynchronous operation. A promise settles exactly
// once, either with a value or with an error; later Resolve/Reject calls are ignored so a
// racing producer cannot overwrite a settled result.
type Promise[T any] struct {
	mu      sync.Mutex
	settled bool
	value   T
	err     error
}

// NewPromise creates an unsettled promise.
//
// Returns:
//   - *Promise[T]: a promise with no value or error yet
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{}
}

// Resolved creates a promise already settled with a value.
//
// Parameters:
//   - value: the value to settle with
//
// Returns:
//   - *Promise[T]: a settled promise
func Resolved[T any](value T) *Promise[T] {
	p := &Promise[T]{}
	p.Resolve(value)
	return p
}

// Rejected creates a promise already settled with an error.
//
// Parameters:
//   - err: the error to settle with
//
// Returns:
//   - *Promise[T]: a settled promise
func Rejected[T any](err error) *Promise[T] {
	p := &Promise[T]{}
	p.Reject(err)
	return p
}

// Resolve settles the promise with a value. No-op if already settled.
//
// Parameters:
//   - value: the result value
func (p *Promise[T]) Resolve(value T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.settled = true
	p.value = value
}

// Reject settles the promise with an error. No-op if already settled.
//
// Parameters:
//   - err: the failure cause
func (p *Promise[T]) Reject(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.settled {
		return
	}
	p.settled = true
	p.err = err
}

// Settled reports whether the promise has a result. Safe to call from any goroutine.
//
// Returns:
//   - bool: true once Resolve or Reject has run
func (p *Promise[T]) Settled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settled
}

// Value returns the settled result. The boolean result distinguishes "not settled yet" from
// "settled with the zero value".
//
// Returns:
//   - T: the value, meaningful only when settled without error
//   - error: the rejection cause, nil when resolved
//   - bool: false while the promise is still pending
func (p *Promise[T]) Value() (T, error, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err, p.settled
}

// Go runs fn on its own goroutine and returns a promise settled with its result. A panic in
// fn rejects the promise instead of crashing the process.
//
// Parameters:
//   - fn: the work to run
//
// Returns:
//   - *Promise[T]: settled when fn returns or panics
func Go[T any](fn func() (T, error)) *Promise[T] {
	p := NewPromise[T]()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(fmt.Errorf("async task panicked: %v", r))
			}
		}()
		v, err := fn()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	}()
	return p
}
