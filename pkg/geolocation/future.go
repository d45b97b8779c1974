package geolocation

import (
	"context"
	"errors"
	"fmt"
)

// Errors matched by ResultError.Is.
var (
	// ErrPermissionDenied means the OS or the user refused a permission.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrEmptyResult means the provider completed without a fix.
	ErrEmptyResult = errors.New("location provider returned no fix")
	// ErrProvider means the provider itself failed.
	ErrProvider = errors.New("location provider failed")
	// ErrInvalidArguments means the action arguments could not be read.
	ErrInvalidArguments = errors.New("invalid action arguments")
)

// ResultError is a non-OK PluginResult returned by the Go-native API.
type ResultError struct {
	Status  Status
	Message string
}

func (e *ResultError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("geolocation: %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("geolocation: %s", e.Status)
}

// Is maps the status onto the package sentinels.
func (e *ResultError) Is(target error) bool {
	switch target {
	case ErrPermissionDenied:
		return e.Status == StatusIllegalAccess
	case ErrEmptyResult:
		return e.Status == StatusError
	case ErrProvider:
		return e.Status == StatusProviderError
	case ErrInvalidArguments:
		return e.Status == StatusJSONException || e.Status == StatusInvalidAction
	}
	return false
}

// future is a CallbackContext that hands its single result to a waiter.
type future chan PluginResult

func newFuture() future {
	return make(future, 1)
}

func (f future) SendPluginResult(result PluginResult) {
	select {
	case f <- result:
	default:
	}
}

// wait blocks until the result arrives or ctx is done. Giving up on ctx does
// not cancel the underlying request; its result is discarded.
func (f future) wait(ctx context.Context) (PluginResult, error) {
	select {
	case r := <-f:
		if r.Status != StatusOK {
			msg, _ := r.Message.(string)
			return r, &ResultError{Status: r.Status, Message: msg}
		}
		return r, nil
	case <-ctx.Done():
		return PluginResult{}, ctx.Err()
	}
}

// GetLocation acquires one fix, requesting permissions first if needed.
// ctx bounds the wait only.
func (p *Plugin) GetLocation(ctx context.Context, highAccuracy bool) (LocationFix, error) {
	f := newFuture()
	p.RequestCurrentLocation(highAccuracy, f)
	r, err := f.wait(ctx)
	if err != nil {
		return LocationFix{}, err
	}
	fix, ok := r.Message.(LocationFix)
	if !ok {
		return LocationFix{}, fmt.Errorf("geolocation: unexpected payload %T", r.Message)
	}
	return fix, nil
}

// RequestPermission ensures the permission set is granted, prompting the
// user if needed. ctx bounds the wait only.
func (p *Plugin) RequestPermission(ctx context.Context) error {
	f := newFuture()
	p.RequestPermissionCheck(f)
	_, err := f.wait(ctx)
	return err
}
