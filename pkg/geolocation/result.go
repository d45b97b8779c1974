package geolocation

import (
	"fmt"
	"sync/atomic"

	"github.com/go-drift/geolocation/pkg/errors"
)

// Status is the outcome code carried by a PluginResult. Values follow the
// host runtime's plugin-result table so script-layer callers can switch on
// them unchanged.
type Status int

// Plugin result statuses.
const (
	StatusNoResult      Status = 0
	StatusOK            Status = 1
	StatusIllegalAccess Status = 3
	StatusInvalidAction Status = 7
	StatusJSONException Status = 8
	StatusError         Status = 9

	// StatusProviderError reports a failure raised by the location provider
	// itself. It has no counterpart in the host table.
	StatusProviderError Status = 10
)

func (s Status) String() string {
	switch s {
	case StatusNoResult:
		return "NO_RESULT"
	case StatusOK:
		return "OK"
	case StatusIllegalAccess:
		return "ILLEGAL_ACCESS"
	case StatusInvalidAction:
		return "INVALID_ACTION"
	case StatusJSONException:
		return "JSON_EXCEPTION"
	case StatusError:
		return "ERROR"
	case StatusProviderError:
		return "PROVIDER_ERROR"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// PluginResult is a single response sent back across the bridge.
// Message is nil for statuses without payload.
type PluginResult struct {
	Status  Status
	Message any
}

// CallbackContext is the caller waiting on an invocation. The plugin sends
// exactly one terminal result to it.
type CallbackContext interface {
	SendPluginResult(result PluginResult)
}

// CallbackFunc adapts a function to CallbackContext.
type CallbackFunc func(result PluginResult)

// SendPluginResult calls f(result).
func (f CallbackFunc) SendPluginResult(result PluginResult) {
	f(result)
}

// onceCallback forwards the first result to the wrapped callback and reports
// any later one instead of delivering it.
type onceCallback struct {
	action string
	inner  CallbackContext
	sent   atomic.Bool
}

func (c *onceCallback) SendPluginResult(result PluginResult) {
	if !c.sent.CompareAndSwap(false, true) {
		errors.Report(&errors.PluginError{
			Op:     "geolocation.deliver",
			Action: c.action,
			Err:    fmt.Errorf("duplicate %s response dropped", result.Status),
		})
		return
	}
	defer errors.Recover("geolocation.deliver", nil)
	c.inner.SendPluginResult(result)
}
