package errors

import (
	"runtime/debug"
	"sync/atomic"
	"time"
)

// ErrorHandler receives every report. Implementations must be safe for
// concurrent use; reports arrive from bridge and provider goroutines.
type ErrorHandler interface {
	HandleError(err *PluginError)
	HandlePanic(err *PanicError)
}

type handlerSlot struct {
	h ErrorHandler
}

var active atomic.Value // handlerSlot

func init() {
	active.Store(handlerSlot{NewLogHandler(nil, false)})
}

// SetHandler installs h and returns the handler it replaced. A nil h
// installs a fresh stderr LogHandler.
func SetHandler(h ErrorHandler) (previous ErrorHandler) {
	if h == nil {
		h = NewLogHandler(nil, false)
	}
	return active.Swap(handlerSlot{h}).(handlerSlot).h
}

// Handler returns the installed handler.
func Handler() ErrorHandler {
	return active.Load().(handlerSlot).h
}

// Report hands err to the installed handler, stamping it if needed.
func Report(err *PluginError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// ReportPanic hands err to the installed handler, stamping it if needed.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandlePanic(err)
}

// Recover stops a panic in progress, reports it under op and then passes
// the panic value to onPanic when it is non-nil. It only works when
// deferred directly:
//
//	defer errors.Recover("geolocation.acquireFix", answerCaller)
func Recover(op string, onPanic func(r any)) {
	r := recover()
	if r == nil {
		return
	}
	ReportPanic(&PanicError{Op: op, Value: r, Stack: string(debug.Stack())})
	if onPanic != nil {
		onPanic(r)
	}
}
