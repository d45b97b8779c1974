// Package geolocation implements the location plugin exposed to the hybrid
// script layer. The plugin gates every request on the location permission
// set, asks the OS for it when needed, and answers each request with exactly
// one result: a one-shot fix, an empty-result error, a permission denial or a
// provider failure.
package geolocation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/platform"
)

// Actions accepted by Execute.
const (
	ActionGetPermission = "getPermission"
	ActionGetLocation   = "getLocation"
)

// PermissionSet is an ordered, immutable list of permission names.
type PermissionSet struct {
	names []string
}

// NewPermissionSet returns a set holding names in order.
func NewPermissionSet(names ...string) PermissionSet {
	return PermissionSet{names: append([]string(nil), names...)}
}

// DefaultPermissionSet is coarse then fine location access.
var DefaultPermissionSet = NewPermissionSet(
	platform.PermissionCoarseLocation,
	platform.PermissionFineLocation,
)

// Names returns a copy of the permission names in order.
func (s PermissionSet) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of permissions in the set.
func (s PermissionSet) Len() int {
	return len(s.names)
}

// PermissionSubsystem is the OS runtime-permission API. Results of
// RequestPermissions are delivered later to Plugin.OnPermissionResult with
// the same request code.
type PermissionSubsystem interface {
	HasPermission(permission string) bool
	RequestPermissions(requestCode int, permissions []string) error
}

// request is the context of one invocation, threaded from the permission
// check through fix acquisition.
type request struct {
	action       string
	highAccuracy bool
	code         int
	callback     *onceCallback
}

// Plugin bridges script-layer actions to the permission subsystem and the
// location provider. It is safe for concurrent use; overlapping requests
// each keep their own context and callback.
type Plugin struct {
	permissions PermissionSet
	subsystem   PermissionSubsystem
	provider    LocationProvider
	log         logrus.FieldLogger
	metrics     *Metrics
	dispatch    func(func())

	mu       sync.Mutex
	pending  map[int]*request
	nextCode int
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithPermissionSet replaces DefaultPermissionSet.
func WithPermissionSet(set PermissionSet) Option {
	return func(p *Plugin) { p.permissions = set }
}

// WithLogger sets the logger used for plugin diagnostics.
func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Plugin) { p.log = log }
}

// WithMetrics records plugin traffic on m.
func WithMetrics(m *Metrics) Option {
	return func(p *Plugin) { p.metrics = m }
}

// WithDispatcher sets the function that runs fix completions. The default
// runs them on the goroutine that waited for the provider.
//
// A dispatcher that defers the completion to another goroutine (such as a
// host UI-thread platform.Dispatch) takes it out of the provider goroutine's
// panic guard. Panics raised by the caller's callback are still recovered
// and reported by the plugin; panics in the dispatcher itself are not.
func WithDispatcher(dispatch func(func())) Option {
	return func(p *Plugin) { p.dispatch = dispatch }
}

// New creates a Plugin driving subsystem and provider.
func New(subsystem PermissionSubsystem, provider LocationProvider, opts ...Option) *Plugin {
	p := &Plugin{
		permissions: DefaultPermissionSet,
		subsystem:   subsystem,
		provider:    provider,
		log:         logrus.StandardLogger(),
		dispatch:    func(fn func()) { fn() },
		pending:     make(map[int]*request),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute handles one script-layer action. It returns false for actions the
// plugin does not know, in which case callback is never used.
func (p *Plugin) Execute(action string, args []any, callback CallbackContext) bool {
	p.log.WithField("action", action).Debug("entering execute")

	switch action {
	case ActionGetPermission:
		p.metrics.invoked(action)
		p.RequestPermissionCheck(callback)
		return true
	case ActionGetLocation:
		p.metrics.invoked(action)
		highAccuracy, err := boolArg(args, 0)
		if err != nil {
			p.log.WithField("action", action).WithError(err).Debug("malformed arguments")
			req := p.newRequest(action, false, callback)
			p.finish(req, PluginResult{Status: StatusJSONException, Message: err.Error()})
			return true
		}
		p.RequestCurrentLocation(highAccuracy, callback)
		return true
	default:
		p.log.WithField("action", action).Debug("unsupported action")
		return false
	}
}

// RequestPermissionCheck answers OK at once when every permission in the set
// is granted. Otherwise it starts an OS permission flow and returns; the
// answer follows from OnPermissionResult.
func (p *Plugin) RequestPermissionCheck(callback CallbackContext) {
	req := p.newRequest(ActionGetPermission, false, callback)
	if p.hasPermissions() {
		p.finish(req, PluginResult{Status: StatusOK})
		return
	}
	p.requestPermissions(req)
}

// RequestCurrentLocation acquires a single fix, first obtaining the
// permission set from the OS if needed. highAccuracy selects the provider
// priority.
func (p *Plugin) RequestCurrentLocation(highAccuracy bool, callback CallbackContext) {
	req := p.newRequest(ActionGetLocation, highAccuracy, callback)
	if p.hasPermissions() {
		p.acquireFix(req)
		return
	}
	p.requestPermissions(req)
}

// OnPermissionResult receives the outcome of the OS permission flow opened
// with requestCode. granted holds one entry per permission. Any denial ends
// the request with ILLEGAL_ACCESS. Results for codes with no pending caller
// are dropped.
func (p *Plugin) OnPermissionResult(requestCode int, permissions []string, granted []bool) {
	req := p.takePending(requestCode)
	log := p.log.WithField("request_code", requestCode)
	if req == nil {
		log.Debug("dropping permission result with no pending caller")
		return
	}

	for i, ok := range granted {
		if ok {
			continue
		}
		if i < len(permissions) {
			log = log.WithField("permission", permissions[i])
		}
		log.Debug("permission denied")
		p.metrics.permissionFlow("denied")
		p.finish(req, PluginResult{Status: StatusIllegalAccess})
		return
	}

	p.metrics.permissionFlow("granted")
	if req.action == ActionGetLocation {
		p.acquireFix(req)
		return
	}
	p.finish(req, PluginResult{Status: StatusOK})
}

// Pending returns the number of permission flows awaiting a result.
func (p *Plugin) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Plugin) newRequest(action string, highAccuracy bool, callback CallbackContext) *request {
	return &request{
		action:       action,
		highAccuracy: highAccuracy,
		callback:     &onceCallback{action: action, inner: callback},
	}
}

func (p *Plugin) hasPermissions() bool {
	for _, name := range p.permissions.names {
		if !p.subsystem.HasPermission(name) {
			return false
		}
	}
	return true
}

func (p *Plugin) requestPermissions(req *request) {
	p.mu.Lock()
	p.nextCode++
	req.code = p.nextCode
	p.pending[req.code] = req
	n := len(p.pending)
	p.mu.Unlock()
	p.metrics.setPending(n)

	p.log.WithFields(logrus.Fields{
		"action":       req.action,
		"request_code": req.code,
	}).Debug("requesting permissions")

	if err := p.subsystem.RequestPermissions(req.code, p.permissions.Names()); err != nil {
		if p.takePending(req.code) == nil {
			// The result already arrived and answered the caller.
			return
		}
		errors.Report(&errors.PluginError{
			Op:          "geolocation.requestPermissions",
			Kind:        errors.KindPermission,
			Action:      req.action,
			RequestCode: req.code,
			Err:         err,
		})
		p.metrics.permissionFlow("failed")
		p.finish(req, PluginResult{Status: StatusError, Message: err.Error()})
	}
}

func (p *Plugin) takePending(code int) *request {
	p.mu.Lock()
	req, ok := p.pending[code]
	if ok {
		delete(p.pending, code)
	}
	n := len(p.pending)
	p.mu.Unlock()
	if ok {
		p.metrics.setPending(n)
	}
	return req
}

// acquireFix issues one provider request for req and answers the caller when
// it completes. The request is never canceled and has no deadline.
func (p *Plugin) acquireFix(req *request) {
	priority := PriorityFor(req.highAccuracy)
	p.log.WithField("priority", priority.String()).Debug("requesting current fix")

	go func() {
		defer errors.Recover("geolocation.acquireFix", func(r any) {
			p.finish(req, PluginResult{
				Status:  StatusProviderError,
				Message: fmt.Sprintf("location provider panicked: %v", r),
			})
		})
		loc, err := p.provider.CurrentFix(context.Background(), priority)
		p.dispatch(func() { p.completeFix(req, loc, err) })
	}()
}

func (p *Plugin) completeFix(req *request, loc *Location, err error) {
	switch {
	case err != nil:
		errors.Report(&errors.PluginError{
			Op:          "geolocation.acquireFix",
			Kind:        errors.KindProvider,
			Action:      req.action,
			RequestCode: req.code,
			Err:         err,
		})
		p.finish(req, PluginResult{Status: StatusProviderError, Message: err.Error()})
	case loc == nil:
		p.finish(req, PluginResult{Status: StatusError})
	default:
		p.finish(req, PluginResult{Status: StatusOK, Message: NewLocationFix(*loc)})
	}
}

func (p *Plugin) finish(req *request, result PluginResult) {
	p.metrics.responded(req.action, result.Status)
	req.callback.SendPluginResult(result)
}

// boolArg reads args[i] as a boolean. Strings "true" and "false" are
// accepted in any case, matching the host runtime's argument arrays.
func boolArg(args []any, i int) (bool, error) {
	if i >= len(args) {
		return false, fmt.Errorf("argument %d missing", i)
	}
	switch v := args[i].(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(v) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, fmt.Errorf("argument %d is not a boolean: %v", i, args[i])
}
