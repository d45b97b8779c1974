// Package errors reports failures that cannot be returned to a caller:
// native bridge faults, unparsable events, failed permission flows and
// provider errors. A report names the plugin request it belongs to so log
// lines can be matched to the script-layer call that caused them.
package errors

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrorKind says which collaborator a failure came from.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindPlatform is a native bridge or channel failure.
	KindPlatform
	// KindParsing is a native payload that could not be decoded.
	KindParsing
	// KindPermission is a failure of the OS permission subsystem.
	KindPermission
	// KindProvider is a failure of the location provider.
	KindProvider
)

var kindNames = [...]string{
	KindUnknown:    "unknown",
	KindPlatform:   "platform",
	KindParsing:    "parsing",
	KindPermission: "permission",
	KindProvider:   "provider",
}

func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindUnknown]
	}
	return kindNames[k]
}

// PluginError is a failure raised while serving a plugin request or while
// moving data over the native bridge.
type PluginError struct {
	// Op names the failing step, e.g. "geolocation.acquireFix".
	Op   string
	Kind ErrorKind
	Err  error
	// Channel is the platform channel involved, if any.
	Channel string
	// Action is the script-layer action being served, if any.
	Action string
	// RequestCode is the permission flow code of the request. Zero means
	// no flow was opened.
	RequestCode int
	Timestamp   time.Time
}

func (e *PluginError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Op)
	sb.WriteString(" [")
	sb.WriteString(e.Kind.String())
	sb.WriteString("]")
	if e.Action != "" {
		sb.WriteString(" action=")
		sb.WriteString(e.Action)
	}
	if e.RequestCode != 0 {
		sb.WriteString(" request_code=")
		sb.WriteString(strconv.Itoa(e.RequestCode))
	}
	if e.Channel != "" {
		sb.WriteString(" channel=")
		sb.WriteString(e.Channel)
	}
	sb.WriteString(": ")
	if e.Err != nil {
		sb.WriteString(e.Err.Error())
	} else {
		sb.WriteString("<nil>")
	}
	return sb.String()
}

func (e *PluginError) Unwrap() error {
	return e.Err
}

// PanicError is a panic recovered from a collaborator or host callback.
type PanicError struct {
	Op        string
	Value     any
	Stack     string
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("panic: %v", e.Value)
	}
	return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
}

// ParseError is a native payload of the wrong shape.
type ParseError struct {
	Channel  string
	DataType string
	Got      any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}
