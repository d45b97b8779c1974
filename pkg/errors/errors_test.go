package errors

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestPluginErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *PluginError
		want string
	}{
		{
			name: "bare",
			err:  &PluginError{Op: "geolocation.acquireFix", Kind: KindProvider, Err: fmt.Errorf("provider unavailable")},
			want: "geolocation.acquireFix [provider]: provider unavailable",
		},
		{
			name: "request context",
			err: &PluginError{
				Op:          "geolocation.requestPermissions",
				Kind:        KindPermission,
				Action:      "getLocation",
				RequestCode: 3,
				Err:         fmt.Errorf("no activity"),
			},
			want: "geolocation.requestPermissions [permission] action=getLocation request_code=3: no activity",
		},
		{
			name: "channel",
			err: &PluginError{
				Op:      "platform.HandleEvent",
				Kind:    KindParsing,
				Channel: "drift/location/fixes",
				Err:     &ParseError{Channel: "drift/location/fixes", DataType: "LocationFix"},
			},
			want: "platform.HandleEvent [parsing] channel=drift/location/fixes: failed to parse LocationFix from channel drift/location/fixes: got <nil>",
		},
		{
			name: "nil cause",
			err:  &PluginError{Op: "op"},
			want: "op [unknown]: <nil>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPluginErrorUnwrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := &PluginError{Op: "op", Err: inner}
	if err.Unwrap() != inner {
		t.Error("Unwrap should return the wrapped error")
	}
}

func TestErrorKindString(t *testing.T) {
	tests := []struct {
		kind ErrorKind
		want string
	}{
		{KindUnknown, "unknown"},
		{KindPlatform, "platform"},
		{KindParsing, "parsing"},
		{KindPermission, "permission"},
		{KindProvider, "provider"},
		{ErrorKind(-1), "unknown"},
		{ErrorKind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("ErrorKind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestPanicErrorString(t *testing.T) {
	err := &PanicError{Value: "test panic"}
	if got, want := err.Error(), "panic: test panic"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	err.Op = "geolocation.deliver"
	if got, want := err.Error(), "panic in geolocation.deliver: test panic"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestParseErrorString(t *testing.T) {
	err := &ParseError{Channel: "drift/test", DataType: "TestEvent", Got: 123}
	want := "failed to parse TestEvent from channel drift/test: got int"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func install(t *testing.T, h ErrorHandler) {
	t.Helper()
	previous := SetHandler(h)
	t.Cleanup(func() { SetHandler(previous) })
}

func TestReportStampsAndForwards(t *testing.T) {
	var captured *PluginError
	install(t, &testHandler{onError: func(err *PluginError) { captured = err }})

	Report(&PluginError{Op: "test.op", Kind: KindPermission, Action: "getPermission", Err: fmt.Errorf("denied")})
	Report(nil)

	if captured == nil {
		t.Fatal("expected error to be captured")
	}
	if captured.Action != "getPermission" {
		t.Errorf("Action = %q, want getPermission", captured.Action)
	}
	if captured.Timestamp.IsZero() {
		t.Error("expected Timestamp to be set")
	}
}

func TestRecover(t *testing.T) {
	var captured *PanicError
	install(t, &testHandler{onPanic: func(err *PanicError) { captured = err }})

	var got any
	func() {
		defer Recover("test.recover", func(r any) { got = r })
		panic("intentional")
	}()

	if captured == nil {
		t.Fatal("expected panic to be reported")
	}
	if captured.Op != "test.recover" || captured.Value != "intentional" {
		t.Errorf("captured = %+v", captured)
	}
	if !strings.Contains(captured.Stack, "TestRecover") {
		t.Errorf("stack should name the panicking test, got:\n%s", captured.Stack)
	}
	if got != "intentional" {
		t.Errorf("onPanic value = %v, want intentional", got)
	}

	// No panic, no report and no callback.
	captured, got = nil, nil
	func() {
		defer Recover("test.calm", func(r any) { got = r })
	}()
	if captured != nil || got != nil {
		t.Error("Recover without a panic should do nothing")
	}
}

func TestRecoverNilCallback(t *testing.T) {
	install(t, &testHandler{})
	func() {
		defer Recover("test.nil", nil)
		panic(42)
	}()
}

func TestSetHandler(t *testing.T) {
	first := &testHandler{}
	install(t, first)

	if got := SetHandler(nil); got != first {
		t.Errorf("SetHandler returned %T, want the installed handler", got)
	}
	if _, ok := Handler().(*LogHandler); !ok {
		t.Errorf("SetHandler(nil) should install a LogHandler, got %T", Handler())
	}
}

func TestLogHandlerFields(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetOutput(io.Discard)
	h := NewLogHandler(logger, true)

	h.HandleError(&PluginError{
		Op:          "geolocation.acquireFix",
		Kind:        KindProvider,
		Action:      "getLocation",
		RequestCode: 7,
		Channel:     "drift/location",
		Err:         fmt.Errorf("gps off"),
	})

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Level != logrus.ErrorLevel {
		t.Errorf("level = %v, want error", entry.Level)
	}
	want := logrus.Fields{
		"op":           "geolocation.acquireFix",
		"kind":         "provider",
		"action":       "getLocation",
		"request_code": 7,
		"channel":      "drift/location",
	}
	for k, v := range want {
		if entry.Data[k] != v {
			t.Errorf("field %s = %v, want %v", k, entry.Data[k], v)
		}
	}

	h.HandleError(&PluginError{Op: "platform.invoke", Kind: KindPlatform, Err: fmt.Errorf("x")})
	entry = hook.LastEntry()
	for _, k := range []string{"action", "request_code", "channel"} {
		if _, ok := entry.Data[k]; ok {
			t.Errorf("unset %s should not be logged", k)
		}
	}

	h.HandlePanic(&PanicError{Op: "x", Value: "v", Stack: "frame"})
	if got := hook.LastEntry().Data["stack"]; got != "frame" {
		t.Errorf("verbose handler should log stack, got %v", got)
	}
	h.Verbose = false
	h.HandlePanic(&PanicError{Op: "x", Value: "v", Stack: "frame"})
	if _, ok := hook.LastEntry().Data["stack"]; ok {
		t.Error("non-verbose handler should not log stack")
	}
}

type testHandler struct {
	onError func(*PluginError)
	onPanic func(*PanicError)
}

func (h *testHandler) HandleError(err *PluginError) {
	if h.onError != nil {
		h.onError(err)
	}
}

func (h *testHandler) HandlePanic(err *PanicError) {
	if h.onPanic != nil {
		h.onPanic(err)
	}
}
