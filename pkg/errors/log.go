package errors

import (
	"os"

	"github.com/sirupsen/logrus"
)

// LogHandler writes reports through a logrus logger.
type LogHandler struct {
	Logger *logrus.Logger
	// Verbose adds the panic stack to panic entries.
	Verbose bool
}

// NewLogHandler returns a LogHandler writing to logger, or to a fresh stderr
// logger when logger is nil.
func NewLogHandler(logger *logrus.Logger, verbose bool) *LogHandler {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(os.Stderr)
	}
	return &LogHandler{Logger: logger, Verbose: verbose}
}

// HandleError logs err with its request context as fields.
func (h *LogHandler) HandleError(err *PluginError) {
	if err == nil {
		return
	}
	fields := logrus.Fields{
		"op":   err.Op,
		"kind": err.Kind.String(),
	}
	if err.Action != "" {
		fields["action"] = err.Action
	}
	if err.RequestCode != 0 {
		fields["request_code"] = err.RequestCode
	}
	if err.Channel != "" {
		fields["channel"] = err.Channel
	}
	h.logger().WithFields(fields).WithError(err.Err).Error("plugin error")
}

// HandlePanic logs a recovered panic.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	entry := h.logger().WithFields(logrus.Fields{
		"op":    err.Op,
		"value": err.Value,
	})
	if h.Verbose && err.Stack != "" {
		entry = entry.WithField("stack", err.Stack)
	}
	entry.Error("recovered panic")
}

func (h *LogHandler) logger() *logrus.Logger {
	if h.Logger == nil {
		return logrus.StandardLogger()
	}
	return h.Logger
}
