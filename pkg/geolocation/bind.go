package geolocation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/platform"
)

// Default channel names used by Bind.
const (
	DefaultChannel        = "drift/geolocation"
	DefaultResultsChannel = DefaultChannel + resultsSuffix
)

const resultsSuffix = "/results"

// ResultsChannelFor returns the results channel paired with channel when
// none is configured.
func ResultsChannelFor(channel string) string {
	return channel + resultsSuffix
}

// Binding exposes a Plugin to the script layer over platform channels.
//
// Inbound calls arrive on the plugin channel with the action as method name
// and {callbackId, args} as arguments. Each result is pushed back with a
// "pluginResult" call on the results channel carrying
// {callbackId, status, message}.
type Binding struct {
	plugin  *Plugin
	channel *platform.MethodChannel
	results *platform.MethodChannel
	log     logrus.FieldLogger
}

// Bind registers plugin on the named channels. An empty channel selects
// DefaultChannel; an empty resultsChannel selects ResultsChannelFor(channel).
func Bind(plugin *Plugin, channel, resultsChannel string) *Binding {
	if channel == "" {
		channel = DefaultChannel
	}
	if resultsChannel == "" {
		resultsChannel = ResultsChannelFor(channel)
	}
	b := &Binding{
		plugin:  plugin,
		channel: platform.NewMethodChannel(channel),
		results: platform.NewMethodChannel(resultsChannel),
		log:     plugin.log,
	}
	b.channel.SetHandler(b.handle)
	return b
}

// Close stops accepting calls.
func (b *Binding) Close() {
	b.channel.SetHandler(nil)
}

func (b *Binding) handle(method string, args any) (any, error) {
	m, ok := args.(map[string]any)
	if !ok {
		return nil, platform.ErrInvalidArguments
	}
	callbackID, _ := m["callbackId"].(string)
	if callbackID == "" {
		return nil, fmt.Errorf("%w: missing callbackId", platform.ErrInvalidArguments)
	}
	actionArgs, _ := m["args"].([]any)

	cb := &channelCallback{binding: b, callbackID: callbackID, action: method}
	if !b.plugin.Execute(method, actionArgs, cb) {
		return nil, platform.ErrMethodNotFound
	}
	return map[string]any{"handled": true}, nil
}

// channelCallback delivers results for one callback id.
type channelCallback struct {
	binding    *Binding
	callbackID string
	action     string
}

func (c *channelCallback) SendPluginResult(result PluginResult) {
	payload := map[string]any{
		"callbackId": c.callbackID,
		"status":     int(result.Status),
	}
	if result.Message != nil {
		payload["message"] = result.Message
	}

	if _, err := c.binding.results.Invoke("pluginResult", payload); err != nil {
		c.binding.log.WithFields(logrus.Fields{
			"action":      c.action,
			"callback_id": c.callbackID,
			"status":      result.Status.String(),
		}).WithError(err).Warn("failed to deliver plugin result")
		errors.Report(&errors.PluginError{
			Op:      "geolocation.sendPluginResult",
			Kind:    errors.KindPlatform,
			Action:  c.action,
			Channel: c.binding.results.Name(),
			Err:     err,
		})
	}
}
