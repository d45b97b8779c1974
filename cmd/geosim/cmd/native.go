package cmd

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-drift/geolocation/pkg/platform"
)

// Response is a plugin result as received by the simulated script layer.
type Response struct {
	CallbackID string
	Status     int
	Message    any
}

// simulatedHost implements platform.NativeBridge by playing the OS
// permission subsystem, the fused location provider and the script layer's
// result sink.
type simulatedHost struct {
	scenario       *Scenario
	resultsChannel string

	mu        sync.Mutex
	granted   map[string]bool
	responses chan Response
	wg        sync.WaitGroup
}

func newSimulatedHost(s *Scenario, resultsChannel string) *simulatedHost {
	granted := make(map[string]bool, len(s.Granted))
	for _, p := range s.Granted {
		granted[p] = true
	}
	return &simulatedHost{
		scenario:       s,
		resultsChannel: resultsChannel,
		granted:        granted,
		responses:      make(chan Response, len(s.Calls)*2),
	}
}

func (h *simulatedHost) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	var m map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &m); err != nil {
			return nil, err
		}
	}

	switch {
	case channel == "drift/permissions" && method == "check":
		name, _ := m["permission"].(string)
		h.mu.Lock()
		ok := h.granted[name]
		h.mu.Unlock()
		status := "denied"
		if ok {
			status = "granted"
		}
		return json.Marshal(map[string]any{"status": status})

	case channel == "drift/permissions" && method == "requestMultiple":
		h.answerDialog(m)
		return json.Marshal(nil)

	case channel == "drift/location" && method == "getCurrentLocation":
		h.answerFix(m)
		return json.Marshal(nil)

	case channel == h.resultsChannel && method == "pluginResult":
		r := Response{Message: m["message"]}
		r.CallbackID, _ = m["callbackId"].(string)
		if status, ok := m["status"].(float64); ok {
			r.Status = int(status)
		}
		h.responses <- r
		return json.Marshal(nil)
	}
	return nil, platform.NewChannelError("UNIMPLEMENTED", fmt.Sprintf("%s.%s", channel, method))
}

func (h *simulatedHost) StartEventStream(string) error { return nil }
func (h *simulatedHost) StopEventStream(string) error  { return nil }

// answerDialog emits the permission result the way the OS does: later, on
// another thread.
func (h *simulatedHost) answerDialog(args map[string]any) {
	if h.scenario.Respond == RespondIgnore {
		return
	}
	perms, _ := args["permissions"].([]any)
	grant := h.scenario.Respond == RespondGrant
	results := make([]int, len(perms))
	h.mu.Lock()
	for i, p := range perms {
		if grant {
			name, _ := p.(string)
			h.granted[name] = true
		} else {
			results[i] = -1
		}
	}
	h.mu.Unlock()

	h.emit("drift/permissions/results", map[string]any{
		"requestCode":  args["requestCode"],
		"permissions":  perms,
		"grantResults": results,
	})
}

func (h *simulatedHost) answerFix(args map[string]any) {
	event := map[string]any{"requestId": args["requestId"]}
	switch {
	case h.scenario.ProviderError != "":
		event["error"] = map[string]any{"code": "PROVIDER", "message": h.scenario.ProviderError}
	case h.scenario.Fix != nil:
		event["location"] = map[string]any{
			"latitude":  h.scenario.Fix.Latitude,
			"longitude": h.scenario.Fix.Longitude,
			"altitude":  h.scenario.Fix.Altitude,
			"accuracy":  h.scenario.Fix.Accuracy,
		}
	default:
		event["location"] = nil
	}
	h.emit("drift/location/fixes", event)
}

func (h *simulatedHost) emit(channel string, event any) {
	data, err := json.Marshal(event)
	if err != nil {
		_ = platform.HandleEventError(channel, "ENCODE", err.Error())
		return
	}
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		_ = platform.HandleEvent(channel, data)
	}()
}
