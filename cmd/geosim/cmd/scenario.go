package cmd

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Dialog answers for simulated permission prompts.
const (
	RespondGrant  = "grant"
	RespondDeny   = "deny"
	RespondIgnore = "ignore"
)

// Scenario describes one simulated session.
type Scenario struct {
	// Granted lists permissions already granted when the session starts.
	Granted []string `yaml:"granted,omitempty"`
	// Respond is how the user answers permission dialogs: grant, deny or ignore.
	Respond string `yaml:"respond,omitempty"`
	// Fix is what the provider returns. Omitted means no fix.
	Fix *FixSpec `yaml:"fix,omitempty"`
	// ProviderError makes the provider fail with this message.
	ProviderError string `yaml:"provider_error,omitempty"`
	// Timeout bounds the wait for responses.
	Timeout time.Duration `yaml:"timeout,omitempty"`
	// Calls are sent to the plugin in order.
	Calls []Call `yaml:"calls"`
}

// FixSpec is a simulated provider fix.
type FixSpec struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Altitude  float64 `yaml:"altitude"`
	Accuracy  float64 `yaml:"accuracy"`
}

// Call is one script-layer action.
type Call struct {
	Action string `yaml:"action"`
	Args   []any  `yaml:"args,omitempty"`
}

// LoadScenario reads and validates a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if s.Respond == "" {
		s.Respond = RespondGrant
	}
	switch s.Respond {
	case RespondGrant, RespondDeny, RespondIgnore:
	default:
		return nil, fmt.Errorf("respond must be grant, deny or ignore, got %q", s.Respond)
	}
	if s.Timeout <= 0 {
		s.Timeout = 5 * time.Second
	}
	if len(s.Calls) == 0 {
		return nil, fmt.Errorf("scenario has no calls")
	}
	for i, c := range s.Calls {
		if c.Action == "" {
			return nil, fmt.Errorf("call %d has no action", i)
		}
	}
	return &s, nil
}
