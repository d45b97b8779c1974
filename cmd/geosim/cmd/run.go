package cmd

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/go-drift/geolocation/pkg/config"
	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/geolocation"
	"github.com/go-drift/geolocation/pkg/platform"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Run a scenario against the plugin",
		Long: `Run a scenario against the geolocation plugin.

The plugin is configured from geolocation.yaml in --dir and bound to a
simulated native host. Each call in the scenario is sent over the plugin
channel; every response is printed as it would reach the script layer.
Calls still unanswered when the timeout expires are listed as pending.

Pass --metrics to print the plugin counters after the run.`,
		Usage: "geosim run <scenario.yaml> [--metrics]",
		Run:   runScenario,
	})
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Show version information.",
		Usage: "geosim version",
		Run: func(ctx *Context, args []string) error {
			fmt.Fprintf(ctx.Out, "geosim version %s (built %s)\n", Version, BuildTime)
			return nil
		},
	})
}

func runScenario(ctx *Context, args []string) error {
	var path string
	showMetrics := false
	for _, arg := range args {
		switch {
		case arg == "--metrics":
			showMetrics = true
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag %q", arg)
		case path == "":
			path = arg
		default:
			return fmt.Errorf("unexpected argument %q", arg)
		}
	}
	if path == "" {
		return fmt.Errorf("run requires a scenario file")
	}

	cfg, err := config.Resolve(ctx.Dir)
	if err != nil {
		return err
	}
	scenario, err := LoadScenario(path)
	if err != nil {
		return err
	}

	log := cfg.Logger()
	errors.SetHandler(errors.NewLogHandler(log, cfg.Verbose))
	defer errors.SetHandler(nil)

	host := newSimulatedHost(scenario, cfg.ResultsChannel)
	platform.SetNativeBridge(host)
	defer platform.SetNativeBridge(nil)

	reg := prometheus.NewRegistry()
	plugin, unsubscribe := geolocation.NewNative(
		geolocation.WithPermissionSet(geolocation.NewPermissionSet(cfg.Permissions...)),
		geolocation.WithLogger(log.WithField("service", cfg.Service)),
		geolocation.WithMetrics(geolocation.NewMetrics(cfg.MetricsNS, reg)),
	)
	defer unsubscribe()
	binding := geolocation.Bind(plugin, cfg.Channel, cfg.ResultsChannel)
	defer binding.Close()

	expected := make(map[string]Call)
	for i, call := range scenario.Calls {
		id := fmt.Sprintf("cb-%d", i+1)
		callArgs := call.Args
		if callArgs == nil {
			callArgs = []any{}
		}
		argData, err := platform.DefaultCodec.Encode(map[string]any{
			"callbackId": id,
			"args":       callArgs,
		})
		if err != nil {
			return fmt.Errorf("call %s: %w", id, err)
		}
		_, err = platform.HandleMethodCall(cfg.Channel, call.Action, argData)
		switch {
		case stderrors.Is(err, platform.ErrMethodNotFound):
			fmt.Fprintf(ctx.Out, "%s %s: not handled\n", id, call.Action)
		case err != nil:
			return fmt.Errorf("call %s: %w", id, err)
		default:
			expected[id] = call
		}
	}

	deadline := time.After(scenario.Timeout)
	for len(expected) > 0 {
		select {
		case r := <-host.responses:
			call := expected[r.CallbackID]
			delete(expected, r.CallbackID)
			fmt.Fprintf(ctx.Out, "%s %s: %s%s\n", r.CallbackID, call.Action,
				geolocation.Status(r.Status), formatMessage(r.Message))
		case <-deadline:
			ids := make([]string, 0, len(expected))
			for id := range expected {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintf(ctx.Out, "%s %s: pending\n", id, expected[id].Action)
			}
			expected = nil
		}
	}
	host.wg.Wait()

	if showMetrics {
		return printMetrics(ctx, reg)
	}
	return nil
}

func formatMessage(msg any) string {
	switch m := msg.(type) {
	case nil:
		return ""
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
		}
		return " " + strings.Join(parts, " ")
	default:
		return fmt.Sprintf(" %v", m)
	}
}

func printMetrics(ctx *Context, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
			}
			value := m.GetGauge().GetValue()
			if c := m.GetCounter(); c != nil {
				value = c.GetValue()
			}
			fmt.Fprintf(ctx.Out, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), value)
		}
	}
	return nil
}
