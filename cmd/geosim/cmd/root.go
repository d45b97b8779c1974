// Package cmd implements the geosim CLI commands.
//
// A root command dispatches to subcommands (run, version) the same way the
// drift CLI does.
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name  string
	Short string
	Long  string
	Usage string
	Run   func(ctx *Context, args []string) error
}

// Context carries global flags and output to a command.
type Context struct {
	// Dir is the directory holding geolocation.yaml and .env.
	Dir string
	Out io.Writer
}

var rootLong = `geosim drives the geolocation plugin against a simulated native host.
Scenarios describe the device's permission state, how the user answers
permission dialogs, what the location provider returns, and the actions
the script layer sends.

Use "geosim <command> --help" for more information about a command.`

// Commands registered with the CLI.
var commands = make(map[string]*Command)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
}

// Execute runs the CLI with the given arguments, writing to out.
func Execute(args []string, out io.Writer) error {
	ctx := &Context{Dir: ".", Out: out}

	var filtered []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "-h" || arg == "--help" || arg == "help":
			if len(filtered) == 0 {
				printHelp(out)
				return nil
			}
			filtered = append(filtered, arg)
		case arg == "-v" || arg == "--version":
			if len(filtered) == 0 {
				fmt.Fprintf(out, "geosim version %s (built %s)\n", Version, BuildTime)
				return nil
			}
			filtered = append(filtered, arg)
		case arg == "--dir":
			if i+1 >= len(args) {
				return fmt.Errorf("--dir requires a directory path")
			}
			ctx.Dir = args[i+1]
			i++
		case strings.HasPrefix(arg, "--dir="):
			ctx.Dir = strings.TrimPrefix(arg, "--dir=")
		default:
			filtered = append(filtered, arg)
		}
	}

	if len(filtered) == 0 {
		printHelp(out)
		return nil
	}

	name := filtered[0]
	cmd, ok := commands[name]
	if !ok {
		printHelp(out)
		return fmt.Errorf("unknown command: %s", name)
	}

	cmdArgs := filtered[1:]
	for _, arg := range cmdArgs {
		if arg == "-h" || arg == "--help" || arg == "help" {
			printCommandHelp(out, cmd)
			return nil
		}
	}

	return cmd.Run(ctx, cmdArgs)
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, rootLong)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintln(out, "  geosim [--dir DIR] <command> [args]")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  %-14s %s\n", name, commands[name].Short)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Flags:")
	fmt.Fprintln(out, "  -h, --help           Show help for a command")
	fmt.Fprintln(out, "  -v, --version        Show version information")
	fmt.Fprintln(out, "  --dir DIR            Directory holding geolocation.yaml (default: .)")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Environment:")
	fmt.Fprintln(out, "  GEOLOCATION_LOG_LEVEL  Log level override")
	fmt.Fprintln(out, "  GEOLOCATION_VERBOSE    Include panic stacks in error reports")
}

func printCommandHelp(out io.Writer, cmd *Command) {
	fmt.Fprintln(out, cmd.Long)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %s\n", cmd.Usage)
}
