// Command reactorctl drives the demo counter application: feed it "tick"
// and "stop" events from a scripted YAML file, or interactively from stdin.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/crudbug/reactorkernel/driver"
	"github.com/crudbug/reactorkernel/kernel"
	"github.com/crudbug/reactorkernel/kernel/emit"
)

// scriptEvent is one line of a scripted event file: a named event and an
// optional integer payload.
type scriptEvent struct {
	Event   string `yaml:"event"`
	Payload *int   `yaml:"payload,omitempty"`
}

type script struct {
	Events []scriptEvent `yaml:"events"`
}

func newApp() (*driver.Driver, driver.AppID, error) {
	d := driver.New()
	logEmitter := emit.NewLogEmitter(os.Stderr, false)
	id, err := d.Start(buildCounter(), kernel.WithEmitter(logEmitter))
	if err != nil {
		return nil, "", err
	}
	return d, id, nil
}

func runScript(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reactorctl: reading script: %w", err)
	}
	var s script
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("reactorctl: parsing script: %w", err)
	}

	d, id, err := newApp()
	if err != nil {
		return err
	}

	for _, ev := range s.Events {
		var payload any
		if ev.Payload != nil {
			payload = *ev.Payload
		}
		state, err := d.Step(id, ev.Event, payload)
		if err != nil {
			return fmt.Errorf("reactorctl: step %q: %w", ev.Event, err)
		}
		fmt.Printf("%s -> %s\n", ev.Event, state)
		if state == driver.AppTerminated {
			break
		}
	}

	value, err := d.Value(id)
	if err != nil {
		return err
	}
	fmt.Printf("final value: %v\n", value)
	return nil
}

func runRepl() error {
	d, id, err := newApp()
	if err != nil {
		return err
	}
	fmt.Println("reactorctl interactive mode: type an event name (optionally \"event payload\"), or \"quit\"")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		parts := strings.SplitN(line, " ", 2)
		name := parts[0]
		var payload any
		if len(parts) == 2 {
			if n, err := strconv.Atoi(strings.TrimSpace(parts[1])); err == nil {
				payload = n
			}
		}
		state, err := d.Step(id, name, payload)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Printf("-> %s\n", state)
		if state == driver.AppTerminated {
			break
		}
	}

	value, err := d.Value(id)
	if err != nil {
		return err
	}
	fmt.Printf("final value: %v\n", value)
	return nil
}

func main() {
	var scriptPath string

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the demo application against a scripted YAML event file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if scriptPath == "" {
				return fmt.Errorf("reactorctl: --script is required")
			}
			return runScript(scriptPath)
		},
	}
	runCmd.Flags().StringVar(&scriptPath, "script", "", "path to a YAML file listing events to fire in order")

	replCmd := &cobra.Command{
		Use:   "repl",
		Short: "Drive the demo application interactively from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRepl()
		},
	}

	rootCmd := &cobra.Command{
		Use:   "reactorctl",
		Short: "Drive a reactor kernel application from the command line",
	}
	rootCmd.AddCommand(runCmd, replCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
