// cmd/waypoint/main.go
//
// Entry point for the Waypoint tech-support assistant.
//
// Flow:
// 1. Initialize the .waypoint directory and load configuration
// 2. Register handler contracts and validate the full set
// 3. Run the setup wizard to pick a routing backend
// 4. Start the chat TUI

package main

import (
	"fmt"
	"os"

	"github.com/kingrea/waypoint/internal/arbiter"
	"github.com/kingrea/waypoint/internal/config"
	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/decision"
	"github.com/kingrea/waypoint/internal/handlers"
	"github.com/kingrea/waypoint/internal/logging"
	"github.com/kingrea/waypoint/internal/session"
	"github.com/kingrea/waypoint/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "waypoint: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	if err := config.InitWaypointDir(cwd); err != nil {
		return fmt.Errorf("initializing %s directory: %w", config.WaypointDir, err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logging.New(cwd)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer log.Close()
	log.Infof("waypoint starting in %s", cwd)

	registry := contract.NewRegistry(contract.WithLogger(log))
	byName, err := handlers.Register(registry)
	if err != nil {
		return err
	}

	result := contract.NewValidator(registry).Validate()
	log.Infof("contract validation: %s", result)
	if !result.IsValid() {
		return fmt.Errorf("contract validation failed:\n%s", result)
	}

	selection, err := tui.RunWizard(cfg.Project.Providers)
	if err != nil {
		return err
	}
	arb, backend, err := buildArbiter(selection, log)
	if err != nil {
		return err
	}

	workflowID := cfg.DefaultWorkflowID()
	opts := []decision.Option{
		decision.WithMaxIterations(cfg.Project.Engine.MaxIterations),
		decision.WithTerminalResponseTypes(cfg.Project.Engine.TerminalResponseTypes...),
		decision.WithLogger(log),
	}
	if arb != nil {
		opts = append(opts, decision.WithArbiter(arb))
	}
	engine := decision.New(workflowID, registry, opts...)

	sessionHandlers := make(map[string]session.Handler, len(byName))
	for name, h := range byName {
		sessionHandlers[name] = h
	}
	sess := session.New(engine, registry, sessionHandlers, session.WithLogger(log))
	log.Infof("session %s started (workflow=%s, backend=%s)", sess.ID(), workflowID, backend)

	return tui.NewApp(sess, backend, log).Run()
}

// buildArbiter turns the wizard selection into an arbiter, or nil for
// rules-only routing.
func buildArbiter(selection tui.Selection, log *logging.Logger) (arbiter.Arbiter, string, error) {
	if selection.Skipped {
		return nil, "rules only", nil
	}
	switch selection.Provider {
	case "gemini":
		g, err := arbiter.NewGemini(selection.APIKey, arbiter.WithModel(selection.Model))
		if err != nil {
			return nil, "", err
		}
		backend := "gemini"
		if selection.Model != "" {
			backend += " (" + selection.Model + ")"
		}
		return g, backend, nil
	case "offline":
		return arbiter.NewOffline(), "offline heuristic", nil
	default:
		log.Warnf("unknown provider %q selected; continuing rules only", selection.Provider)
		return nil, "rules only", nil
	}
}
