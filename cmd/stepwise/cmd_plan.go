package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/elee1766/stepwise/src/app"
	"github.com/elee1766/stepwise/src/config"
	"github.com/elee1766/stepwise/src/orclient"
	"github.com/elee1766/stepwise/src/planner"
)

// PlanCmd only runs the planner
type PlanCmd struct {
	Task     []string `arg:"" optional:"" help:"Task to plan. Asked for on stdin when omitted."`
	MaxSteps int      `help:"Maximum number of plan steps"`
	JSON     bool     `help:"Print the plan as JSON"`
}

func (c *PlanCmd) Run(ctx context.Context, cli *CLI) error {
	cfg, err := cli.loadConfig()
	if err != nil {
		return err
	}
	if c.MaxSteps != 0 {
		cfg.Planner.MaxSteps = c.MaxSteps
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	logger := createCLILogger(cfg.Log.Level)

	client, err := orclient.NewClient(app.ClientConfig(cfg, logger))
	if err != nil {
		return err
	}
	p := planner.New(client, planner.Config{
		Temperature:     cfg.Planner.Temperature,
		MaxOutputTokens: cfg.Planner.MaxOutputTokens,
		Logger:          logger,
	})

	task, err := readTask(c.Task, os.Stdin, os.Stdout)
	if err != nil {
		return err
	}
	plan, err := p.Plan(ctx, task, cfg.Planner.MaxSteps)
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"steps": plan.Steps, "usage": p.Usage()})
	}

	fmt.Println("=== Plan ===")
	fmt.Println()
	for i, step := range plan.Steps {
		fmt.Printf("Step %d. %s\n", i+1, step)
	}
	fmt.Println(strings.Repeat("=", 20))
	fmt.Printf("planner tokens used: %s\n", p.Usage())
	return nil
}
