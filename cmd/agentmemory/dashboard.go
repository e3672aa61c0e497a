// Copyright 2024 The go-agentmemory Authors
// This file is part of the go-agentmemory library.
//
// The go-agentmemory library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-agentmemory library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-agentmemory library. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/fatih/color"
	"gopkg.in/urfave/cli.v1"
)

var (
	creatorFlag = cli.StringFlag{
		Name:  "creator",
		Usage: "Also show the sales of this module creator",
	}

	dashboardCommand = cli.Command{
		Name:      "dashboard",
		Usage:     "Show the analytics report of an agent",
		ArgsUsage: "[agent-id]",
		Category:  "LEDGER COMMANDS",
		Action:    dashboard,
		Flags:     []cli.Flag{creatorFlag},
		Description: `
The dashboard command prints the projected reputation score, trust level and
activity of an agent, and with --creator the sales summary of a module
creator. It requires a node running with analytics enabled.`,
	}
)

var trustColors = map[analytics.TrustLevel]*color.Color{
	analytics.TrustExceptional: color.New(color.FgGreen, color.Bold),
	analytics.TrustHigh:        color.New(color.FgGreen),
	analytics.TrustMedium:      color.New(color.FgYellow),
	analytics.TrustLow:         color.New(color.FgRed),
	analytics.TrustUntrusted:   color.New(color.FgRed, color.Bold),
}

func dashboard(ctx *cli.Context) error {
	if ctx.NArg() == 0 && !ctx.IsSet(creatorFlag.Name) {
		return errors.New("need an agent id or --creator")
	}
	var (
		c      = dial(ctx)
		result = make(map[string]interface{})
		human  []func()
	)
	if ctx.NArg() > 0 {
		report, err := c.AgentReport(context.Background(), ctx.Args().First())
		if err != nil {
			return err
		}
		result["agent"] = report
		human = append(human, func() { printAgentReport(report) })
	}
	if ctx.IsSet(creatorFlag.Name) {
		creator, err := parseAddress(ctx.String(creatorFlag.Name))
		if err != nil {
			return err
		}
		report, err := c.CreatorReport(context.Background(), creator)
		if err != nil {
			return err
		}
		result["creator"] = report
		human = append(human, func() { printCreatorReport(report) })
	}
	return printResult(ctx, result, func() {
		for i, fn := range human {
			if i > 0 {
				fmt.Println()
			}
			fn()
		}
	})
}

func printAgentReport(r *analytics.AgentReport) {
	level := string(r.TrustLevel)
	if c, ok := trustColors[r.TrustLevel]; ok {
		level = c.Sprint(level)
	}
	printFields("Agent "+r.AgentID, [][]string{
		{"Address", r.Agent.Hex()},
		{"Score", fmt.Sprintf("%.2f", r.Score)},
		{"Trust level", level},
		{"Decisions", strconv.FormatUint(r.Decisions, 10)},
		{"Attested", strconv.FormatUint(r.Attested, 10)},
		{"Success rate", fmt.Sprintf("%.1f%% (%d/%d)", r.SuccessRate*100, r.Successes, r.Successes+r.Failures)},
		{"Recent success rate", fmt.Sprintf("%.1f%%", r.WindowSuccessRate*100)},
	})
	fmt.Println()
	table := newTable("Activity", "24h", "7d", "30d")
	table.Append([]string{
		"Decisions",
		strconv.FormatUint(r.Activity.Last24h, 10),
		strconv.FormatUint(r.Activity.Last7d, 10),
		strconv.FormatUint(r.Activity.Last30d, 10),
	})
	table.Render()
}

func printCreatorReport(r *analytics.CreatorReport) {
	rows := [][]string{
		{"Modules", strconv.FormatUint(r.Modules, 10)},
		{"Sales", strconv.FormatUint(r.Sales, 10)},
		{"Revenue", formatSol(r.TotalRevenue)},
		{"Creator take", formatSol(r.CreatorTake)},
		{"Average sale", formatSol(r.AverageSale)},
		{"Monthly revenue", formatSol(r.MonthlyRevenue)},
		{"Growth", strconv.FormatFloat(r.GrowthRate, 'f', 1, 64) + "%"},
	}
	if r.FirstSaleAt != nil {
		rows = append(rows,
			[]string{"First sale", r.FirstSaleAt.UTC().Format(time.RFC3339)},
			[]string{"Last sale", r.LastSaleAt.UTC().Format(time.RFC3339)},
		)
	}
	printFields("Creator "+r.Creator.Hex(), rows)
}
