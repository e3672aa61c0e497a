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
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	failureColor = color.New(color.FgRed)
)

// printResult prints v as JSON when --json is set and calls human otherwise.
func printResult(ctx *cli.Context, v interface{}, human func()) error {
	if ctx.GlobalBool(jsonFlag.Name) {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human()
	return nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.SetColumnSeparator(" ")
	table.SetHeaderLine(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

// printFields prints label/value pairs as a two column table.
func printFields(title string, fields [][]string) {
	headerColor.Println(title)
	table := newTable()
	table.AppendBulk(fields)
	table.Render()
}

// formatSol renders a lamport amount in SOL without losing precision.
func formatSol(lamports uint64) string {
	whole, frac := lamports/params.Sol, lamports%params.Sol
	if frac == 0 {
		return fmt.Sprintf("%d SOL", whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%09d", frac), "0")
	return fmt.Sprintf("%d.%s SOL", whole, s)
}

// parseAmount parses a lamport amount. A "sol" suffix scales by 10^9.
func parseAmount(s string) (uint64, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if !strings.HasSuffix(s, "sol") {
		return strconv.ParseUint(s, 10, 64)
	}
	s = strings.TrimSpace(strings.TrimSuffix(s, "sol"))
	parts := strings.SplitN(s, ".", 2)
	whole, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, err
	}
	if whole > ^uint64(0)/params.Sol {
		return 0, fmt.Errorf("amount %s overflows", s)
	}
	amount := whole * params.Sol
	if len(parts) == 2 {
		frac := parts[1]
		if len(frac) > 9 {
			return 0, fmt.Errorf("amount %s has more than 9 decimals", s)
		}
		frac += strings.Repeat("0", 9-len(frac))
		f, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, err
		}
		if amount+f < amount {
			return 0, fmt.Errorf("amount %s overflows", s)
		}
		amount += f
	}
	return amount, nil
}

func formatBps(bps uint64) string {
	return fmt.Sprintf("%d bps (%.2f%%)", bps, float64(bps)/100)
}

func printReceipt(ctx *cli.Context, receipt *types.Receipt) error {
	return printResult(ctx, receipt, func() {
		successColor.Printf("%v committed in slot %d\n", receipt.Kind, receipt.Slot)
		fields := [][]string{
			{"Transaction", receipt.TxHash.Hex()},
			{"Signer", receipt.Signer.Hex()},
			{"Nonce", strconv.FormatUint(receipt.Nonce, 10)},
			{"Timestamp", strconv.FormatUint(receipt.Timestamp, 10)},
		}
		for _, addr := range receipt.Created {
			fields = append(fields, []string{"Created", addr.Hex()})
		}
		for _, ev := range receipt.Events {
			fields = append(fields, []string{"Event", ev.Kind.String()})
		}
		printFields("Receipt", fields)
	})
}
