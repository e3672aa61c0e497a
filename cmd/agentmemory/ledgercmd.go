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

	"github.com/agentmemory/go-agentmemory/client"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/urfave/cli.v1"
)

var (
	treasuryFlag = cli.StringFlag{
		Name:  "treasury",
		Usage: "Address receiving platform fees",
	}
	platformFeeFlag = cli.Uint64Flag{
		Name:  "platform-fee",
		Usage: "Platform fee in basis points",
		Value: 500,
	}
	referralFeeFlag = cli.Uint64Flag{
		Name:  "referral-fee",
		Usage: "Referral fee in basis points",
		Value: 500,
	}
	offsetFlag = cli.IntFlag{
		Name:  "offset",
		Usage: "Number of entries to skip",
	}
	limitFlag = cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of entries to list",
		Value: 100,
	}
	successFlag = cli.BoolFlag{
		Name:  "success",
		Usage: "Mark the outcome as successful",
	}
	deltaFlag = cli.Int64Flag{
		Name:  "delta",
		Usage: "Reputation change of the attestation",
	}
	categoryFlag = cli.StringFlag{
		Name:  "category",
		Usage: "Module category (BiTemporal, Procedural, Semantic, Episodic, Custom)",
		Value: "Semantic",
	}
	priceFlag = cli.StringFlag{
		Name:  "price",
		Usage: `Module price in lamports, or in SOL with a "sol" suffix`,
	}
	royaltyFlag = cli.Uint64Flag{
		Name:  "royalty",
		Usage: "Creator royalty in basis points",
	}
	ipfsFlag = cli.StringFlag{
		Name:  "ipfs",
		Usage: "IPFS content identifier of the module",
	}
	agentFlag = cli.StringFlag{
		Name:  "agent",
		Usage: "Id of the buying agent",
	}
	referrerFlag = cli.StringFlag{
		Name:  "referrer",
		Usage: "Address receiving the referral fee",
	}

	platformCommand = cli.Command{
		Name:     "platform",
		Usage:    "Manage the marketplace platform",
		Category: "LEDGER COMMANDS",
		Subcommands: []cli.Command{
			{
				Name:   "init",
				Usage:  "Initialize the platform configuration",
				Action: platformInit,
				Flags:  []cli.Flag{treasuryFlag, platformFeeFlag, referralFeeFlag},
			},
			{
				Name:   "show",
				Usage:  "Show the platform configuration",
				Action: platformShow,
			},
		},
	}

	agentCommand = cli.Command{
		Name:     "agent",
		Usage:    "Manage agents and their decision logs",
		Category: "LEDGER COMMANDS",
		Subcommands: []cli.Command{
			{
				Name:      "init",
				Usage:     "Register a new agent owned by the signing key",
				ArgsUsage: "<agent-id>",
				Action:    agentInit,
			},
			{
				Name:      "show",
				Usage:     "Show an agent",
				ArgsUsage: "<agent-id>",
				Action:    agentShow,
			},
			{
				Name:      "logs",
				Usage:     "List the memory logs of an agent",
				ArgsUsage: "<agent-id>",
				Action:    agentLogs,
				Flags:     []cli.Flag{offsetFlag, limitFlag},
			},
			{
				Name:      "log",
				Usage:     "Log a decision of an agent",
				ArgsUsage: "<agent-id> <input> <logic>",
				Action:    agentLog,
			},
			{
				Name:      "attest",
				Usage:     "Attest the outcome of a logged decision",
				ArgsUsage: "<agent-id> <memory-log> <outcome>",
				Action:    agentAttest,
				Flags:     []cli.Flag{successFlag, deltaFlag},
			},
		},
	}

	moduleCommand = cli.Command{
		Name:     "module",
		Usage:    "Manage memory modules",
		Category: "LEDGER COMMANDS",
		Subcommands: []cli.Command{
			{
				Name:      "register",
				Usage:     "List a new module on the marketplace",
				ArgsUsage: "<module-id>",
				Action:    moduleRegister,
				Flags:     []cli.Flag{categoryFlag, priceFlag, royaltyFlag, ipfsFlag},
			},
			{
				Name:      "pricing",
				Usage:     "Change the price and royalty of a module",
				ArgsUsage: "<module-id>",
				Action:    modulePricing,
				Flags:     []cli.Flag{priceFlag, royaltyFlag},
			},
			{
				Name:      "purchase",
				Usage:     "Buy a module for an agent",
				ArgsUsage: "<module-id>",
				Action:    modulePurchase,
				Flags:     []cli.Flag{agentFlag, referrerFlag},
			},
			{
				Name:      "show",
				Usage:     "Show a module",
				ArgsUsage: "<module-id>",
				Action:    moduleShow,
			},
			{
				Name:   "list",
				Usage:  "List the modules of the marketplace",
				Action: moduleList,
				Flags:  []cli.Flag{offsetFlag, limitFlag},
			},
			{
				Name:      "owned",
				Usage:     "List the modules an agent owns",
				ArgsUsage: "<agent-id>",
				Action:    moduleOwned,
			},
		},
	}

	transferCommand = cli.Command{
		Name:      "transfer",
		Usage:     "Move lamports to another address",
		ArgsUsage: "<to> <amount>",
		Category:  "LEDGER COMMANDS",
		Action:    transfer,
	}

	balanceCommand = cli.Command{
		Name:      "balance",
		Usage:     "Show the balance of an address",
		ArgsUsage: "[address]",
		Category:  "LEDGER COMMANDS",
		Action:    balance,
	}

	receiptCommand = cli.Command{
		Name:      "receipt",
		Usage:     "Show the receipt of a transaction",
		ArgsUsage: "<tx-hash>",
		Category:  "LEDGER COMMANDS",
		Action:    receipt,
	}
)

// dial connects to the node named by --rpc.
func dial(ctx *cli.Context) *client.Client {
	c, err := client.Dial(context.Background(), ctx.GlobalString(rpcFlag.Name))
	if err != nil {
		Fatalf("Failed to connect to %s: %v", ctx.GlobalString(rpcFlag.Name), err)
	}
	return c
}

func transactor(ctx *cli.Context) *client.Transactor {
	return client.NewTransactor(dial(ctx), loadKey(ctx))
}

// args returns the n positional arguments of the command.
func args(ctx *cli.Context, n int) ([]string, error) {
	if ctx.NArg() != n {
		return nil, fmt.Errorf("expected %d arguments, got %d", n, ctx.NArg())
	}
	return ctx.Args()[:n], nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func platformInit(ctx *cli.Context) error {
	treasury, err := parseAddress(ctx.String(treasuryFlag.Name))
	if err != nil {
		return err
	}
	t := transactor(ctx)
	r, err := t.InitializePlatform(context.Background(), treasury, ctx.Uint64(platformFeeFlag.Name), ctx.Uint64(referralFeeFlag.Name))
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func platformShow(ctx *cli.Context) error {
	p, err := dial(ctx).Platform(context.Background())
	if err != nil {
		return err
	}
	return printResult(ctx, p, func() {
		printFields("Platform", [][]string{
			{"Authority", p.Authority.Hex()},
			{"Treasury", p.Treasury.Hex()},
			{"Platform fee", formatBps(p.PlatformFeeBps)},
			{"Referral fee", formatBps(p.ReferralFeeBps)},
		})
	})
}

func agentInit(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	r, err := transactor(ctx).InitializeAgent(context.Background(), a[0])
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func agentShow(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	c := dial(ctx)
	agent, err := c.Agent(context.Background(), a[0])
	if err != nil {
		return err
	}
	return printResult(ctx, agent, func() {
		printFields("Agent "+agent.AgentID, [][]string{
			{"Address", c.AgentAddress(agent.AgentID).Hex()},
			{"Authority", agent.Authority.Hex()},
			{"Reputation", strconv.FormatUint(agent.Reputation, 10)},
			{"Logs", strconv.FormatUint(agent.TotalLogs, 10)},
			{"Attestations", strconv.FormatUint(agent.TotalAttestations, 10)},
			{"Created", strconv.FormatUint(agent.CreatedAt, 10)},
		})
	})
}

func agentLogs(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	logs, err := dial(ctx).MemoryLogs(context.Background(), a[0], ctx.Int(offsetFlag.Name), ctx.Int(limitFlag.Name))
	if err != nil {
		return err
	}
	return printResult(ctx, logs, func() {
		table := newTable("Seq", "Address", "Timestamp", "Merkle root", "Attested")
		for _, l := range logs {
			attested := failureColor.Sprint("no")
			if l.IsAttested {
				attested = successColor.Sprint("yes")
			}
			table.Append([]string{
				strconv.FormatUint(l.Sequence, 10),
				l.Address.Hex(),
				strconv.FormatUint(l.Timestamp, 10),
				l.MerkleRoot.TerminalString(),
				attested,
			})
		}
		table.Render()
	})
}

func agentLog(ctx *cli.Context) error {
	a, err := args(ctx, 3)
	if err != nil {
		return err
	}
	_, r, err := transactor(ctx).LogDecision(context.Background(), a[0], a[1], a[2])
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func agentAttest(ctx *cli.Context) error {
	a, err := args(ctx, 3)
	if err != nil {
		return err
	}
	logAddr, err := parseAddress(a[1])
	if err != nil {
		return err
	}
	r, err := transactor(ctx).AttestOutcome(context.Background(), a[0], logAddr, a[2], ctx.Bool(successFlag.Name), ctx.Int64(deltaFlag.Name))
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func moduleRegister(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	category, err := types.ParseModuleCategory(ctx.String(categoryFlag.Name))
	if err != nil {
		return err
	}
	price, err := parseAmount(ctx.String(priceFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid price: %v", err)
	}
	r, err := transactor(ctx).RegisterModule(context.Background(), a[0], category, price, ctx.Uint64(royaltyFlag.Name), ctx.String(ipfsFlag.Name))
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func modulePricing(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	price, err := parseAmount(ctx.String(priceFlag.Name))
	if err != nil {
		return fmt.Errorf("invalid price: %v", err)
	}
	r, err := transactor(ctx).UpdateModulePricing(context.Background(), a[0], price, ctx.Uint64(royaltyFlag.Name))
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func modulePurchase(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	agentID := ctx.String(agentFlag.Name)
	if agentID == "" {
		return errors.New("missing --agent")
	}
	var referrer *common.Address
	if s := ctx.String(referrerFlag.Name); s != "" {
		addr, err := parseAddress(s)
		if err != nil {
			return err
		}
		referrer = &addr
	}
	r, err := transactor(ctx).PurchaseModule(context.Background(), a[0], agentID, referrer)
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func moduleShow(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	c := dial(ctx)
	m, err := c.Module(context.Background(), a[0])
	if err != nil {
		return err
	}
	return printResult(ctx, m, func() {
		printFields("Module "+m.ModuleID, [][]string{
			{"Address", c.ModuleAddress(m.ModuleID).Hex()},
			{"Creator", m.Creator.Hex()},
			{"Category", m.Category.String()},
			{"Price", formatSol(m.PriceLamports)},
			{"Royalty", formatBps(m.RoyaltyBps)},
			{"IPFS", m.IpfsHash},
			{"Active", strconv.FormatBool(m.IsActive)},
			{"Sales", strconv.FormatUint(m.TotalSales, 10)},
			{"Revenue", formatSol(m.TotalRevenue)},
		})
	})
}

func moduleList(ctx *cli.Context) error {
	modules, err := dial(ctx).Modules(context.Background(), ctx.Int(offsetFlag.Name), ctx.Int(limitFlag.Name))
	if err != nil {
		return err
	}
	return printResult(ctx, modules, func() {
		table := newTable("Module", "Category", "Price", "Royalty", "Sales", "Creator")
		for _, m := range modules {
			table.Append([]string{
				m.ModuleID,
				m.Category.String(),
				formatSol(m.PriceLamports),
				formatBps(m.RoyaltyBps),
				strconv.FormatUint(m.TotalSales, 10),
				m.Creator.Hex(),
			})
		}
		table.Render()
	})
}

func moduleOwned(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	purchases, err := dial(ctx).Purchases(context.Background(), a[0])
	if err != nil {
		return err
	}
	return printResult(ctx, purchases, func() {
		table := newTable("Purchase", "Module", "Price paid", "Timestamp")
		for _, p := range purchases {
			table.Append([]string{
				p.Address.Hex(),
				p.Module.Hex(),
				formatSol(p.PricePaid),
				strconv.FormatUint(p.PurchasedAt, 10),
			})
		}
		table.Render()
	})
}

func transfer(ctx *cli.Context) error {
	a, err := args(ctx, 2)
	if err != nil {
		return err
	}
	to, err := parseAddress(a[0])
	if err != nil {
		return err
	}
	amount, err := parseAmount(a[1])
	if err != nil {
		return fmt.Errorf("invalid amount: %v", err)
	}
	r, err := transactor(ctx).Transfer(context.Background(), to, amount)
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func balance(ctx *cli.Context) error {
	var addr common.Address
	if ctx.NArg() > 0 {
		var err error
		if addr, err = parseAddress(ctx.Args().First()); err != nil {
			return err
		}
	} else {
		addr = crypto.PubkeyToAddress(loadKey(ctx).PublicKey)
	}
	amount, err := dial(ctx).BalanceAt(context.Background(), addr)
	if err != nil {
		return err
	}
	return printResult(ctx, struct {
		Address common.Address `json:"address"`
		Balance uint64         `json:"balance"`
	}{addr, amount}, func() {
		fmt.Printf("%s: %s (%d lamports)\n", addr.Hex(), formatSol(amount), amount)
	})
}

func receipt(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	hash := common.HexToHash(a[0])
	r, err := dial(ctx).Receipt(context.Background(), hash)
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}
