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
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/agentmemory/go-agentmemory/core"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/urfave/cli.v1"
)

var (
	exportCommand = cli.Command{
		Action:    exportLedger,
		Name:      "export",
		Usage:     "Export the ledger database into a file",
		ArgsUsage: "<filename>",
		Category:  "DATABASE COMMANDS",
		Description: `
Writes every entry of the ledger database to a snappy compressed file. The
node must not be running.`,
	}
	importCommand = cli.Command{
		Action:    importLedger,
		Name:      "import",
		Usage:     "Import an exported ledger into an empty data directory",
		ArgsUsage: "<filename>",
		Category:  "DATABASE COMMANDS",
		Description: `
Restores a file written by export. The import is atomic: it either loads
every entry or leaves the data directory empty.`,
	}
)

func exportLedger(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("this command requires an argument")
	}
	cfg := makeConfig(ctx)
	db := openDatabase(&cfg, true)
	defer db.Close()

	fh, err := os.OpenFile(ctx.Args().First(), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.ModePerm)
	if err != nil {
		return err
	}
	defer fh.Close()

	start := time.Now()
	n, err := core.Export(db, fh)
	if err != nil {
		return fmt.Errorf("export failed after %d entries: %v", n, err)
	}
	log.Info("Export done", "file", ctx.Args().First(), "entries", n, "elapsed", common.PrettyDuration(time.Since(start)))
	return nil
}

func importLedger(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("this command requires an argument")
	}
	cfg := makeConfig(ctx)
	db := openDatabase(&cfg, false)
	defer db.Close()

	fh, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer fh.Close()

	start := time.Now()
	n, err := core.Import(db, fh)
	if err != nil {
		return fmt.Errorf("import failed: %v", err)
	}
	ledger, err := core.NewLedger(db, &cfg.Ledger, nil, nil)
	if err != nil {
		return err
	}
	head := ledger.Head()
	ledger.Close()
	log.Info("Import done", "entries", n, "slot", head.Slot, "elapsed", common.PrettyDuration(time.Since(start)))
	return nil
}
