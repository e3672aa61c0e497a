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

// agentmemory is the command line interface of the agent memory ledger.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"gopkg.in/urfave/cli.v1"
)

const clientIdentifier = "agentmemory"

var (
	app = cli.NewApp()

	dataDirFlag = cli.StringFlag{
		Name:  "datadir",
		Usage: "Data directory for the ledger database and analytics projection",
		Value: defaultDataDir(),
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Usage: "Megabytes of memory allocated to the ledger database",
		Value: 256,
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity: 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=detail",
		Value: 3,
	}
	rpcFlag = cli.StringFlag{
		Name:  "rpc",
		Usage: "HTTP endpoint of a running ledger node",
		Value: "http://localhost:8899",
	}
	keyFileFlag = cli.StringFlag{
		Name:  "keyfile",
		Usage: "File holding the hex encoded signing key",
	}
	jsonFlag = cli.BoolFlag{
		Name:  "json",
		Usage: "Print results as JSON",
	}
)

func init() {
	app.Name = clientIdentifier
	app.Usage = "agent reputation and memory module marketplace ledger"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		configFileFlag,
		dataDirFlag,
		cacheFlag,
		verbosityFlag,
		rpcFlag,
		keyFileFlag,
		jsonFlag,
	}
	app.Commands = []cli.Command{
		nodeCommand,
		dumpConfigCommand,
		accountCommand,
		platformCommand,
		agentCommand,
		identityCommand,
		moduleCommand,
		transferCommand,
		balanceCommand,
		receiptCommand,
		dashboardCommand,
		exportCommand,
		importCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		return setupLogging(ctx.GlobalInt(verbosityFlag.Name), os.Stderr)
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging installs the root log handler, with colors when the output
// is a terminal.
func setupLogging(verbosity int, f *os.File) error {
	if verbosity < 0 || verbosity > 5 {
		return fmt.Errorf("invalid verbosity %d", verbosity)
	}
	var (
		out      io.Writer = f
		useColor           = (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) && os.Getenv("TERM") != "dumb"
	)
	if useColor {
		out = colorable.NewColorable(f)
	}
	log.Root().SetHandler(log.LvlFilterHandler(log.Lvl(verbosity), log.StreamHandler(out, log.TerminalFormat(useColor))))
	return nil
}

// Fatalf formats a message to standard error and exits the program.
func Fatalf(format string, args ...interface{}) {
	w := io.MultiWriter(os.Stdout, os.Stderr)
	if isatty.IsTerminal(os.Stdout.Fd()) {
		// The SameFile check below doesn't work on Windows.
		// stdout is unlikely to get redirected though, so just print there.
		w = os.Stdout
	} else {
		outf, _ := os.Stdout.Stat()
		errf, _ := os.Stderr.Stat()
		if outf != nil && errf != nil && os.SameFile(outf, errf) {
			w = os.Stderr
		}
	}
	fmt.Fprintf(w, "Fatal: "+format+"\n", args...)
	os.Exit(1)
}

func splitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}
