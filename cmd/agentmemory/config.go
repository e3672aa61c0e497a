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
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"unicode"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/agentmemory/go-agentmemory/internal/ledgerapi"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"
)

var (
	dumpConfigCommand = cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Show configuration values",
		ArgsUsage:   "[file]",
		Flags:       nodeFlags,
		Category:    "MISCELLANEOUS COMMANDS",
		Description: `The dumpconfig command shows configuration values.`,
	}

	configFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// NodeConfig holds the process level settings of a ledger node.
type NodeConfig struct {
	DataDir         string
	DatabaseCache   int // Megabytes
	DatabaseHandles int

	HTTPHost  string
	HTTPPort  int
	HTTPCors  []string `toml:",omitempty"`
	RateLimit float64
	RateBurst int

	// AnalyticsDB is the SQLite projection file, relative paths resolve
	// against DataDir. Empty disables analytics.
	AnalyticsDB string `toml:",omitempty"`
}

// HTTPEndpoint returns the listen address of the API server.
func (c *NodeConfig) HTTPEndpoint() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}

// ResolvePath resolves path against the data directory.
func (c *NodeConfig) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

func defaultNodeConfig() NodeConfig {
	return NodeConfig{
		DataDir:         defaultDataDir(),
		DatabaseCache:   256,
		DatabaseHandles: 512,
		HTTPHost:        "localhost",
		HTTPPort:        8899,
		RateLimit:       ledgerapi.DefaultConfig.RateLimit,
		RateBurst:       ledgerapi.DefaultConfig.RateBurst,
		AnalyticsDB:     "analytics.db",
	}
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".agentmemory")
	}
	return ".agentmemory"
}

type agentmemoryConfig struct {
	Ledger    params.LedgerConfig
	Node      NodeConfig
	Analytics analytics.Config
}

func loadConfig(file string, cfg *agentmemoryConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads defaults, the config file and the command line flags.
func makeConfig(ctx *cli.Context) agentmemoryConfig {
	cfg := agentmemoryConfig{
		Ledger:    params.DefaultLedgerConfig,
		Node:      defaultNodeConfig(),
		Analytics: analytics.DefaultConfig,
	}
	if file := ctx.GlobalString(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			Fatalf("%v", err)
		}
	}
	setNodeConfig(ctx, &cfg.Node)
	if err := cfg.Ledger.Validate(); err != nil {
		Fatalf("Invalid ledger configuration: %v", err)
	}
	if err := cfg.Analytics.Validate(); err != nil {
		Fatalf("Invalid analytics configuration: %v", err)
	}
	log.Debug("Loaded configuration", "ledger", &cfg.Ledger)
	return cfg
}

func setNodeConfig(ctx *cli.Context, cfg *NodeConfig) {
	if ctx.GlobalIsSet(dataDirFlag.Name) {
		cfg.DataDir = ctx.GlobalString(dataDirFlag.Name)
	}
	if ctx.GlobalIsSet(cacheFlag.Name) {
		cfg.DatabaseCache = ctx.GlobalInt(cacheFlag.Name)
	}
	if ctx.IsSet(httpHostFlag.Name) {
		cfg.HTTPHost = ctx.String(httpHostFlag.Name)
	}
	if ctx.IsSet(httpPortFlag.Name) {
		cfg.HTTPPort = ctx.Int(httpPortFlag.Name)
	}
	if ctx.IsSet(httpCorsFlag.Name) {
		cfg.HTTPCors = splitAndTrim(ctx.String(httpCorsFlag.Name))
	}
	if ctx.IsSet(rateLimitFlag.Name) {
		cfg.RateLimit = ctx.Float64(rateLimitFlag.Name)
	}
	if ctx.IsSet(analyticsDBFlag.Name) {
		cfg.AnalyticsDB = ctx.String(analyticsDBFlag.Name)
	}
	if ctx.Bool(noAnalyticsFlag.Name) {
		cfg.AnalyticsDB = ""
	}
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	comment := ""

	if len(cfg.Ledger.Genesis) > 0 {
		comment += fmt.Sprintf("# Note: genesis allocates %d accounts, it only applies to an empty datadir.\n\n", len(cfg.Ledger.Genesis))
	}

	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.WriteString(comment)
	dump.Write(out)

	return nil
}
