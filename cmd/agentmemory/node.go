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
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/agentmemory/go-agentmemory/core"
	"github.com/agentmemory/go-agentmemory/internal/ledgerapi"
	"github.com/agentmemory/go-agentmemory/ledgerdb/leveldb"
	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"
)

const shutdownTimeout = 10 * time.Second

var (
	httpHostFlag = cli.StringFlag{
		Name:  "http.addr",
		Usage: "HTTP server listening interface",
		Value: "localhost",
	}
	httpPortFlag = cli.IntFlag{
		Name:  "http.port",
		Usage: "HTTP server listening port",
		Value: 8899,
	}
	httpCorsFlag = cli.StringFlag{
		Name:  "http.corsdomain",
		Usage: "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
	}
	rateLimitFlag = cli.Float64Flag{
		Name:  "http.ratelimit",
		Usage: "Requests per second allowed per client, 0 disables limiting",
	}
	analyticsDBFlag = cli.StringFlag{
		Name:  "analytics.db",
		Usage: "SQLite file of the analytics projection, relative to the datadir",
	}
	noAnalyticsFlag = cli.BoolFlag{
		Name:  "noanalytics",
		Usage: "Disable the analytics projection",
	}

	nodeFlags = []cli.Flag{
		httpHostFlag,
		httpPortFlag,
		httpCorsFlag,
		rateLimitFlag,
		analyticsDBFlag,
		noAnalyticsFlag,
	}

	nodeCommand = cli.Command{
		Action:   runNode,
		Name:     "node",
		Usage:    "Run a ledger node serving the HTTP API",
		Flags:    nodeFlags,
		Category: "LEDGER COMMANDS",
		Description: `
The node command opens the ledger database in the data directory, writing the
genesis state on first start, and serves the ledger API over HTTP. Unless
disabled, it also keeps the SQLite analytics projection up to date.`,
	}
)

func ledgerPath(cfg *agentmemoryConfig) string {
	return filepath.Join(cfg.Node.DataDir, "ledger")
}

// openDatabase opens the ledger database of the configured data directory.
func openDatabase(cfg *agentmemoryConfig, readonly bool) *leveldb.Database {
	if !readonly {
		if err := os.MkdirAll(cfg.Node.DataDir, 0700); err != nil {
			Fatalf("Failed to create data directory: %v", err)
		}
	}
	db, err := leveldb.New(ledgerPath(cfg), cfg.Node.DatabaseCache, cfg.Node.DatabaseHandles, readonly)
	if err != nil {
		Fatalf("Failed to open database: %v", err)
	}
	return db
}

func runNode(ctx *cli.Context) error {
	cfg := makeConfig(ctx)

	db := openDatabase(&cfg, false)
	defer db.Close()
	ledger, err := core.NewLedger(db, &cfg.Ledger, nil, nil)
	if err != nil {
		return err
	}
	defer ledger.Close()

	var (
		reports   ledgerapi.Analytics
		projector *analytics.Projector
	)
	if cfg.Node.AnalyticsDB != "" {
		store, err := analytics.OpenStore(cfg.Node.ResolvePath(cfg.Node.AnalyticsDB))
		if err != nil {
			return err
		}
		defer store.Close()
		projector = analytics.NewProjector(store, ledger, cfg.Ledger.TimestampResolution)
		reports = analytics.NewReporter(store, cfg.Analytics)
	}

	api := ledgerapi.NewServer(ledger, reports, ledgerapi.Config{
		Cors:      cfg.Node.HTTPCors,
		RateLimit: cfg.Node.RateLimit,
		RateBurst: cfg.Node.RateBurst,
	})
	srv := &http.Server{
		Addr:              cfg.Node.HTTPEndpoint(),
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(sigctx)

	g.Go(func() error {
		log.Info("HTTP server started", "endpoint", "http://"+cfg.Node.HTTPEndpoint(), "cors", cfg.Node.HTTPCors)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if projector != nil {
		g.Go(func() error {
			return projector.Run(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down ledger node")
		api.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
