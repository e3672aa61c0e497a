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

// Package ledgerapi serves the ledger over HTTP/JSON and streams committed
// events over websockets.
package ledgerapi

import (
	"context"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/agentmemory/go-agentmemory/core"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// Backend is the ledger the API serves. It is implemented by *core.Ledger.
type Backend interface {
	Config() *params.LedgerConfig
	Head() *types.Head
	Apply(tx *types.Transaction) (*types.Receipt, error)

	Platform() (*types.PlatformConfig, error)
	Agent(agentID string) (*types.AgentAccount, error)
	Agents(offset, limit int) ([]core.AgentEntry, error)
	MemoryLog(addr common.Address) (*types.MemoryLog, error)
	MemoryLogs(agentID string, offset, limit int) ([]core.MemoryLogEntry, error)
	Attestation(logAddr common.Address) (*types.Attestation, error)
	Module(moduleID string) (*types.ModuleMetadata, error)
	Modules(offset, limit int) ([]core.ModuleEntry, error)
	Purchase(agentID, moduleID string) (*types.ModulePurchase, error)
	Purchases(agentID string) ([]core.PurchaseEntry, error)
	Identity(agentID string) (*types.VerifiedIdentity, error)
	IdentityValid(agentID string) (bool, error)
	Account(addr common.Address) (*types.Account, error)
	Receipt(hash common.Hash) (*types.Receipt, error)

	SubscribeReceipts(ch chan<- *types.Receipt) event.Subscription
}

// Analytics answers the read-side analytics queries. It is implemented by
// *analytics.Reporter and may be nil.
type Analytics interface {
	AgentReport(ctx context.Context, agentID string) (*analytics.AgentReport, error)
	CreatorReport(ctx context.Context, creator common.Address) (*analytics.CreatorReport, error)
}
