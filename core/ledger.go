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

// Package core implements the agent reputation and module marketplace ledger.
package core

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/agentmemory/go-agentmemory/core/rawdb"
	"github.com/agentmemory/go-agentmemory/core/state"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/ledgerdb"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"
)

// ErrLedgerClosed is returned by Apply after Close.
var ErrLedgerClosed = errors.New("ledger closed")

// CacheConfig contains the cache settings of a ledger.
type CacheConfig struct {
	AccountCache int // Megabytes of clean account encodings kept in memory
	ReceiptCache int // Number of recent receipts kept in memory
}

// DefaultCacheConfig are the cache settings used when none are given.
var DefaultCacheConfig = &CacheConfig{
	AccountCache: 16,
	ReceiptCache: 256,
}

// Ledger applies signed transactions to the account store. Transactions are
// applied one at a time; each either commits all of its effects in a single
// database batch or fails without leaving any trace.
type Ledger struct {
	config     *params.LedgerConfig
	db         ledgerdb.KeyValueStore
	stateCache state.Database
	clock      Clock

	mu   sync.Mutex // serializes Apply
	head atomic.Value

	receiptsCache *lru.Cache
	receiptFeed   event.Feed
	scope         event.SubscriptionScope
	closed        int32
}

// NewLedger opens the ledger stored in db, writing the genesis state if the
// database is empty.
func NewLedger(db ledgerdb.KeyValueStore, config *params.LedgerConfig, clock Clock, cacheConfig *CacheConfig) (*Ledger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if cacheConfig == nil {
		cacheConfig = DefaultCacheConfig
	}
	head, err := SetupGenesis(db, config)
	if err != nil {
		return nil, err
	}
	receipts, _ := lru.New(cacheConfig.ReceiptCache)
	l := &Ledger{
		config:        config,
		db:            db,
		stateCache:    state.NewDatabaseWithCache(db, cacheConfig.AccountCache),
		clock:         clock,
		receiptsCache: receipts,
	}
	l.head.Store(head)
	log.Info("Loaded ledger", "program", config.ProgramID, "slot", head.Slot, "timestamp", head.Timestamp)
	return l, nil
}

// Config returns the ledger configuration.
func (l *Ledger) Config() *params.LedgerConfig { return l.config }

// Head returns the most recent committed slot.
func (l *Ledger) Head() *types.Head {
	return l.head.Load().(*types.Head)
}

// Apply verifies and executes a signed transaction. On success the receipt
// of the committed transaction is returned and published to subscribers.
func (l *Ledger) Apply(tx *types.Transaction) (*types.Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if atomic.LoadInt32(&l.closed) == 1 {
		return nil, ErrLedgerClosed
	}
	signer, err := types.Sender(l.config.ProgramID, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	ins, err := tx.Instruction()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownInstruction, err)
	}
	statedb := state.New(l.stateCache)
	nonce := statedb.GetNonce(signer)
	head := l.Head()
	timestamp := timestampOf(l.clock.Now(), l.config.TimestampResolution)
	if timestamp < head.Timestamp {
		timestamp = head.Timestamp
	}
	receipt := &types.Receipt{
		TxHash:    tx.Hash(),
		Kind:      tx.Kind(),
		Signer:    signer,
		Nonce:     tx.Nonce(),
		Slot:      head.Slot + 1,
		Timestamp: timestamp,
	}
	env := &execEnv{
		config:    l.config,
		state:     statedb,
		signer:    signer,
		timestamp: timestamp,
		receipt:   receipt,
	}
	if err := env.execute(ins); err != nil {
		log.Debug("Rejected transaction", "hash", receipt.TxHash, "kind", receipt.Kind, "signer", signer, "err", err)
		return nil, err
	}
	if err := statedb.Error(); err != nil {
		return nil, err
	}
	// The nonce is checked after execution, so a duplicate submission reports
	// the conflict it runs into rather than a stale nonce.
	switch {
	case tx.Nonce() < nonce:
		return nil, fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooLow, signer, tx.Nonce(), nonce)
	case tx.Nonce() > nonce:
		return nil, fmt.Errorf("%w: address %v, tx: %d state: %d", ErrNonceTooHigh, signer, tx.Nonce(), nonce)
	}
	statedb.SetNonce(signer, nonce+1)

	batch := l.db.NewBatch()
	if err := l.writeIndexes(batch, statedb, receipt); err != nil {
		return nil, err
	}
	newHead := &types.Head{Slot: receipt.Slot, Timestamp: timestamp, TxHash: receipt.TxHash}
	rawdb.WriteReceipt(batch, receipt)
	rawdb.WriteSlotTxHash(batch, receipt.Slot, receipt.TxHash)
	rawdb.WriteHead(batch, newHead)
	if err := statedb.Commit(batch); err != nil {
		return nil, err
	}
	l.head.Store(newHead)
	receipt.DeriveFields()
	l.receiptsCache.Add(receipt.TxHash, receipt)

	log.Debug("Applied transaction", "slot", receipt.Slot, "hash", receipt.TxHash, "kind", receipt.Kind, "signer", signer, "events", len(receipt.Events))
	l.receiptFeed.Send(receipt)
	return receipt, nil
}

// writeIndexes queues the secondary index entries of a receipt.
func (l *Ledger) writeIndexes(batch ledgerdb.KeyValueWriter, statedb *state.StateDB, receipt *types.Receipt) error {
	for _, addr := range receipt.Created {
		rawdb.WriteKindIndex(batch, statedb.GetKind(addr), receipt.Slot, addr)
	}
	for _, ev := range receipt.Events {
		payload, err := ev.Payload()
		if err != nil {
			return err
		}
		switch p := payload.(type) {
		case *types.DecisionLogged:
			rawdb.WriteAgentLog(batch, p.Agent, p.Sequence, p.MemoryLog)
		case *types.ModulePurchased:
			rawdb.WritePurchaseIndex(batch, p.Agent, p.Module, p.Purchase)
		}
	}
	return nil
}

// SubscribeReceipts registers a subscription for the receipts of committed
// transactions.
func (l *Ledger) SubscribeReceipts(ch chan<- *types.Receipt) event.Subscription {
	return l.scope.Track(l.receiptFeed.Subscribe(ch))
}

// Close stops accepting transactions and ends all subscriptions. The
// underlying database is left open.
func (l *Ledger) Close() {
	if !atomic.CompareAndSwapInt32(&l.closed, 0, 1) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.scope.Close()
	log.Info("Ledger stopped", "slot", l.Head().Slot)
}
