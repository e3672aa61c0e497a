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

package client

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var errNoMemoryLog = errors.New("receipt does not create a memory log")

// Transactor signs and submits instructions on behalf of a single key.
// Calls on one Transactor are serialized so nonces are assigned in order.
type Transactor struct {
	client *Client
	key    *ecdsa.PrivateKey
	From   common.Address

	mu sync.Mutex
}

// NewTransactor creates a transactor signing with key.
func NewTransactor(c *Client, key *ecdsa.PrivateKey) *Transactor {
	return &Transactor{
		client: c,
		key:    key,
		From:   crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Send signs ins with the signer's next nonce and submits it.
func (t *Transactor) Send(ctx context.Context, ins types.Instruction) (*types.Receipt, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nonce, err := t.client.NonceAt(ctx, t.From)
	if err != nil {
		return nil, err
	}
	tx, err := types.SignNewTx(t.client.program, t.key, nonce, ins)
	if err != nil {
		return nil, err
	}
	return t.client.SendTransaction(ctx, tx)
}

func (t *Transactor) InitializePlatform(ctx context.Context, treasury common.Address, platformFeeBps, referralFeeBps uint64) (*types.Receipt, error) {
	return t.Send(ctx, &types.InitializePlatform{Treasury: treasury, PlatformFeeBps: platformFeeBps, ReferralFeeBps: referralFeeBps})
}

func (t *Transactor) InitializeAgent(ctx context.Context, agentID string) (*types.Receipt, error) {
	return t.Send(ctx, &types.InitializeAgent{AgentID: agentID})
}

// LogDecision records a decision and returns the address of the new
// memory log.
func (t *Transactor) LogDecision(ctx context.Context, agentID, input, logic string) (common.Address, *types.Receipt, error) {
	receipt, err := t.Send(ctx, &types.LogDecision{AgentID: agentID, InputData: input, LogicData: logic})
	if err != nil {
		return common.Address{}, nil, err
	}
	ev, ok := receipt.FindEvent(types.DecisionLoggedEvent).(*types.DecisionLogged)
	if !ok {
		return common.Address{}, receipt, errNoMemoryLog
	}
	return ev.MemoryLog, receipt, nil
}

func (t *Transactor) AttestOutcome(ctx context.Context, agentID string, memoryLog common.Address, outcome string, success bool, delta int64) (*types.Receipt, error) {
	return t.Send(ctx, &types.AttestOutcome{
		AgentID:     agentID,
		MemoryLog:   memoryLog,
		OutcomeData: outcome,
		Success:     success,
		ScoreDelta:  types.ScoreDelta(delta),
	})
}

func (t *Transactor) RegisterModule(ctx context.Context, moduleID string, category types.ModuleCategory, price, royaltyBps uint64, ipfsHash string) (*types.Receipt, error) {
	return t.Send(ctx, &types.RegisterModule{
		ModuleID:      moduleID,
		Category:      category,
		PriceLamports: price,
		RoyaltyBps:    royaltyBps,
		IpfsHash:      ipfsHash,
	})
}

// PurchaseModule buys a module for one of the signer's agents. The
// referrer may be nil.
func (t *Transactor) PurchaseModule(ctx context.Context, moduleID, agentID string, referrer *common.Address) (*types.Receipt, error) {
	return t.Send(ctx, &types.PurchaseModule{ModuleID: moduleID, BuyerAgentID: agentID, Referrer: referrer})
}

func (t *Transactor) UpdateModulePricing(ctx context.Context, moduleID string, price, royaltyBps uint64) (*types.Receipt, error) {
	return t.Send(ctx, &types.UpdateModulePricing{ModuleID: moduleID, PriceLamports: price, RoyaltyBps: royaltyBps})
}

func (t *Transactor) Transfer(ctx context.Context, to common.Address, amount uint64) (*types.Receipt, error) {
	return t.Send(ctx, &types.Transfer{To: to, Amount: amount})
}

// RegisterIdentity verifies an agent with an identity provider. An expiry of
// zero never expires.
func (t *Transactor) RegisterIdentity(ctx context.Context, agentID string, provider types.IdentityProvider, credential common.Hash, expiresAt uint64) (*types.Receipt, error) {
	return t.Send(ctx, &types.RegisterIdentity{AgentID: agentID, Provider: provider, Credential: credential, ExpiresAt: expiresAt})
}

func (t *Transactor) RevokeIdentity(ctx context.Context, agentID string) (*types.Receipt, error) {
	return t.Send(ctx, &types.RevokeIdentity{AgentID: agentID})
}

func (t *Transactor) RenewIdentity(ctx context.Context, agentID string, credential common.Hash, expiresAt uint64) (*types.Receipt, error) {
	return t.Send(ctx, &types.RenewIdentity{AgentID: agentID, Credential: credential, ExpiresAt: expiresAt})
}
