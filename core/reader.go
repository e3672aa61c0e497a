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

package core

import (
	"fmt"

	"github.com/agentmemory/go-agentmemory/core/rawdb"
	"github.com/agentmemory/go-agentmemory/core/state"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// AgentEntry is an agent together with its address.
type AgentEntry struct {
	Address common.Address `json:"address"`
	*types.AgentAccount
}

// ModuleEntry is a module together with its address.
type ModuleEntry struct {
	Address common.Address `json:"address"`
	*types.ModuleMetadata
}

// MemoryLogEntry is a memory log together with its address.
type MemoryLogEntry struct {
	Address common.Address `json:"address"`
	*types.MemoryLog
}

// PurchaseEntry is a purchase record together with its address.
type PurchaseEntry struct {
	Address common.Address `json:"address"`
	*types.ModulePurchase
}

// view returns a read-only state over the committed accounts.
func (l *Ledger) view() *state.StateDB {
	return state.New(l.stateCache)
}

func (l *Ledger) read(addr common.Address, kind types.AccountKind, val interface{}, notFound error) error {
	statedb := l.view()
	if !statedb.GetAccount(addr, kind, val) {
		if err := statedb.Error(); err != nil {
			return err
		}
		return fmt.Errorf("%w: %x", notFound, addr)
	}
	return nil
}

// Platform returns the platform configuration.
func (l *Ledger) Platform() (*types.PlatformConfig, error) {
	config := new(types.PlatformConfig)
	if err := l.read(types.PlatformConfigAddress(l.config.ProgramID), types.KindPlatformConfig, config, ErrPlatformNotInitialized); err != nil {
		return nil, err
	}
	return config, nil
}

// Agent returns the agent with the given id.
func (l *Ledger) Agent(agentID string) (*types.AgentAccount, error) {
	if err := validateAgentID(agentID); err != nil {
		return nil, err
	}
	return l.AgentAt(types.AgentAddress(l.config.ProgramID, agentID))
}

// AgentAt returns the agent stored at addr.
func (l *Ledger) AgentAt(addr common.Address) (*types.AgentAccount, error) {
	agent := new(types.AgentAccount)
	if err := l.read(addr, types.KindAgent, agent, ErrAgentNotFound); err != nil {
		return nil, err
	}
	return agent, nil
}

// Agents lists agents in creation order.
func (l *Ledger) Agents(offset, limit int) ([]AgentEntry, error) {
	addrs := rawdb.ReadKindIndex(l.db, types.KindAgent, offset, limit)
	entries := make([]AgentEntry, 0, len(addrs))
	for _, addr := range addrs {
		agent, err := l.AgentAt(addr)
		if err != nil {
			return nil, err
		}
		entries = append(entries, AgentEntry{Address: addr, AgentAccount: agent})
	}
	return entries, nil
}

// Module returns the module with the given id.
func (l *Ledger) Module(moduleID string) (*types.ModuleMetadata, error) {
	if err := validateModuleID(moduleID); err != nil {
		return nil, err
	}
	return l.ModuleAt(types.ModuleAddress(l.config.ProgramID, moduleID))
}

// ModuleAt returns the module stored at addr.
func (l *Ledger) ModuleAt(addr common.Address) (*types.ModuleMetadata, error) {
	module := new(types.ModuleMetadata)
	if err := l.read(addr, types.KindModule, module, ErrModuleNotFound); err != nil {
		return nil, err
	}
	return module, nil
}

// Modules lists modules in registration order.
func (l *Ledger) Modules(offset, limit int) ([]ModuleEntry, error) {
	addrs := rawdb.ReadKindIndex(l.db, types.KindModule, offset, limit)
	entries := make([]ModuleEntry, 0, len(addrs))
	for _, addr := range addrs {
		module, err := l.ModuleAt(addr)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ModuleEntry{Address: addr, ModuleMetadata: module})
	}
	return entries, nil
}

// MemoryLog returns the memory log stored at addr.
func (l *Ledger) MemoryLog(addr common.Address) (*types.MemoryLog, error) {
	memoryLog := new(types.MemoryLog)
	if err := l.read(addr, types.KindMemoryLog, memoryLog, ErrLogNotFound); err != nil {
		return nil, err
	}
	return memoryLog, nil
}

// MemoryLogs lists the memory logs of an agent in sequence order.
func (l *Ledger) MemoryLogs(agentID string, offset, limit int) ([]MemoryLogEntry, error) {
	if _, err := l.Agent(agentID); err != nil {
		return nil, err
	}
	agent := types.AgentAddress(l.config.ProgramID, agentID)
	addrs := rawdb.ReadAgentLogs(l.db, agent, offset, limit)
	entries := make([]MemoryLogEntry, 0, len(addrs))
	for _, addr := range addrs {
		memoryLog, err := l.MemoryLog(addr)
		if err != nil {
			return nil, err
		}
		entries = append(entries, MemoryLogEntry{Address: addr, MemoryLog: memoryLog})
	}
	return entries, nil
}

// Attestation returns the attestation of the memory log at logAddr.
func (l *Ledger) Attestation(logAddr common.Address) (*types.Attestation, error) {
	attestation := new(types.Attestation)
	addr := types.AttestationAddress(l.config.ProgramID, logAddr)
	if err := l.read(addr, types.KindAttestation, attestation, ErrAttestationNotFound); err != nil {
		return nil, err
	}
	return attestation, nil
}

// Purchase returns the record of an agent's purchase of a module.
func (l *Ledger) Purchase(agentID, moduleID string) (*types.ModulePurchase, error) {
	if err := validateAgentID(agentID); err != nil {
		return nil, err
	}
	if err := validateModuleID(moduleID); err != nil {
		return nil, err
	}
	addr := types.PurchaseAddress(l.config.ProgramID,
		types.AgentAddress(l.config.ProgramID, agentID),
		types.ModuleAddress(l.config.ProgramID, moduleID))

	purchase := new(types.ModulePurchase)
	if err := l.read(addr, types.KindPurchase, purchase, ErrPurchaseNotFound); err != nil {
		return nil, err
	}
	return purchase, nil
}

// HasPurchased reports whether the agent owns the module.
func (l *Ledger) HasPurchased(agentID, moduleID string) (bool, error) {
	_, err := l.Purchase(agentID, moduleID)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Identity returns the verified identity of the agent with the given id.
func (l *Ledger) Identity(agentID string) (*types.VerifiedIdentity, error) {
	if err := validateAgentID(agentID); err != nil {
		return nil, err
	}
	identity := new(types.VerifiedIdentity)
	addr := types.IdentityAddress(l.config.ProgramID, types.AgentAddress(l.config.ProgramID, agentID))
	if err := l.read(addr, types.KindIdentity, identity, ErrIdentityNotFound); err != nil {
		return nil, err
	}
	return identity, nil
}

// IdentityValid reports whether the agent holds an identity that is active
// and unexpired at the current ledger time.
func (l *Ledger) IdentityValid(agentID string) (bool, error) {
	identity, err := l.Identity(agentID)
	switch {
	case IsNotFound(err):
		return false, nil
	case err != nil:
		return false, err
	}
	now := timestampOf(l.clock.Now(), l.config.TimestampResolution)
	if head := l.Head().Timestamp; now < head {
		now = head
	}
	return identity.IsValid(now), nil
}

// Purchases lists the modules an agent owns.
func (l *Ledger) Purchases(agentID string) ([]PurchaseEntry, error) {
	if _, err := l.Agent(agentID); err != nil {
		return nil, err
	}
	agent := types.AgentAddress(l.config.ProgramID, agentID)
	addrs := rawdb.ReadPurchases(l.db, agent)
	entries := make([]PurchaseEntry, 0, len(addrs))
	for _, addr := range addrs {
		purchase := new(types.ModulePurchase)
		if err := l.read(addr, types.KindPurchase, purchase, ErrPurchaseNotFound); err != nil {
			return nil, err
		}
		entries = append(entries, PurchaseEntry{Address: addr, ModulePurchase: purchase})
	}
	return entries, nil
}

// Account returns the raw account stored at addr.
func (l *Ledger) Account(addr common.Address) (*types.Account, error) {
	acc := rawdb.ReadAccount(l.db, addr)
	if acc == nil {
		return nil, fmt.Errorf("%w: %x", ErrAccountNotFound, addr)
	}
	return acc, nil
}

// Balance returns the lamport balance of addr, zero if absent.
func (l *Ledger) Balance(addr common.Address) uint64 {
	return l.view().GetBalance(addr)
}

// Nonce returns the next transaction nonce of addr.
func (l *Ledger) Nonce(addr common.Address) uint64 {
	return l.view().GetNonce(addr)
}

// Receipt returns the receipt of a committed transaction.
func (l *Ledger) Receipt(hash common.Hash) (*types.Receipt, error) {
	if cached, ok := l.receiptsCache.Get(hash); ok {
		return cached.(*types.Receipt), nil
	}
	receipt := rawdb.ReadReceipt(l.db, hash)
	if receipt == nil {
		return nil, fmt.Errorf("%w: %x", ErrReceiptNotFound, hash)
	}
	l.receiptsCache.Add(hash, receipt)
	return receipt, nil
}

// ReceiptBySlot returns the receipt of the transaction committed in slot.
func (l *Ledger) ReceiptBySlot(slot uint64) (*types.Receipt, error) {
	hash := rawdb.ReadSlotTxHash(l.db, slot)
	if hash == (common.Hash{}) {
		return nil, fmt.Errorf("%w: slot %d", ErrReceiptNotFound, slot)
	}
	return l.Receipt(hash)
}
