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
	"errors"
	"fmt"

	"github.com/agentmemory/go-agentmemory/core/state"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
)

// execEnv is the context a single instruction executes in.
type execEnv struct {
	config    *params.LedgerConfig
	state     *state.StateDB
	signer    common.Address
	timestamp uint64
	receipt   *types.Receipt
}

// execute dispatches the instruction to its handler. On error the caller
// discards every change made to the state.
func (env *execEnv) execute(ins types.Instruction) error {
	switch ins := ins.(type) {
	case *types.InitializePlatform:
		return env.initializePlatform(ins)
	case *types.InitializeAgent:
		return env.initializeAgent(ins)
	case *types.LogDecision:
		return env.logDecision(ins)
	case *types.AttestOutcome:
		return env.attestOutcome(ins)
	case *types.RegisterModule:
		return env.registerModule(ins)
	case *types.PurchaseModule:
		return env.purchaseModule(ins)
	case *types.UpdateModulePricing:
		return env.updateModulePricing(ins)
	case *types.Transfer:
		return env.transfer(ins)
	case *types.RegisterIdentity:
		return env.registerIdentity(ins)
	case *types.RevokeIdentity:
		return env.revokeIdentity(ins)
	case *types.RenewIdentity:
		return env.renewIdentity(ins)
	default:
		return fmt.Errorf("%w: %T", ErrUnknownInstruction, ins)
	}
}

// create makes a new program account, translating an occupied address into
// the given conflict error. The platform treasury is never taken over.
func (env *execEnv) create(addr common.Address, kind types.AccountKind, val interface{}, conflict error) error {
	if platform := new(types.PlatformConfig); env.state.GetAccount(types.PlatformConfigAddress(env.config.ProgramID), types.KindPlatformConfig, platform) {
		if platform.Treasury == addr {
			return fmt.Errorf("%w: %v %x is the platform treasury", conflict, kind, addr)
		}
	}
	err := env.state.CreateAccount(addr, kind, val)
	if errors.Is(err, state.ErrAccountExists) {
		return fmt.Errorf("%w: %v %x", conflict, kind, addr)
	}
	if err != nil {
		return err
	}
	env.receipt.Created = append(env.receipt.Created, addr)
	return nil
}

// emit appends an event to the receipt.
func (env *execEnv) emit(payload types.EventPayload) error {
	ev, err := types.NewEvent(payload)
	if err != nil {
		return err
	}
	env.receipt.Events = append(env.receipt.Events, ev)
	return nil
}

// loadAgent retrieves the agent with the given id.
func (env *execEnv) loadAgent(agentID string) (common.Address, *types.AgentAccount, error) {
	if err := validateAgentID(agentID); err != nil {
		return common.Address{}, nil, err
	}
	addr := types.AgentAddress(env.config.ProgramID, agentID)
	agent := new(types.AgentAccount)
	if !env.state.GetAccount(addr, types.KindAgent, agent) {
		return addr, nil, fmt.Errorf("%w: %q", ErrAgentNotFound, agentID)
	}
	return addr, agent, nil
}

// loadModule retrieves the module with the given id.
func (env *execEnv) loadModule(moduleID string) (common.Address, *types.ModuleMetadata, error) {
	if err := validateModuleID(moduleID); err != nil {
		return common.Address{}, nil, err
	}
	addr := types.ModuleAddress(env.config.ProgramID, moduleID)
	module := new(types.ModuleMetadata)
	if !env.state.GetAccount(addr, types.KindModule, module) {
		return addr, nil, fmt.Errorf("%w: %q", ErrModuleNotFound, moduleID)
	}
	return addr, module, nil
}

func validateAgentID(agentID string) error {
	switch {
	case len(agentID) == 0:
		return ErrEmptyAgentID
	case len(agentID) > params.MaxAgentIDLength:
		return ErrAgentIDTooLong
	}
	return nil
}

func validateModuleID(moduleID string) error {
	switch {
	case len(moduleID) == 0:
		return ErrEmptyModuleID
	case len(moduleID) > params.MaxModuleIDLength:
		return ErrModuleIDTooLong
	}
	return nil
}

func validateBps(bps uint64, err error) error {
	if bps > params.BasisPointsDenominator {
		return err
	}
	return nil
}
