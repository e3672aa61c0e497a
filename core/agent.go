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

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// initializeAgent creates an agent account owned by the signer.
func (env *execEnv) initializeAgent(ins *types.InitializeAgent) error {
	if err := validateAgentID(ins.AgentID); err != nil {
		return err
	}
	addr := types.AgentAddress(env.config.ProgramID, ins.AgentID)
	agent := &types.AgentAccount{
		AgentID:   ins.AgentID,
		Authority: env.signer,
		CreatedAt: env.timestamp,
	}
	if err := env.create(addr, types.KindAgent, agent, ErrAccountAlreadyExists); err != nil {
		return err
	}
	return env.emit(&types.AgentInitialized{
		Agent:     addr,
		AgentID:   ins.AgentID,
		Authority: env.signer,
	})
}

// logDecision commits the digests of an agent decision to a new memory log.
func (env *execEnv) logDecision(ins *types.LogDecision) error {
	if len(ins.InputData) > params.MaxInputLength {
		return ErrInputTooLong
	}
	if len(ins.LogicData) > params.MaxLogicLength {
		return ErrLogicTooLong
	}
	agentAddr, agent, err := env.loadAgent(ins.AgentID)
	if err != nil {
		return err
	}
	if agent.Authority != env.signer {
		return fmt.Errorf("%w: agent %q", ErrUnauthorized, ins.AgentID)
	}
	inputHash := crypto.Keccak256Hash([]byte(ins.InputData))
	logicHash := crypto.Keccak256Hash([]byte(ins.LogicData))
	memoryLog := &types.MemoryLog{
		Agent:      agentAddr,
		InputHash:  inputHash,
		LogicHash:  logicHash,
		MerkleRoot: crypto.Keccak256Hash(inputHash[:], logicHash[:]),
		Timestamp:  env.timestamp,
		Sequence:   agent.TotalLogs,
	}
	logAddr := env.memoryLogAddress(agentAddr, memoryLog)
	if err := env.create(logAddr, types.KindMemoryLog, memoryLog, ErrAccountAlreadyExists); err != nil {
		return err
	}
	agent.TotalLogs++
	if err := env.state.UpdateAccount(agentAddr, agent); err != nil {
		return err
	}
	return env.emit(&types.DecisionLogged{
		Agent:      agentAddr,
		AgentID:    ins.AgentID,
		MemoryLog:  logAddr,
		InputHash:  memoryLog.InputHash,
		LogicHash:  memoryLog.LogicHash,
		MerkleRoot: memoryLog.MerkleRoot,
		Sequence:   memoryLog.Sequence,
		Timestamp:  memoryLog.Timestamp,
	})
}

// memoryLogAddress derives the address of a new memory log according to the
// configured scheme.
func (env *execEnv) memoryLogAddress(agent common.Address, log *types.MemoryLog) common.Address {
	if env.config.LogAddressScheme == params.LogAddressSequence {
		return types.MemoryLogSequenceAddress(env.config.ProgramID, agent, log.Sequence)
	}
	return types.MemoryLogAddress(env.config.ProgramID, agent, log.Timestamp)
}
