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
	"math"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/crypto"
)

// attestOutcome records the outcome of a memory log and applies the score
// delta to the agent's reputation.
func (env *execEnv) attestOutcome(ins *types.AttestOutcome) error {
	if len(ins.OutcomeData) > params.MaxOutcomeLength {
		return ErrOutcomeTooLong
	}
	agentAddr, agent, err := env.loadAgent(ins.AgentID)
	if err != nil {
		return err
	}
	if agent.Authority != env.signer {
		return fmt.Errorf("%w: agent %q", ErrUnauthorized, ins.AgentID)
	}
	memoryLog := new(types.MemoryLog)
	if !env.state.GetAccount(ins.MemoryLog, types.KindMemoryLog, memoryLog) {
		return fmt.Errorf("%w: %v", ErrLogNotFound, ins.MemoryLog)
	}
	if memoryLog.Agent != agentAddr {
		return fmt.Errorf("%w: %v does not belong to agent %q", ErrLogNotFound, ins.MemoryLog, ins.AgentID)
	}
	reputation, err := applyScoreDelta(agent.Reputation, ins.ScoreDelta, env.config.ReputationCeiling)
	if err != nil {
		return err
	}
	attestAddr := types.AttestationAddress(env.config.ProgramID, ins.MemoryLog)
	attestation := &types.Attestation{
		MemoryLog:   ins.MemoryLog,
		Agent:       agentAddr,
		OutcomeHash: crypto.Keccak256Hash([]byte(ins.OutcomeData)),
		Success:     ins.Success,
		ScoreDelta:  ins.ScoreDelta,
		Timestamp:   env.timestamp,
	}
	if err := env.create(attestAddr, types.KindAttestation, attestation, ErrAlreadyAttested); err != nil {
		return err
	}
	memoryLog.IsAttested = true
	if err := env.state.UpdateAccount(ins.MemoryLog, memoryLog); err != nil {
		return err
	}
	agent.Reputation = reputation
	agent.TotalAttestations++
	if err := env.state.UpdateAccount(agentAddr, agent); err != nil {
		return err
	}
	return env.emit(&types.OutcomeAttested{
		Agent:       agentAddr,
		AgentID:     ins.AgentID,
		MemoryLog:   ins.MemoryLog,
		Attestation: attestAddr,
		OutcomeHash: attestation.OutcomeHash,
		Success:     ins.Success,
		ScoreDelta:  ins.ScoreDelta,
		Reputation:  reputation,
		Timestamp:   env.timestamp,
	})
}

// applyScoreDelta returns reputation+delta floored at zero and, for a non-zero
// ceiling, capped at the ceiling.
func applyScoreDelta(reputation uint64, delta types.ScoreDelta, ceiling uint64) (uint64, error) {
	negative, magnitude := delta.Split()
	switch {
	case negative && magnitude >= reputation:
		reputation = 0
	case negative:
		reputation -= magnitude
	case magnitude > math.MaxUint64-reputation:
		return 0, ErrReputationOverflow
	default:
		reputation += magnitude
	}
	if ceiling > 0 && reputation > ceiling {
		reputation = ceiling
	}
	return reputation, nil
}
