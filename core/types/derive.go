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

package types

import (
	"encoding/binary"

	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

var (
	sequenceSeed = []byte("seq")

	// programAddressMarker keeps derived addresses apart from every other
	// keccak preimage, public keys in particular.
	programAddressMarker = []byte("ProgramDerivedAddress")
)

// CreateProgramAddress derives the address of an account owned by program from
// the given seeds. The seeds are rlp encoded as a list, so ("ab","c") and
// ("a","bc") never derive the same address.
func CreateProgramAddress(program common.Address, seeds ...[]byte) common.Address {
	data, _ := rlp.EncodeToBytes(seeds)
	return common.BytesToAddress(crypto.Keccak256(programAddressMarker, program.Bytes(), data)[12:])
}

// PlatformConfigAddress returns the address of the platform config singleton.
func PlatformConfigAddress(program common.Address) common.Address {
	return CreateProgramAddress(program, params.PlatformConfigSeed)
}

// AgentAddress returns the address of the agent account with the given id.
func AgentAddress(program common.Address, agentID string) common.Address {
	return CreateProgramAddress(program, params.AgentSeed, []byte(agentID))
}

// MemoryLogAddress returns the address of the memory log the agent created at
// the given timestamp. The timestamp is encoded little endian.
func MemoryLogAddress(program, agent common.Address, timestamp uint64) common.Address {
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], timestamp)
	return CreateProgramAddress(program, params.MemorySeed, agent.Bytes(), ts[:])
}

// MemoryLogSequenceAddress returns the address of the agent's memory log with
// the given sequence number.
func MemoryLogSequenceAddress(program, agent common.Address, sequence uint64) common.Address {
	var seq [8]byte
	binary.LittleEndian.PutUint64(seq[:], sequence)
	return CreateProgramAddress(program, params.MemorySeed, agent.Bytes(), sequenceSeed, seq[:])
}

// AttestationAddress returns the address of the attestation of a memory log.
// A log can therefore only ever be attested once.
func AttestationAddress(program, memoryLog common.Address) common.Address {
	return CreateProgramAddress(program, params.AttestationSeed, memoryLog.Bytes())
}

// ModuleAddress returns the address of the module with the given id.
func ModuleAddress(program common.Address, moduleID string) common.Address {
	return CreateProgramAddress(program, params.ModuleSeed, []byte(moduleID))
}

// PurchaseAddress returns the address of the purchase record binding an
// agent to a module.
func PurchaseAddress(program, agent, module common.Address) common.Address {
	return CreateProgramAddress(program, params.PurchaseSeed, agent.Bytes(), module.Bytes())
}

// IdentityAddress returns the address of the verified identity of an agent.
func IdentityAddress(program, agent common.Address) common.Address {
	return CreateProgramAddress(program, params.IdentitySeed, agent.Bytes())
}
