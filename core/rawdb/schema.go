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

// Package rawdb contains a collection of low level database accessors.
package rawdb

import (
	"encoding/binary"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// The fields below define the low level database schema prefixing.
var (
	// headKey tracks the latest committed slot.
	headKey = []byte("LedgerHead")

	// programKey stores the program id the database was initialized with.
	programKey = []byte("ProgramID")

	accountPrefix   = []byte("a") // accountPrefix + address -> rlp(types.Account)
	receiptPrefix   = []byte("r") // receiptPrefix + tx hash -> rlp(types.Receipt)
	slotTxPrefix    = []byte("s") // slotTxPrefix + num (uint64 big endian) -> tx hash
	kindIndexPrefix = []byte("i") // kindIndexPrefix + kind + num (uint64 big endian) + address -> nil
	agentLogPrefix  = []byte("l") // agentLogPrefix + agent address + sequence (uint64 big endian) -> log address
	purchasePrefix  = []byte("p") // purchasePrefix + agent address + module address -> purchase address
)

// encodeUint64 encodes a number as big endian uint64
func encodeUint64(number uint64) []byte {
	enc := make([]byte, 8)
	binary.BigEndian.PutUint64(enc, number)
	return enc
}

// accountKey = accountPrefix + address
func accountKey(addr common.Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr.Bytes()...)
}

// receiptKey = receiptPrefix + hash
func receiptKey(hash common.Hash) []byte {
	return append(append([]byte{}, receiptPrefix...), hash.Bytes()...)
}

// slotTxKey = slotTxPrefix + num (uint64 big endian)
func slotTxKey(slot uint64) []byte {
	return append(append([]byte{}, slotTxPrefix...), encodeUint64(slot)...)
}

// kindIndexKey = kindIndexPrefix + kind + num (uint64 big endian) + address
func kindIndexKey(kind types.AccountKind, slot uint64, addr common.Address) []byte {
	key := append(kindIndexPrefixFor(kind), encodeUint64(slot)...)
	return append(key, addr.Bytes()...)
}

func kindIndexPrefixFor(kind types.AccountKind) []byte {
	return append(append([]byte{}, kindIndexPrefix...), byte(kind))
}

// agentLogKey = agentLogPrefix + agent address + sequence (uint64 big endian)
func agentLogKey(agent common.Address, seq uint64) []byte {
	return append(agentLogPrefixFor(agent), encodeUint64(seq)...)
}

func agentLogPrefixFor(agent common.Address) []byte {
	return append(append([]byte{}, agentLogPrefix...), agent.Bytes()...)
}

// purchaseKey = purchasePrefix + agent address + module address
func purchaseKey(agent, module common.Address) []byte {
	return append(purchasePrefixFor(agent), module.Bytes()...)
}

func purchasePrefixFor(agent common.Address) []byte {
	return append(append([]byte{}, purchasePrefix...), agent.Bytes()...)
}
