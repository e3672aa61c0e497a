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

package rawdb

import (
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/ledgerdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// WriteKindIndex records the creation of a program account of the given kind.
func WriteKindIndex(db ledgerdb.KeyValueWriter, kind types.AccountKind, slot uint64, addr common.Address) {
	if err := db.Put(kindIndexKey(kind, slot, addr), nil); err != nil {
		log.Crit("Failed to store account index", "kind", kind, "err", err)
	}
}

// ReadKindIndex returns the addresses of accounts of the given kind in
// creation order, skipping the first offset entries. A zero limit means no limit.
func ReadKindIndex(db ledgerdb.Iteratee, kind types.AccountKind, offset, limit int) []common.Address {
	prefix := kindIndexPrefixFor(kind)
	return collect(db, prefix, offset, limit, func(key []byte) common.Address {
		return common.BytesToAddress(key[len(prefix)+8:])
	})
}

// WriteAgentLog records the memory log an agent created with the given sequence.
func WriteAgentLog(db ledgerdb.KeyValueWriter, agent common.Address, seq uint64, memoryLog common.Address) {
	if err := db.Put(agentLogKey(agent, seq), memoryLog.Bytes()); err != nil {
		log.Crit("Failed to store agent log index", "agent", agent, "err", err)
	}
}

// ReadAgentLogs returns the memory logs of an agent in sequence order.
func ReadAgentLogs(db ledgerdb.Iteratee, agent common.Address, offset, limit int) []common.Address {
	return collectValues(db, agentLogPrefixFor(agent), offset, limit)
}

// WritePurchaseIndex records that an agent owns a module.
func WritePurchaseIndex(db ledgerdb.KeyValueWriter, agent, module, purchase common.Address) {
	if err := db.Put(purchaseKey(agent, module), purchase.Bytes()); err != nil {
		log.Crit("Failed to store purchase index", "agent", agent, "err", err)
	}
}

// ReadPurchases returns the purchase records of an agent, ordered by module address.
func ReadPurchases(db ledgerdb.Iteratee, agent common.Address) []common.Address {
	return collectValues(db, purchasePrefixFor(agent), 0, 0)
}

func collect(db ledgerdb.Iteratee, prefix []byte, offset, limit int, parse func(key []byte) common.Address) []common.Address {
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	var (
		addrs   []common.Address
		skipped int
	)
	for it.Next() {
		if skipped < offset {
			skipped++
			continue
		}
		addrs = append(addrs, parse(it.Key()))
		if limit > 0 && len(addrs) >= limit {
			break
		}
	}
	if err := it.Error(); err != nil {
		log.Error("Failed to iterate index", "err", err)
	}
	return addrs
}

func collectValues(db ledgerdb.Iteratee, prefix []byte, offset, limit int) []common.Address {
	it := db.NewIterator(prefix, nil)
	defer it.Release()

	var (
		addrs   []common.Address
		skipped int
	)
	for it.Next() {
		if skipped < offset {
			skipped++
			continue
		}
		addrs = append(addrs, common.BytesToAddress(it.Value()))
		if limit > 0 && len(addrs) >= limit {
			break
		}
	}
	if err := it.Error(); err != nil {
		log.Error("Failed to iterate index", "err", err)
	}
	return addrs
}
