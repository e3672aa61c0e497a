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
	"github.com/ethereum/go-ethereum/rlp"
)

// ReadHead retrieves the head of the ledger, or nil for an uninitialized database.
func ReadHead(db ledgerdb.KeyValueReader) *types.Head {
	data, _ := db.Get(headKey)
	if len(data) == 0 {
		return nil
	}
	head := new(types.Head)
	if err := rlp.DecodeBytes(data, head); err != nil {
		log.Error("Invalid ledger head RLP", "err", err)
		return nil
	}
	return head
}

// WriteHead stores the head of the ledger.
func WriteHead(db ledgerdb.KeyValueWriter, head *types.Head) {
	data, err := rlp.EncodeToBytes(head)
	if err != nil {
		log.Crit("Failed to RLP encode ledger head", "err", err)
	}
	if err := db.Put(headKey, data); err != nil {
		log.Crit("Failed to store ledger head", "err", err)
	}
}

// ReadProgramID retrieves the program id the database was created for.
func ReadProgramID(db ledgerdb.KeyValueReader) *common.Address {
	data, _ := db.Get(programKey)
	if len(data) != common.AddressLength {
		return nil
	}
	addr := common.BytesToAddress(data)
	return &addr
}

// WriteProgramID stores the program id of the database.
func WriteProgramID(db ledgerdb.KeyValueWriter, program common.Address) {
	if err := db.Put(programKey, program.Bytes()); err != nil {
		log.Crit("Failed to store program id", "err", err)
	}
}

// ReadReceipt retrieves the receipt of a committed transaction along with
// its derived fields.
func ReadReceipt(db ledgerdb.KeyValueReader, hash common.Hash) *types.Receipt {
	data, _ := db.Get(receiptKey(hash))
	if len(data) == 0 {
		return nil
	}
	receipt := new(types.Receipt)
	if err := rlp.DecodeBytes(data, receipt); err != nil {
		log.Error("Invalid receipt RLP", "hash", hash, "err", err)
		return nil
	}
	receipt.DeriveFields()
	return receipt
}

// WriteReceipt stores the receipt of a committed transaction.
func WriteReceipt(db ledgerdb.KeyValueWriter, receipt *types.Receipt) {
	data, err := rlp.EncodeToBytes(receipt)
	if err != nil {
		log.Crit("Failed to RLP encode receipt", "err", err)
	}
	if err := db.Put(receiptKey(receipt.TxHash), data); err != nil {
		log.Crit("Failed to store receipt", "err", err)
	}
}

// ReadSlotTxHash retrieves the hash of the transaction committed in the slot.
func ReadSlotTxHash(db ledgerdb.KeyValueReader, slot uint64) common.Hash {
	data, _ := db.Get(slotTxKey(slot))
	if len(data) == 0 {
		return common.Hash{}
	}
	return common.BytesToHash(data)
}

// WriteSlotTxHash stores the hash of the transaction committed in the slot.
func WriteSlotTxHash(db ledgerdb.KeyValueWriter, slot uint64, hash common.Hash) {
	if err := db.Put(slotTxKey(slot), hash.Bytes()); err != nil {
		log.Crit("Failed to store slot transaction", "err", err)
	}
}
