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

// ReadAccountRLP retrieves the raw account blob of the given address.
func ReadAccountRLP(db ledgerdb.KeyValueReader, addr common.Address) []byte {
	data, _ := db.Get(accountKey(addr))
	return data
}

// ReadAccount retrieves the account stored at the given address, or nil if
// no account exists.
func ReadAccount(db ledgerdb.KeyValueReader, addr common.Address) *types.Account {
	data := ReadAccountRLP(db, addr)
	if len(data) == 0 {
		return nil
	}
	account := new(types.Account)
	if err := rlp.DecodeBytes(data, account); err != nil {
		log.Error("Invalid account RLP", "address", addr, "err", err)
		return nil
	}
	return account
}

// HasAccount checks whether an account exists at the given address.
func HasAccount(db ledgerdb.KeyValueReader, addr common.Address) bool {
	if has, err := db.Has(accountKey(addr)); !has || err != nil {
		return false
	}
	return true
}

// WriteAccountRLP stores a raw account blob at the given address.
func WriteAccountRLP(db ledgerdb.KeyValueWriter, addr common.Address, blob []byte) {
	if err := db.Put(accountKey(addr), blob); err != nil {
		log.Crit("Failed to store account", "address", addr, "err", err)
	}
}

// WriteAccount encodes and stores an account at the given address.
func WriteAccount(db ledgerdb.KeyValueWriter, addr common.Address, account *types.Account) {
	blob, err := rlp.EncodeToBytes(account)
	if err != nil {
		log.Crit("Failed to encode account", "address", addr, "err", err)
	}
	WriteAccountRLP(db, addr, blob)
}

// IterateAccounts calls fn for every stored account in address order until fn
// returns false.
func IterateAccounts(db ledgerdb.Iteratee, fn func(addr common.Address, blob []byte) bool) error {
	it := db.NewIterator(accountPrefix, nil)
	defer it.Release()

	for it.Next() {
		key := it.Key()
		if len(key) != len(accountPrefix)+common.AddressLength {
			continue
		}
		if !fn(common.BytesToAddress(key[len(accountPrefix):]), common.CopyBytes(it.Value())) {
			break
		}
	}
	return it.Error()
}
