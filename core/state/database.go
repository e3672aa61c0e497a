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

package state

import (
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/agentmemory/go-agentmemory/core/rawdb"
	"github.com/agentmemory/go-agentmemory/ledgerdb"
	"github.com/ethereum/go-ethereum/common"
)

// defaultCacheSize is the size of the clean account cache in megabytes.
const defaultCacheSize = 16

// Database wraps access to the account store and caches clean accounts.
type Database interface {
	// AccountRLP retrieves the committed encoding of an account, or nil.
	AccountRLP(addr common.Address) []byte

	// Commit adds the accounts to the batch and flushes it atomically.
	Commit(batch ledgerdb.Batch, accounts map[common.Address][]byte) error

	// DiskDB returns the underlying key-value store.
	DiskDB() ledgerdb.KeyValueStore
}

// NewDatabase creates a backing store for state with the default cache size.
func NewDatabase(db ledgerdb.KeyValueStore) Database {
	return NewDatabaseWithCache(db, defaultCacheSize)
}

// NewDatabaseWithCache creates a backing store for state. The returned database
// is safe for concurrent use and retains clean accounts in a fastcache of the
// given size in megabytes.
func NewDatabaseWithCache(db ledgerdb.KeyValueStore, cache int) Database {
	if cache <= 0 {
		cache = defaultCacheSize
	}
	return &cachingDB{
		disk:  db,
		clean: fastcache.New(cache * 1024 * 1024),
	}
}

type cachingDB struct {
	disk  ledgerdb.KeyValueStore
	clean *fastcache.Cache

	// lock orders cache fills against commits, so a reader racing a commit
	// never installs a stale blob in the cache.
	lock sync.RWMutex
}

// AccountRLP retrieves the committed encoding of an account, or nil.
func (db *cachingDB) AccountRLP(addr common.Address) []byte {
	if blob, found := db.clean.HasGet(nil, addr.Bytes()); found && len(blob) > 0 {
		return blob
	}
	db.lock.RLock()
	defer db.lock.RUnlock()

	blob := rawdb.ReadAccountRLP(db.disk, addr)
	if len(blob) > 0 {
		db.clean.Set(addr.Bytes(), blob)
	}
	return blob
}

// Commit adds the accounts to the batch and flushes it atomically.
func (db *cachingDB) Commit(batch ledgerdb.Batch, accounts map[common.Address][]byte) error {
	for addr, blob := range accounts {
		rawdb.WriteAccountRLP(batch, addr, blob)
	}
	db.lock.Lock()
	defer db.lock.Unlock()

	if err := batch.Write(); err != nil {
		return err
	}
	for addr, blob := range accounts {
		db.clean.Set(addr.Bytes(), blob)
	}
	return nil
}

// DiskDB returns the underlying key-value store.
func (db *cachingDB) DiskDB() ledgerdb.KeyValueStore {
	return db.disk
}
