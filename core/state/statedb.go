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

// Package state provides a journaled cache over the ledger account store.
package state

import (
	"errors"
	"fmt"
	"sort"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/ledgerdb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrAccountExists is returned when creating an account at an occupied address.
var ErrAccountExists = errors.New("account already in use")

type revision struct {
	id           int
	journalIndex int
}

// StateDB caches the accounts touched by a transaction and journals every
// modification, so that any prefix of the changes can be reverted.
//
// A StateDB is not safe for concurrent use. The ledger creates one per
// transaction and discards it after commit.
type StateDB struct {
	db Database

	// This map holds 'live' objects, which will get modified while processing a transaction.
	stateObjects map[common.Address]*stateObject

	// DB error.
	// State objects are used by the ledger which is unable to deal with database-level errors.
	// Any error that occurs during a database read is memoized here and will eventually be returned
	// by StateDB.Commit.
	dbErr error

	// Journal of state modifications. This is the backbone of
	// Snapshot and RevertToSnapshot.
	journal        *journal
	validRevisions []revision
	nextRevisionId int
}

// New creates a new state view on top of the committed accounts.
func New(db Database) *StateDB {
	return &StateDB{
		db:           db,
		stateObjects: make(map[common.Address]*stateObject),
		journal:      newJournal(),
	}
}

// setError remembers the first non-nil error it is called with.
func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Error returns the first database error encountered.
func (s *StateDB) Error() error {
	return s.dbErr
}

// Exist reports whether the given account address exists in the state.
func (s *StateDB) Exist(addr common.Address) bool {
	return s.getStateObject(addr) != nil
}

// GetKind returns the kind of the account at addr, KindSystem if absent.
func (s *StateDB) GetKind(addr common.Address) types.AccountKind {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.Kind()
	}
	return types.KindSystem
}

// GetBalance retrieves the balance from the given address or 0 if object not found
func (s *StateDB) GetBalance(addr common.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.Balance()
	}
	return 0
}

// GetNonce retrieves the nonce from the given address or 0 if object not found
func (s *StateDB) GetNonce(addr common.Address) uint64 {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.Nonce()
	}
	return 0
}

// GetData retrieves the record encoding of a program account.
func (s *StateDB) GetData(addr common.Address) []byte {
	if obj := s.getStateObject(addr); obj != nil {
		return obj.Data()
	}
	return nil
}

// GetAccount decodes the record of a program account of the given kind into
// val. It reports false if no such account exists.
func (s *StateDB) GetAccount(addr common.Address, kind types.AccountKind, val interface{}) bool {
	obj := s.getStateObject(addr)
	if obj == nil || obj.Kind() != kind {
		return false
	}
	if err := rlp.DecodeBytes(obj.Data(), val); err != nil {
		s.setError(fmt.Errorf("decode %v account %x: %w", kind, addr, err))
		return false
	}
	return true
}

// AddBalance adds amount to the account associated with addr. Lamports are
// conserved, so the sum never exceeds the genesis supply.
func (s *StateDB) AddBalance(addr common.Address, amount uint64) {
	if obj := s.getOrNewStateObject(addr); obj != nil {
		obj.AddBalance(amount)
	}
}

// SubBalance subtracts amount from the account associated with addr. The
// caller must ensure the balance is sufficient.
func (s *StateDB) SubBalance(addr common.Address, amount uint64) {
	if obj := s.getOrNewStateObject(addr); obj != nil {
		obj.SubBalance(amount)
	}
}

func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	if obj := s.getOrNewStateObject(addr); obj != nil {
		obj.SetNonce(nonce)
	}
}

// SetData replaces the record of an existing program account.
func (s *StateDB) SetData(addr common.Address, data []byte) {
	if obj := s.getStateObject(addr); obj != nil {
		obj.SetData(data)
	}
}

// UpdateAccount encodes val and stores it as the record of the program account.
func (s *StateDB) UpdateAccount(addr common.Address, val interface{}) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	if !s.Exist(addr) {
		return fmt.Errorf("update of missing account %x", addr)
	}
	s.SetData(addr, data)
	return nil
}

// CreateAccount creates a program account of the given kind at addr holding
// the encoding of val. It fails with ErrAccountExists if the address is in
// use. A system account that only holds lamports is taken over instead, so
// funding a derived address ahead of time cannot block its creation.
func (s *StateDB) CreateAccount(addr common.Address, kind types.AccountKind, val interface{}) error {
	data, err := rlp.EncodeToBytes(val)
	if err != nil {
		return err
	}
	if prev := s.getStateObject(addr); prev != nil {
		if prev.Kind().IsProgram() || prev.Nonce() != 0 || len(prev.Data()) != 0 {
			return ErrAccountExists
		}
		s.journal.append(assignChange{
			account:  &prev.address,
			prevKind: prev.data.Kind,
			prevData: prev.data.Data,
		})
		prev.data.Kind = kind
		prev.data.Data = data
		return nil
	}
	obj := newObject(s, addr, types.Account{Kind: kind, Data: data})
	s.journal.append(createObjectChange{account: &obj.address})
	s.setStateObject(obj)
	return nil
}

// getStateObject retrieves a state object given by the address, returning nil if
// the object is not found.
func (s *StateDB) getStateObject(addr common.Address) *stateObject {
	// Prefer live objects if any is available
	if obj := s.stateObjects[addr]; obj != nil {
		return obj
	}
	enc := s.db.AccountRLP(addr)
	if len(enc) == 0 {
		return nil
	}
	var data types.Account
	if err := rlp.DecodeBytes(enc, &data); err != nil {
		log.Error("Failed to decode state object", "addr", addr, "err", err)
		s.setError(fmt.Errorf("decode account %x: %w", addr, err))
		return nil
	}
	obj := newObject(s, addr, data)
	s.setStateObject(obj)
	return obj
}

func (s *StateDB) setStateObject(object *stateObject) {
	s.stateObjects[object.Address()] = object
}

// getOrNewStateObject retrieves a state object or create a new system account if nil.
func (s *StateDB) getOrNewStateObject(addr common.Address) *stateObject {
	obj := s.getStateObject(addr)
	if obj == nil {
		obj = newObject(s, addr, types.Account{Kind: types.KindSystem})
		s.journal.append(createObjectChange{account: &obj.address})
		s.setStateObject(obj)
	}
	return obj
}

// Snapshot returns an identifier for the current revision of the state.
func (s *StateDB) Snapshot() int {
	id := s.nextRevisionId
	s.nextRevisionId++
	s.validRevisions = append(s.validRevisions, revision{id, s.journal.length()})
	return id
}

// RevertToSnapshot reverts all state changes made since the given revision.
func (s *StateDB) RevertToSnapshot(revid int) {
	// Find the snapshot in the stack of valid snapshots.
	idx := sort.Search(len(s.validRevisions), func(i int) bool {
		return s.validRevisions[i].id >= revid
	})
	if idx == len(s.validRevisions) || s.validRevisions[idx].id != revid {
		panic(fmt.Errorf("revision id %v cannot be reverted", revid))
	}
	snapshot := s.validRevisions[idx].journalIndex

	// Replay the journal to undo changes and remove invalidated snapshots
	s.journal.revert(s, snapshot)
	s.validRevisions = s.validRevisions[:idx]
}

// Dirty returns the addresses modified since the state was created, sorted.
func (s *StateDB) Dirty() []common.Address {
	addrs := make([]common.Address, 0, len(s.journal.dirties))
	for addr := range s.journal.dirties {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		return string(addrs[i][:]) < string(addrs[j][:])
	})
	return addrs
}

// Commit writes all modified accounts into the batch and flushes it to disk
// together with whatever the caller already queued in it.
func (s *StateDB) Commit(batch ledgerdb.Batch) error {
	if s.dbErr != nil {
		return fmt.Errorf("commit aborted due to earlier error: %v", s.dbErr)
	}
	accounts := make(map[common.Address][]byte, len(s.journal.dirties))
	for addr := range s.journal.dirties {
		obj, exist := s.stateObjects[addr]
		if !exist {
			continue
		}
		blob, err := obj.encode()
		if err != nil {
			return err
		}
		accounts[addr] = blob
	}
	if err := s.db.Commit(batch, accounts); err != nil {
		return err
	}
	s.journal = newJournal()
	s.validRevisions = s.validRevisions[:0]
	return nil
}
