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
	"fmt"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// stateObject represents a ledger account which is being modified.
//
// The usage pattern is as follows:
// First you need to obtain a state object.
// Account values can be accessed and modified through the object.
// Finally, call Commit on the StateDB to write the modified objects to disk.
type stateObject struct {
	address common.Address
	data    types.Account
	db      *StateDB
}

// newObject creates a state object.
func newObject(db *StateDB, address common.Address, data types.Account) *stateObject {
	return &stateObject{
		db:      db,
		address: address,
		data:    data,
	}
}

// Address returns the address of the account.
func (s *stateObject) Address() common.Address {
	return s.address
}

// AddBalance adds amount to s's balance.
func (s *stateObject) AddBalance(amount uint64) {
	if amount == 0 {
		return
	}
	s.SetBalance(s.Balance() + amount)
}

// SubBalance removes amount from s's balance.
func (s *stateObject) SubBalance(amount uint64) {
	if amount == 0 {
		return
	}
	s.SetBalance(s.Balance() - amount)
}

func (s *stateObject) SetBalance(amount uint64) {
	s.db.journal.append(balanceChange{
		account: &s.address,
		prev:    s.data.Balance,
	})
	s.setBalance(amount)
}

func (s *stateObject) setBalance(amount uint64) {
	s.data.Balance = amount
}

func (s *stateObject) SetNonce(nonce uint64) {
	s.db.journal.append(nonceChange{
		account: &s.address,
		prev:    s.data.Nonce,
	})
	s.setNonce(nonce)
}

func (s *stateObject) setNonce(nonce uint64) {
	s.data.Nonce = nonce
}

func (s *stateObject) SetData(data []byte) {
	s.db.journal.append(dataChange{
		account: &s.address,
		prev:    s.data.Data,
	})
	s.setData(data)
}

func (s *stateObject) setData(data []byte) {
	s.data.Data = data
}

func (s *stateObject) Kind() types.AccountKind { return s.data.Kind }
func (s *stateObject) Balance() uint64         { return s.data.Balance }
func (s *stateObject) Nonce() uint64           { return s.data.Nonce }
func (s *stateObject) Data() []byte            { return s.data.Data }

// encode returns the consensus encoding of the account.
func (s *stateObject) encode() ([]byte, error) {
	blob, err := rlp.EncodeToBytes(&s.data)
	if err != nil {
		return nil, fmt.Errorf("encode account %x: %w", s.address, err)
	}
	return blob, nil
}
