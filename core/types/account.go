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
	"fmt"
)

// AccountKind identifies the record type held by an account.
type AccountKind uint8

const (
	KindSystem AccountKind = iota // identity account holding lamports
	KindPlatformConfig
	KindAgent
	KindMemoryLog
	KindAttestation
	KindModule
	KindPurchase
	KindIdentity
)

var accountKindNames = map[AccountKind]string{
	KindSystem:         "system",
	KindPlatformConfig: "platform_config",
	KindAgent:          "agent",
	KindMemoryLog:      "memory_log",
	KindAttestation:    "attestation",
	KindModule:         "module",
	KindPurchase:       "purchase",
	KindIdentity:       "identity",
}

func (k AccountKind) String() string {
	if name, ok := accountKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsProgram reports whether accounts of this kind are owned by the ledger
// program. Program accounts never receive lamports.
func (k AccountKind) IsProgram() bool {
	return k != KindSystem
}

// MarshalText implements encoding.TextMarshaler.
func (k AccountKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *AccountKind) UnmarshalText(input []byte) error {
	for kind, name := range accountKindNames {
		if name == string(input) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown account kind %q", input)
}

// Account is the consensus representation of an entry in the ledger state.
// Program accounts carry the rlp encoding of their record in Data.
type Account struct {
	Kind    AccountKind
	Balance uint64
	Nonce   uint64
	Data    []byte
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	cpy := *a
	if a.Data != nil {
		cpy.Data = append([]byte(nil), a.Data...)
	}
	return &cpy
}
