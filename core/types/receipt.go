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
	"github.com/ethereum/go-ethereum/common"
)

// Receipt is the confirmation of a committed transaction.
type Receipt struct {
	TxHash    common.Hash      `json:"txHash"`
	Kind      InstructionKind  `json:"kind"`
	Signer    common.Address   `json:"signer"`
	Nonce     uint64           `json:"nonce"`
	Slot      uint64           `json:"slot"`
	Timestamp uint64           `json:"timestamp"`
	Created   []common.Address `json:"created"`
	Events    []*Event         `json:"events"`
}

// DeriveFields fills in the derived fields of the receipt's events.
func (r *Receipt) DeriveFields() {
	for i, ev := range r.Events {
		ev.Slot = r.Slot
		ev.TxHash = r.TxHash
		ev.Index = uint(i)
		ev.Timestamp = r.Timestamp
	}
}

// FindEvent returns the first event payload of the given kind, or nil.
func (r *Receipt) FindEvent(kind EventKind) EventPayload {
	for _, ev := range r.Events {
		if ev.Kind != kind {
			continue
		}
		payload, err := ev.Payload()
		if err != nil {
			return nil
		}
		return payload
	}
	return nil
}
