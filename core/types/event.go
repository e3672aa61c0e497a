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
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

var errUnknownEvent = errors.New("unknown event kind")

// EventKind identifies the payload type of an event.
type EventKind uint8

const (
	PlatformInitializedEvent EventKind = iota + 1
	AgentInitializedEvent
	DecisionLoggedEvent
	OutcomeAttestedEvent
	ModuleRegisteredEvent
	ModulePurchasedEvent
	ModulePricingUpdatedEvent
	TransferredEvent
	IdentityRegisteredEvent
	IdentityRevokedEvent
	IdentityRenewedEvent
)

var eventNames = map[EventKind]string{
	PlatformInitializedEvent:  "PlatformInitialized",
	AgentInitializedEvent:     "AgentInitialized",
	DecisionLoggedEvent:       "DecisionLogged",
	OutcomeAttestedEvent:      "OutcomeAttested",
	ModuleRegisteredEvent:     "ModuleRegistered",
	ModulePurchasedEvent:      "ModulePurchased",
	ModulePricingUpdatedEvent: "ModulePricingUpdated",
	TransferredEvent:          "Transferred",
	IdentityRegisteredEvent:   "IdentityRegistered",
	IdentityRevokedEvent:      "IdentityRevoked",
	IdentityRenewedEvent:      "IdentityRenewed",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(input []byte) error {
	kind, err := ParseEventKind(string(input))
	if err != nil {
		return err
	}
	*k = kind
	return nil
}

// ParseEventKind converts an event name into its kind.
func ParseEventKind(name string) (EventKind, error) {
	for kind, n := range eventNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errUnknownEvent, name)
}

// EventPayload is implemented by all typed event bodies.
type EventPayload interface {
	EventKind() EventKind
}

type PlatformInitialized struct {
	Config         common.Address `json:"config"`
	Authority      common.Address `json:"authority"`
	Treasury       common.Address `json:"treasury"`
	PlatformFeeBps uint64         `json:"platformFeeBps"`
	ReferralFeeBps uint64         `json:"referralFeeBps"`
}

type AgentInitialized struct {
	Agent     common.Address `json:"agent"`
	AgentID   string         `json:"agentId"`
	Authority common.Address `json:"authority"`
}

type DecisionLogged struct {
	Agent      common.Address `json:"agent"`
	AgentID    string         `json:"agentId"`
	MemoryLog  common.Address `json:"memoryLog"`
	InputHash  common.Hash    `json:"inputHash"`
	LogicHash  common.Hash    `json:"logicHash"`
	MerkleRoot common.Hash    `json:"merkleRoot"`
	Sequence   uint64         `json:"sequence"`
	Timestamp  uint64         `json:"timestamp"`
}

type OutcomeAttested struct {
	Agent       common.Address `json:"agent"`
	AgentID     string         `json:"agentId"`
	MemoryLog   common.Address `json:"memoryLog"`
	Attestation common.Address `json:"attestation"`
	OutcomeHash common.Hash    `json:"outcomeHash"`
	Success     bool           `json:"success"`
	ScoreDelta  ScoreDelta     `json:"scoreDelta"`
	Reputation  uint64         `json:"reputation"`
	Timestamp   uint64         `json:"timestamp"`
}

type ModuleRegistered struct {
	Module        common.Address `json:"module"`
	ModuleID      string         `json:"moduleId"`
	Creator       common.Address `json:"creator"`
	Category      ModuleCategory `json:"category"`
	PriceLamports uint64         `json:"priceLamports"`
	RoyaltyBps    uint64         `json:"royaltyBps"`
	IpfsHash      string         `json:"ipfsHash"`
}

type ModulePurchased struct {
	Module        common.Address  `json:"module"`
	ModuleID      string          `json:"moduleId"`
	Agent         common.Address  `json:"agent"`
	Buyer         common.Address  `json:"buyer"`
	Purchase      common.Address  `json:"purchase"`
	Creator       common.Address  `json:"creator"`
	Treasury      common.Address  `json:"treasury"`
	Referrer      *common.Address `json:"referrer" rlp:"nil"`
	Price         uint64          `json:"price"`
	PlatformFee   uint64          `json:"platformFee"`
	ReferralFee   uint64          `json:"referralFee"`
	CreatorAmount uint64          `json:"creatorAmount"`
}

type ModulePricingUpdated struct {
	Module        common.Address `json:"module"`
	ModuleID      string         `json:"moduleId"`
	PriceLamports uint64         `json:"priceLamports"`
	RoyaltyBps    uint64         `json:"royaltyBps"`
}

type Transferred struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

type IdentityRegistered struct {
	Identity   common.Address   `json:"identity"`
	Agent      common.Address   `json:"agent"`
	AgentID    string           `json:"agentId"`
	Provider   IdentityProvider `json:"provider"`
	Credential common.Hash      `json:"credential"`
	ExpiresAt  uint64           `json:"expiresAt"`
}

type IdentityRevoked struct {
	Identity common.Address `json:"identity"`
	Agent    common.Address `json:"agent"`
	AgentID  string         `json:"agentId"`
}

type IdentityRenewed struct {
	Identity   common.Address `json:"identity"`
	Agent      common.Address `json:"agent"`
	AgentID    string         `json:"agentId"`
	Credential common.Hash    `json:"credential"`
	ExpiresAt  uint64         `json:"expiresAt"`
}

func (*PlatformInitialized) EventKind() EventKind  { return PlatformInitializedEvent }
func (*AgentInitialized) EventKind() EventKind     { return AgentInitializedEvent }
func (*DecisionLogged) EventKind() EventKind       { return DecisionLoggedEvent }
func (*OutcomeAttested) EventKind() EventKind      { return OutcomeAttestedEvent }
func (*ModuleRegistered) EventKind() EventKind     { return ModuleRegisteredEvent }
func (*ModulePurchased) EventKind() EventKind      { return ModulePurchasedEvent }
func (*ModulePricingUpdated) EventKind() EventKind { return ModulePricingUpdatedEvent }
func (*Transferred) EventKind() EventKind          { return TransferredEvent }
func (*IdentityRegistered) EventKind() EventKind   { return IdentityRegisteredEvent }
func (*IdentityRevoked) EventKind() EventKind      { return IdentityRevokedEvent }
func (*IdentityRenewed) EventKind() EventKind      { return IdentityRenewedEvent }

func newEventPayload(kind EventKind) (EventPayload, error) {
	switch kind {
	case PlatformInitializedEvent:
		return new(PlatformInitialized), nil
	case AgentInitializedEvent:
		return new(AgentInitialized), nil
	case DecisionLoggedEvent:
		return new(DecisionLogged), nil
	case OutcomeAttestedEvent:
		return new(OutcomeAttested), nil
	case ModuleRegisteredEvent:
		return new(ModuleRegistered), nil
	case ModulePurchasedEvent:
		return new(ModulePurchased), nil
	case ModulePricingUpdatedEvent:
		return new(ModulePricingUpdated), nil
	case TransferredEvent:
		return new(Transferred), nil
	case IdentityRegisteredEvent:
		return new(IdentityRegistered), nil
	case IdentityRevokedEvent:
		return new(IdentityRevoked), nil
	case IdentityRenewedEvent:
		return new(IdentityRenewed), nil
	default:
		return nil, fmt.Errorf("%w: %d", errUnknownEvent, uint8(kind))
	}
}

// Event is a typed notification emitted by an instruction.
type Event struct {
	// Consensus fields:
	Kind EventKind
	Data []byte

	// Derived fields. These fields are filled in by the ledger
	// but not secured by the receipt encoding.
	Slot      uint64      `rlp:"-"`
	TxHash    common.Hash `rlp:"-"`
	Index     uint        `rlp:"-"`
	Timestamp uint64      `rlp:"-"`
}

// NewEvent encodes a typed payload into an event.
func NewEvent(payload EventPayload) (*Event, error) {
	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Kind: payload.EventKind(), Data: data}, nil
}

// Payload decodes the typed event body.
func (e *Event) Payload() (EventPayload, error) {
	payload, err := newEventPayload(e.Kind)
	if err != nil {
		return nil, err
	}
	if err := rlp.DecodeBytes(e.Data, payload); err != nil {
		return nil, fmt.Errorf("decode %v event: %w", e.Kind, err)
	}
	return payload, nil
}

type eventJSON struct {
	Kind      EventKind       `json:"kind"`
	Slot      uint64          `json:"slot"`
	TxHash    common.Hash     `json:"txHash"`
	Index     uint            `json:"index"`
	Timestamp uint64          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// MarshalJSON renders the event with its decoded payload.
func (e *Event) MarshalJSON() ([]byte, error) {
	payload, err := e.Payload()
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(&eventJSON{
		Kind:      e.Kind,
		Slot:      e.Slot,
		TxHash:    e.TxHash,
		Index:     e.Index,
		Timestamp: e.Timestamp,
		Data:      data,
	})
}

// UnmarshalJSON parses an event rendered by MarshalJSON.
func (e *Event) UnmarshalJSON(input []byte) error {
	var dec eventJSON
	if err := json.Unmarshal(input, &dec); err != nil {
		return err
	}
	payload, err := newEventPayload(dec.Kind)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(dec.Data, payload); err != nil {
		return err
	}
	data, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return err
	}
	*e = Event{
		Kind:      dec.Kind,
		Data:      data,
		Slot:      dec.Slot,
		TxHash:    dec.TxHash,
		Index:     dec.Index,
		Timestamp: dec.Timestamp,
	}
	return nil
}
