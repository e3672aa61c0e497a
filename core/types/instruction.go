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
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrUnknownInstruction is returned for transactions carrying an instruction
// kind the ledger does not implement.
var ErrUnknownInstruction = errors.New("unknown instruction")

// InstructionKind identifies the operation a transaction invokes.
type InstructionKind uint8

const (
	InitializePlatformKind InstructionKind = iota + 1
	InitializeAgentKind
	LogDecisionKind
	AttestOutcomeKind
	RegisterModuleKind
	PurchaseModuleKind
	UpdateModulePricingKind
	TransferKind
	RegisterIdentityKind
	RevokeIdentityKind
	RenewIdentityKind
)

var instructionNames = map[InstructionKind]string{
	InitializePlatformKind:  "initialize_platform",
	InitializeAgentKind:     "initialize_agent",
	LogDecisionKind:         "log_decision",
	AttestOutcomeKind:       "attest_outcome",
	RegisterModuleKind:      "register_module",
	PurchaseModuleKind:      "purchase_module",
	UpdateModulePricingKind: "update_module_pricing",
	TransferKind:            "transfer",
	RegisterIdentityKind:    "register_identity",
	RevokeIdentityKind:      "revoke_identity",
	RenewIdentityKind:       "renew_identity",
}

func (k InstructionKind) String() string {
	if name, ok := instructionNames[k]; ok {
		return name
	}
	return fmt.Sprintf("instruction(%d)", uint8(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k InstructionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *InstructionKind) UnmarshalText(input []byte) error {
	for kind, name := range instructionNames {
		if name == string(input) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownInstruction, input)
}

// Instruction is the argument set of a ledger operation.
type Instruction interface {
	Kind() InstructionKind
}

// InitializePlatform creates the platform configuration.
type InitializePlatform struct {
	Treasury       common.Address
	PlatformFeeBps uint64
	ReferralFeeBps uint64
}

// InitializeAgent creates an agent account owned by the signer.
type InitializeAgent struct {
	AgentID string
}

// LogDecision commits an agent decision to a new memory log.
type LogDecision struct {
	AgentID   string
	InputData string
	LogicData string
}

// AttestOutcome records the outcome of a memory log.
type AttestOutcome struct {
	AgentID     string
	MemoryLog   common.Address
	OutcomeData string
	Success     bool
	ScoreDelta  ScoreDelta
}

// RegisterModule lists a new module on the marketplace.
type RegisterModule struct {
	ModuleID      string
	Category      ModuleCategory
	PriceLamports uint64
	RoyaltyBps    uint64
	IpfsHash      string
}

// PurchaseModule buys a module for an agent of the signer.
type PurchaseModule struct {
	ModuleID     string
	BuyerAgentID string
	Referrer     *common.Address `rlp:"nil"`
}

// UpdateModulePricing changes the price and royalty of a module.
type UpdateModulePricing struct {
	ModuleID      string
	PriceLamports uint64
	RoyaltyBps    uint64
}

// Transfer moves lamports from the signer to another identity.
type Transfer struct {
	To     common.Address
	Amount uint64
}

// RegisterIdentity verifies an agent of the signer with an identity provider.
type RegisterIdentity struct {
	AgentID    string
	Provider   IdentityProvider
	Credential common.Hash
	ExpiresAt  uint64
}

// RevokeIdentity deactivates the verified identity of an agent.
type RevokeIdentity struct {
	AgentID string
}

// RenewIdentity replaces the credential and expiry of an agent identity and
// reactivates it.
type RenewIdentity struct {
	AgentID    string
	Credential common.Hash
	ExpiresAt  uint64
}

func (*InitializePlatform) Kind() InstructionKind  { return InitializePlatformKind }
func (*InitializeAgent) Kind() InstructionKind     { return InitializeAgentKind }
func (*LogDecision) Kind() InstructionKind         { return LogDecisionKind }
func (*AttestOutcome) Kind() InstructionKind       { return AttestOutcomeKind }
func (*RegisterModule) Kind() InstructionKind      { return RegisterModuleKind }
func (*PurchaseModule) Kind() InstructionKind      { return PurchaseModuleKind }
func (*UpdateModulePricing) Kind() InstructionKind { return UpdateModulePricingKind }
func (*Transfer) Kind() InstructionKind            { return TransferKind }
func (*RegisterIdentity) Kind() InstructionKind    { return RegisterIdentityKind }
func (*RevokeIdentity) Kind() InstructionKind      { return RevokeIdentityKind }
func (*RenewIdentity) Kind() InstructionKind       { return RenewIdentityKind }

// newInstruction allocates an empty instruction of the given kind.
func newInstruction(kind InstructionKind) (Instruction, error) {
	switch kind {
	case InitializePlatformKind:
		return new(InitializePlatform), nil
	case InitializeAgentKind:
		return new(InitializeAgent), nil
	case LogDecisionKind:
		return new(LogDecision), nil
	case AttestOutcomeKind:
		return new(AttestOutcome), nil
	case RegisterModuleKind:
		return new(RegisterModule), nil
	case PurchaseModuleKind:
		return new(PurchaseModule), nil
	case UpdateModulePricingKind:
		return new(UpdateModulePricing), nil
	case TransferKind:
		return new(Transfer), nil
	case RegisterIdentityKind:
		return new(RegisterIdentity), nil
	case RevokeIdentityKind:
		return new(RevokeIdentity), nil
	case RenewIdentityKind:
		return new(RenewIdentity), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownInstruction, uint8(kind))
	}
}

// DecodeInstruction decodes the rlp payload of an instruction of the given kind.
func DecodeInstruction(kind InstructionKind, payload []byte) (Instruction, error) {
	ins, err := newInstruction(kind)
	if err != nil {
		return nil, err
	}
	if err := rlp.DecodeBytes(payload, ins); err != nil {
		return nil, fmt.Errorf("decode %v payload: %w", kind, err)
	}
	return ins, nil
}
