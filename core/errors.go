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

package core

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ledger errors by how a caller can recover from them.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindValidation marks input that violates a static constraint.
	KindValidation
	// KindAuthorization marks a signer that does not own the target entity.
	KindAuthorization
	// KindConflict marks a uniqueness violation on a derived address.
	KindConflict
	// KindNotFound marks a missing or inactive referent.
	KindNotFound
	// KindFunds marks an insufficient balance.
	KindFunds
)

var kindNames = map[ErrorKind]string{
	KindUnknown:       "Unknown",
	KindValidation:    "ValidationError",
	KindAuthorization: "AuthorizationError",
	KindConflict:      "ConflictError",
	KindNotFound:      "NotFoundError",
	KindFunds:         "FundsError",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", uint8(k))
}

// LedgerError is a typed error returned by ledger operations. Every instance
// is a package level sentinel with a stable code.
type LedgerError struct {
	Kind ErrorKind
	Code uint32
	Name string
	Msg  string
}

func (e *LedgerError) Error() string { return e.Msg }

// errorsByCode indexes every sentinel by its code.
var errorsByCode = make(map[uint32]*LedgerError)

func newError(kind ErrorKind, code uint32, name, msg string) *LedgerError {
	if _, dup := errorsByCode[code]; dup {
		panic(fmt.Sprintf("duplicate ledger error code %d", code))
	}
	err := &LedgerError{Kind: kind, Code: code, Name: name, Msg: msg}
	errorsByCode[code] = err
	return err
}

// List of validation errors.
var (
	ErrAgentIDTooLong     = newError(KindValidation, 6000, "AgentIdTooLong", "agent id exceeds 64 bytes")
	ErrInputTooLong       = newError(KindValidation, 6001, "InputTooLong", "input data exceeds 256 bytes")
	ErrLogicTooLong       = newError(KindValidation, 6002, "LogicTooLong", "logic data exceeds 256 bytes")
	ErrOutcomeTooLong     = newError(KindValidation, 6003, "OutcomeTooLong", "outcome data exceeds 256 bytes")
	ErrModuleIDTooLong    = newError(KindValidation, 6004, "ModuleIdTooLong", "module id exceeds 64 bytes")
	ErrIpfsHashTooLong    = newError(KindValidation, 6005, "IpfsHashTooLong", "ipfs hash exceeds 128 bytes")
	ErrInvalidRoyalty     = newError(KindValidation, 6006, "InvalidRoyalty", "royalty exceeds 10000 basis points")
	ErrPriceTooLow        = newError(KindValidation, 6007, "PriceTooLow", "module price below minimum")
	ErrInvalidIpfsHash    = newError(KindValidation, 6008, "InvalidIpfsHash", "invalid ipfs content identifier")
	ErrBadBasisPoints     = newError(KindValidation, 6009, "BadBasisPoints", "fee rate exceeds 10000 basis points")
	ErrInvalidCategory    = newError(KindValidation, 6010, "InvalidCategory", "unknown module category")
	ErrInvalidPayee       = newError(KindValidation, 6011, "InvalidPayee", "payee cannot receive lamports")
	ErrEmptyAgentID       = newError(KindValidation, 6012, "EmptyAgentId", "agent id is empty")
	ErrEmptyModuleID      = newError(KindValidation, 6013, "EmptyModuleId", "module id is empty")
	ErrInvalidSignature   = newError(KindValidation, 6014, "InvalidSignature", "invalid transaction signature")
	ErrUnknownInstruction = newError(KindValidation, 6015, "UnknownInstruction", "unknown or malformed instruction")
	ErrNonceTooLow        = newError(KindValidation, 6016, "NonceTooLow", "nonce too low")
	ErrNonceTooHigh       = newError(KindValidation, 6017, "NonceTooHigh", "nonce too high")
	ErrReputationOverflow = newError(KindValidation, 6018, "ReputationOverflow", "reputation overflow")
	ErrRevenueOverflow    = newError(KindValidation, 6019, "RevenueOverflow", "module revenue overflow")
	ErrInvalidCredential  = newError(KindValidation, 6020, "InvalidCredential", "invalid identity credential")
	ErrInvalidProvider    = newError(KindValidation, 6021, "InvalidProvider", "invalid identity provider")
	ErrInvalidExpiry      = newError(KindValidation, 6022, "InvalidExpiry", "identity expiry is in the past")
)

// List of authorization errors.
var (
	ErrUnauthorized = newError(KindAuthorization, 6100, "Unauthorized", "signer is not the authority")
)

// List of conflict errors.
var (
	ErrAccountAlreadyExists = newError(KindConflict, 6200, "AccountAlreadyExists", "account already in use")
	ErrAlreadyAttested      = newError(KindConflict, 6201, "AlreadyAttested", "memory log already attested")
	ErrAlreadyPurchased     = newError(KindConflict, 6202, "AlreadyPurchased", "module already purchased")
	ErrAlreadyInitialized   = newError(KindConflict, 6203, "AlreadyInitialized", "platform already initialized")
)

// List of not found errors.
var (
	ErrLogNotFound            = newError(KindNotFound, 6300, "LogNotFound", "memory log not found")
	ErrAgentNotFound          = newError(KindNotFound, 6301, "AgentNotFound", "agent not found")
	ErrModuleNotFound         = newError(KindNotFound, 6302, "ModuleNotFound", "module not found")
	ErrModuleInactive         = newError(KindNotFound, 6303, "ModuleInactive", "module is inactive")
	ErrPlatformNotInitialized = newError(KindNotFound, 6304, "PlatformNotInitialized", "platform not initialized")
	ErrAccountNotFound        = newError(KindNotFound, 6305, "AccountNotFound", "account not found")
	ErrAttestationNotFound    = newError(KindNotFound, 6306, "AttestationNotFound", "attestation not found")
	ErrPurchaseNotFound       = newError(KindNotFound, 6307, "PurchaseNotFound", "purchase not found")
	ErrReceiptNotFound        = newError(KindNotFound, 6308, "ReceiptNotFound", "receipt not found")
	ErrIdentityNotFound       = newError(KindNotFound, 6309, "IdentityNotFound", "identity not found")
	ErrIdentityInactive       = newError(KindNotFound, 6310, "IdentityInactive", "identity is not active")
)

// List of funds errors.
var (
	ErrInsufficientFunds = newError(KindFunds, 6400, "InsufficientFunds", "insufficient funds")
)

// KindOf returns the kind of a ledger error anywhere in err's chain.
func KindOf(err error) ErrorKind {
	var lerr *LedgerError
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err signals a missing entity.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// ErrorByCode returns the sentinel with the given code, or nil.
func ErrorByCode(code uint32) *LedgerError {
	return errorsByCode[code]
}

// AsLedgerError extracts the first ledger error in err's chain.
func AsLedgerError(err error) (*LedgerError, bool) {
	var lerr *LedgerError
	ok := errors.As(err, &lerr)
	return lerr, ok
}
