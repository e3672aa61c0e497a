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

package ledgerapi

import (
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// SendTxArgs is the body of a transaction submission.
type SendTxArgs struct {
	Raw hexutil.Bytes `json:"raw"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Code    uint32 `json:"code,omitempty"`
	Name    string `json:"name,omitempty"`
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// InfoResult describes the served ledger.
type InfoResult struct {
	ProgramID         common.Address `json:"programId"`
	Head              *types.Head    `json:"head"`
	MinModulePrice    uint64         `json:"minModulePrice"`
	ReputationCeiling uint64         `json:"reputationCeiling"`
	LogAddressScheme  string         `json:"logAddressScheme"`
	Resolution        string         `json:"timestampResolution"`
}

// AccountResult is the JSON form of a raw account.
type AccountResult struct {
	Address common.Address    `json:"address"`
	Kind    types.AccountKind `json:"kind"`
	Balance uint64            `json:"balance"`
	Nonce   uint64            `json:"nonce"`
	Data    hexutil.Bytes     `json:"data,omitempty"`
}

// PurchaseResult is the answer to a purchase lookup.
type PurchaseResult struct {
	Address  common.Address        `json:"address"`
	Purchase *types.ModulePurchase `json:"purchase"`
}

// IdentityResult is the answer to an identity lookup. Valid is evaluated
// at the current ledger time.
type IdentityResult struct {
	Address  common.Address          `json:"address"`
	Identity *types.VerifiedIdentity `json:"identity"`
	Valid    bool                    `json:"valid"`
}

// EventMessage is a single websocket notification.
type EventMessage struct {
	Subscription string       `json:"subscription"`
	Event        *types.Event `json:"event"`
}
