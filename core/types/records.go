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

// PlatformConfig is the singleton marketplace configuration.
type PlatformConfig struct {
	Authority      common.Address `json:"authority"`
	Treasury       common.Address `json:"treasury"`
	PlatformFeeBps uint64         `json:"platformFeeBps"`
	ReferralFeeBps uint64         `json:"referralFeeBps"`
}

// AgentAccount tracks the reputation of an autonomous agent.
type AgentAccount struct {
	AgentID           string         `json:"agentId"`
	Authority         common.Address `json:"authority"`
	Reputation        uint64         `json:"reputation"`
	TotalLogs         uint64         `json:"totalLogs"`
	TotalAttestations uint64         `json:"totalAttestations"`
	CreatedAt         uint64         `json:"createdAt"`
}

// MemoryLog commits to the input and logic of a single agent decision.
type MemoryLog struct {
	Agent      common.Address `json:"agent"`
	InputHash  common.Hash    `json:"inputHash"`
	LogicHash  common.Hash    `json:"logicHash"`
	MerkleRoot common.Hash    `json:"merkleRoot"`
	Timestamp  uint64         `json:"timestamp"`
	Sequence   uint64         `json:"sequence"`
	IsAttested bool           `json:"isAttested"`
}

// Attestation records the outcome of a logged decision.
type Attestation struct {
	MemoryLog   common.Address `json:"memoryLog"`
	Agent       common.Address `json:"agent"`
	OutcomeHash common.Hash    `json:"outcomeHash"`
	Success     bool           `json:"success"`
	ScoreDelta  ScoreDelta     `json:"scoreDelta"`
	Timestamp   uint64         `json:"timestamp"`
}

// ModuleMetadata describes a module offered on the marketplace.
type ModuleMetadata struct {
	ModuleID      string         `json:"moduleId"`
	Creator       common.Address `json:"creator"`
	Category      ModuleCategory `json:"category"`
	PriceLamports uint64         `json:"priceLamports"`
	RoyaltyBps    uint64         `json:"royaltyBps"`
	IpfsHash      string         `json:"ipfsHash"`
	IsActive      bool           `json:"isActive"`
	TotalSales    uint64         `json:"totalSales"`
	TotalRevenue  uint64         `json:"totalRevenue"`
	CreatedAt     uint64         `json:"createdAt"`
}

// ModulePurchase records that an agent bought a module. PricePaid is the
// module price at the time of purchase.
type ModulePurchase struct {
	Agent       common.Address `json:"agent"`
	Module      common.Address `json:"module"`
	Buyer       common.Address `json:"buyer"`
	PurchasedAt uint64         `json:"purchasedAt"`
	PricePaid   uint64         `json:"pricePaid"`
}
