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

package params

const (
	MaxAgentIDLength  = 64  // Maximum length of an agent identifier in bytes.
	MaxModuleIDLength = 64  // Maximum length of a module identifier in bytes.
	MaxIpfsHashLength = 128 // Maximum length of a module content identifier.

	MaxInputLength   = 256 // Maximum length of the input data of a logged decision.
	MaxLogicLength   = 256 // Maximum length of the logic data of a logged decision.
	MaxOutcomeLength = 256 // Maximum length of an attested outcome description.

	MaxProviderNameLength = 32 // Maximum length of a custom identity provider name.

	// MinModulePrice is the default registration floor for module prices, in lamports.
	MinModulePrice uint64 = 1_000_000

	// BasisPointsDenominator is the value of 100% expressed in basis points.
	BasisPointsDenominator uint64 = 10_000
)

// Seeds used to derive program account addresses. Every derived account kind
// has its own tag so that natural keys of different kinds never collide.
var (
	PlatformConfigSeed = []byte("platform_config")
	AgentSeed          = []byte("agent")
	MemorySeed         = []byte("memory")
	AttestationSeed    = []byte("attest")
	ModuleSeed         = []byte("module")
	PurchaseSeed       = []byte("purchase")
	IdentitySeed       = []byte("identity")
)
