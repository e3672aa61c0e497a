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

import (
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"
)

// LogAddressScheme selects the natural key memory logs are derived from.
type LogAddressScheme string

const (
	// LogAddressTimestamp derives a memory log from (agent, timestamp). Two logs
	// of the same agent within one timestamp unit collide and the second fails.
	LogAddressTimestamp LogAddressScheme = "timestamp"

	// LogAddressSequence derives a memory log from (agent, sequence), where the
	// sequence is the agent's log counter at creation time.
	LogAddressSequence LogAddressScheme = "sequence"
)

// TimestampResolution is the unit of the ledger clock.
type TimestampResolution string

const (
	Seconds      TimestampResolution = "seconds"
	Milliseconds TimestampResolution = "milliseconds"
)

var (
	// DefaultProgramID is the program namespace used by the reference deployment.
	DefaultProgramID = common.HexToAddress("0x4167656e744d656d6f72795072677261006d0001")

	errZeroProgramID = errors.New("program id must not be zero")
)

// GenesisAccount is a funded identity of the initial ledger state.
type GenesisAccount struct {
	Address common.Address
	Balance uint64
}

// LedgerConfig is the set of rules a ledger instance enforces. It is stored
// with the database on first start and must not change afterwards.
type LedgerConfig struct {
	// ProgramID namespaces every derived account address.
	ProgramID common.Address

	// BootstrapAuthority is the only identity allowed to initialize the
	// platform. A zero value lets the first caller become the authority.
	BootstrapAuthority common.Address `toml:",omitempty"`

	// ReputationCeiling bounds agent reputation from above. Zero means the
	// reputation is only floored at zero.
	ReputationCeiling uint64

	LogAddressScheme    LogAddressScheme
	TimestampResolution TimestampResolution

	// MinModulePrice is the registration floor for module prices.
	MinModulePrice uint64

	Genesis []GenesisAccount `toml:",omitempty"`
}

// DefaultLedgerConfig contains the settings of the reference deployment.
var DefaultLedgerConfig = LedgerConfig{
	ProgramID:           DefaultProgramID,
	ReputationCeiling:   0,
	LogAddressScheme:    LogAddressTimestamp,
	TimestampResolution: Seconds,
	MinModulePrice:      MinModulePrice,
}

// Validate checks the configuration for consistency.
func (c *LedgerConfig) Validate() error {
	if c.ProgramID == (common.Address{}) {
		return errZeroProgramID
	}
	switch c.LogAddressScheme {
	case LogAddressTimestamp, LogAddressSequence:
	default:
		return fmt.Errorf("unknown log address scheme %q", c.LogAddressScheme)
	}
	switch c.TimestampResolution {
	case Seconds, Milliseconds:
	default:
		return fmt.Errorf("unknown timestamp resolution %q", c.TimestampResolution)
	}
	if c.MinModulePrice == 0 {
		return errors.New("minimum module price must be positive")
	}
	var supply uint64
	seen := make(map[common.Address]struct{}, len(c.Genesis))
	for _, acc := range c.Genesis {
		if _, ok := seen[acc.Address]; ok {
			return fmt.Errorf("duplicate genesis account %v", acc.Address)
		}
		seen[acc.Address] = struct{}{}
		if acc.Balance > math.MaxUint64-supply {
			return errors.New("genesis supply overflows uint64")
		}
		supply += acc.Balance
	}
	return nil
}

// TotalSupply returns the sum of all genesis balances. Lamports are only ever
// moved between accounts, so this bounds every balance. Running totals such as
// module revenue count the same lamports again on every sale and are not bounded
// by it.
func (c *LedgerConfig) TotalSupply() uint64 {
	var supply uint64
	for _, acc := range c.Genesis {
		supply += acc.Balance
	}
	return supply
}

func (c *LedgerConfig) String() string {
	return fmt.Sprintf("{ProgramID: %v BootstrapAuthority: %v ReputationCeiling: %d LogAddressScheme: %s TimestampResolution: %s MinModulePrice: %d Genesis: %d accounts}",
		c.ProgramID, c.BootstrapAuthority, c.ReputationCeiling, c.LogAddressScheme, c.TimestampResolution, c.MinModulePrice, len(c.Genesis))
}
