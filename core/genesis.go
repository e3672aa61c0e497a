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
	"fmt"

	"github.com/agentmemory/go-agentmemory/core/rawdb"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/ledgerdb"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// ProgramMismatchError is returned when a database created for one program
// is opened with the configuration of another.
type ProgramMismatchError struct {
	Stored, New common.Address
}

func (e *ProgramMismatchError) Error() string {
	return fmt.Sprintf("database contains incompatible program (have %x, new %x)", e.Stored, e.New)
}

// SetupGenesis writes the genesis state into an empty database, or checks
// that an existing database belongs to the configured program. It returns the
// current head of the ledger.
//
// Genesis accounts are only applied on first start; later changes to the
// genesis section of the configuration are ignored.
func SetupGenesis(db ledgerdb.KeyValueStore, config *params.LedgerConfig) (*types.Head, error) {
	if stored := rawdb.ReadProgramID(db); stored != nil {
		if *stored != config.ProgramID {
			return nil, &ProgramMismatchError{Stored: *stored, New: config.ProgramID}
		}
		head := rawdb.ReadHead(db)
		if head == nil {
			return nil, fmt.Errorf("missing ledger head for program %x", *stored)
		}
		return head, nil
	}
	batch := db.NewBatch()
	for _, acc := range config.Genesis {
		rawdb.WriteAccount(batch, acc.Address, &types.Account{Kind: types.KindSystem, Balance: acc.Balance})
	}
	head := new(types.Head)
	rawdb.WriteProgramID(batch, config.ProgramID)
	rawdb.WriteHead(batch, head)
	if err := batch.Write(); err != nil {
		return nil, err
	}
	log.Info("Wrote ledger genesis", "program", config.ProgramID, "accounts", len(config.Genesis), "supply", config.TotalSupply())
	return head, nil
}
