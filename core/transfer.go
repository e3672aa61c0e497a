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

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// checkPayee verifies that addr can receive lamports.
func (env *execEnv) checkPayee(addr common.Address) error {
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: zero address", ErrInvalidPayee)
	}
	if kind := env.state.GetKind(addr); kind.IsProgram() {
		return fmt.Errorf("%w: %v is a %v account", ErrInvalidPayee, addr, kind)
	}
	return nil
}

// pay moves amount lamports from one identity to another. The payee is
// validated even for zero amounts.
func (env *execEnv) pay(from, to common.Address, amount uint64) error {
	if err := env.checkPayee(to); err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	if have := env.state.GetBalance(from); have < amount {
		return fmt.Errorf("%w: address %v have %d want %d", ErrInsufficientFunds, from, have, amount)
	}
	env.state.SubBalance(from, amount)
	env.state.AddBalance(to, amount)
	return nil
}

// transfer executes a plain lamport transfer from the signer.
func (env *execEnv) transfer(ins *types.Transfer) error {
	if err := env.pay(env.signer, ins.To, ins.Amount); err != nil {
		return err
	}
	return env.emit(&types.Transferred{
		From:   env.signer,
		To:     ins.To,
		Amount: ins.Amount,
	})
}
