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
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
)

// initializePlatform creates the platform configuration singleton.
func (env *execEnv) initializePlatform(ins *types.InitializePlatform) error {
	if err := validateBps(ins.PlatformFeeBps, ErrBadBasisPoints); err != nil {
		return err
	}
	if err := validateBps(ins.ReferralFeeBps, ErrBadBasisPoints); err != nil {
		return err
	}
	// A referred purchase pays both fees out of the price.
	if ins.PlatformFeeBps+ins.ReferralFeeBps > params.BasisPointsDenominator {
		return fmt.Errorf("%w: combined rate %d", ErrBadBasisPoints, ins.PlatformFeeBps+ins.ReferralFeeBps)
	}
	if boot := env.config.BootstrapAuthority; boot != (common.Address{}) && boot != env.signer {
		return fmt.Errorf("%w: %v is not the bootstrap authority", ErrUnauthorized, env.signer)
	}
	if err := env.checkPayee(ins.Treasury); err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	addr := types.PlatformConfigAddress(env.config.ProgramID)
	if ins.Treasury == addr {
		return fmt.Errorf("%w: treasury is the platform config account", ErrInvalidPayee)
	}
	config := &types.PlatformConfig{
		Authority:      env.signer,
		Treasury:       ins.Treasury,
		PlatformFeeBps: ins.PlatformFeeBps,
		ReferralFeeBps: ins.ReferralFeeBps,
	}
	if err := env.create(addr, types.KindPlatformConfig, config, ErrAlreadyInitialized); err != nil {
		return err
	}
	return env.emit(&types.PlatformInitialized{
		Config:         addr,
		Authority:      config.Authority,
		Treasury:       config.Treasury,
		PlatformFeeBps: config.PlatformFeeBps,
		ReferralFeeBps: config.ReferralFeeBps,
	})
}

// loadPlatform retrieves the platform configuration.
func (env *execEnv) loadPlatform() (*types.PlatformConfig, error) {
	config := new(types.PlatformConfig)
	if !env.state.GetAccount(types.PlatformConfigAddress(env.config.ProgramID), types.KindPlatformConfig, config) {
		return nil, ErrPlatformNotInitialized
	}
	return config, nil
}
