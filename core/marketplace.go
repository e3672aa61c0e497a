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
	"math"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
)

// registerModule lists a new module for sale with the signer as creator.
func (env *execEnv) registerModule(ins *types.RegisterModule) error {
	if err := validateModuleID(ins.ModuleID); err != nil {
		return err
	}
	if err := env.checkPricing(ins.PriceLamports, ins.RoyaltyBps); err != nil {
		return err
	}
	if !ins.Category.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCategory, ins.Category)
	}
	if err := ValidateIpfsHash(ins.IpfsHash); err != nil {
		return err
	}
	addr := types.ModuleAddress(env.config.ProgramID, ins.ModuleID)
	module := &types.ModuleMetadata{
		ModuleID:      ins.ModuleID,
		Creator:       env.signer,
		Category:      ins.Category,
		PriceLamports: ins.PriceLamports,
		RoyaltyBps:    ins.RoyaltyBps,
		IpfsHash:      ins.IpfsHash,
		IsActive:      true,
		CreatedAt:     env.timestamp,
	}
	if err := env.create(addr, types.KindModule, module, ErrAccountAlreadyExists); err != nil {
		return err
	}
	return env.emit(&types.ModuleRegistered{
		Module:        addr,
		ModuleID:      ins.ModuleID,
		Creator:       env.signer,
		Category:      ins.Category,
		PriceLamports: ins.PriceLamports,
		RoyaltyBps:    ins.RoyaltyBps,
		IpfsHash:      ins.IpfsHash,
	})
}

// purchaseModule buys a module for an agent owned by the signer. The price is
// split between the treasury, the optional referrer and the creator.
func (env *execEnv) purchaseModule(ins *types.PurchaseModule) error {
	platform, err := env.loadPlatform()
	if err != nil {
		return err
	}
	moduleAddr, module, err := env.loadModule(ins.ModuleID)
	if err != nil {
		return err
	}
	if !module.IsActive {
		return fmt.Errorf("%w: %q", ErrModuleInactive, ins.ModuleID)
	}
	agentAddr, agent, err := env.loadAgent(ins.BuyerAgentID)
	if err != nil {
		return err
	}
	if agent.Authority != env.signer {
		return fmt.Errorf("%w: agent %q", ErrUnauthorized, ins.BuyerAgentID)
	}
	purchaseAddr := types.PurchaseAddress(env.config.ProgramID, agentAddr, moduleAddr)
	if env.state.GetKind(purchaseAddr) == types.KindPurchase {
		return fmt.Errorf("%w: agent %q module %q", ErrAlreadyPurchased, ins.BuyerAgentID, ins.ModuleID)
	}
	price := module.PriceLamports
	if have := env.state.GetBalance(env.signer); have < price {
		return fmt.Errorf("%w: address %v have %d want %d", ErrInsufficientFunds, env.signer, have, price)
	}
	if module.TotalRevenue > math.MaxUint64-price {
		return fmt.Errorf("%w: module %q total %d price %d", ErrRevenueOverflow, ins.ModuleID, module.TotalRevenue, price)
	}
	split, err := SplitFees(price, platform.PlatformFeeBps, platform.ReferralFeeBps, ins.Referrer != nil)
	if err != nil {
		return err
	}
	snap := env.state.Snapshot()
	if err := env.payout(platform.Treasury, ins.Referrer, module.Creator, split); err != nil {
		env.state.RevertToSnapshot(snap)
		return err
	}
	purchase := &types.ModulePurchase{
		Agent:       agentAddr,
		Module:      moduleAddr,
		Buyer:       env.signer,
		PurchasedAt: env.timestamp,
		PricePaid:   price,
	}
	if err := env.create(purchaseAddr, types.KindPurchase, purchase, ErrAlreadyPurchased); err != nil {
		env.state.RevertToSnapshot(snap)
		return err
	}
	module.TotalSales++
	module.TotalRevenue += price
	if err := env.state.UpdateAccount(moduleAddr, module); err != nil {
		return err
	}
	return env.emit(&types.ModulePurchased{
		Module:        moduleAddr,
		ModuleID:      ins.ModuleID,
		Agent:         agentAddr,
		Buyer:         env.signer,
		Purchase:      purchaseAddr,
		Creator:       module.Creator,
		Treasury:      platform.Treasury,
		Referrer:      ins.Referrer,
		Price:         price,
		PlatformFee:   split.PlatformFee,
		ReferralFee:   split.ReferralFee,
		CreatorAmount: split.CreatorAmount,
	})
}

// payout moves the three parts of a purchase price out of the signer's
// account.
func (env *execEnv) payout(treasury common.Address, referrer *common.Address, creator common.Address, split FeeSplit) error {
	if err := env.pay(env.signer, treasury, split.PlatformFee); err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	if referrer != nil {
		if err := env.pay(env.signer, *referrer, split.ReferralFee); err != nil {
			return fmt.Errorf("referrer: %w", err)
		}
	}
	if err := env.pay(env.signer, creator, split.CreatorAmount); err != nil {
		return fmt.Errorf("creator: %w", err)
	}
	return nil
}

// updateModulePricing changes the price and royalty of a module. Existing
// purchases keep the price they paid.
func (env *execEnv) updateModulePricing(ins *types.UpdateModulePricing) error {
	addr, module, err := env.loadModule(ins.ModuleID)
	if err != nil {
		return err
	}
	if module.Creator != env.signer {
		return fmt.Errorf("%w: module %q", ErrUnauthorized, ins.ModuleID)
	}
	if err := env.checkPricing(ins.PriceLamports, ins.RoyaltyBps); err != nil {
		return err
	}
	module.PriceLamports = ins.PriceLamports
	module.RoyaltyBps = ins.RoyaltyBps
	if err := env.state.UpdateAccount(addr, module); err != nil {
		return err
	}
	return env.emit(&types.ModulePricingUpdated{
		Module:        addr,
		ModuleID:      ins.ModuleID,
		PriceLamports: ins.PriceLamports,
		RoyaltyBps:    ins.RoyaltyBps,
	})
}

func (env *execEnv) checkPricing(price, royaltyBps uint64) error {
	if price < env.config.MinModulePrice {
		return fmt.Errorf("%w: %d < %d", ErrPriceTooLow, price, env.config.MinModulePrice)
	}
	return validateBps(royaltyBps, ErrInvalidRoyalty)
}
