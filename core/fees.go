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
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/holiman/uint256"
)

// FeeSplit is the division of a module price between the platform treasury,
// an optional referrer and the module creator.
type FeeSplit struct {
	PlatformFee   uint64
	ReferralFee   uint64
	CreatorAmount uint64
}

// SplitFees divides price according to the basis point rates. Fees are
// computed with truncating division and the creator receives the remainder,
// so the three parts always sum to price. The referral fee is only charged
// when a referrer is present.
func SplitFees(price, platformFeeBps, referralFeeBps uint64, hasReferrer bool) (FeeSplit, error) {
	if platformFeeBps > params.BasisPointsDenominator || referralFeeBps > params.BasisPointsDenominator {
		return FeeSplit{}, ErrBadBasisPoints
	}
	var split FeeSplit
	split.PlatformFee = bpsOf(price, platformFeeBps)
	if hasReferrer {
		split.ReferralFee = bpsOf(price, referralFeeBps)
	}
	if split.PlatformFee+split.ReferralFee > price {
		return FeeSplit{}, ErrBadBasisPoints
	}
	split.CreatorAmount = price - split.PlatformFee - split.ReferralFee
	return split, nil
}

// bpsOf returns amount*bps/10000. The product is computed in 256 bits so it
// cannot overflow; the quotient never exceeds amount for bps <= 10000.
func bpsOf(amount, bps uint64) uint64 {
	v := new(uint256.Int).SetUint64(amount)
	v.Mul(v, new(uint256.Int).SetUint64(bps))
	v.Div(v, new(uint256.Int).SetUint64(params.BasisPointsDenominator))
	return v.Uint64()
}
