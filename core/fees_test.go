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
	"crypto/ecdsa"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestSplitFees(t *testing.T) {
	tests := []struct {
		price, platform, referral uint64
		referrer                  bool
		want                      FeeSplit
	}{
		{100_000_000, 500, 500, false, FeeSplit{5_000_000, 0, 95_000_000}},
		{100_000_000, 500, 500, true, FeeSplit{5_000_000, 5_000_000, 90_000_000}},
		{1_000_001, 333, 333, true, FeeSplit{33_300, 33_300, 933_401}},
		{999, 1, 1, true, FeeSplit{0, 0, 999}},
		{1_000_000, 0, 10_000, true, FeeSplit{0, 1_000_000, 0}},
		{math.MaxUint64, 10_000, 0, false, FeeSplit{math.MaxUint64, 0, 0}},
		{math.MaxUint64, 5_000, 5_000, true, FeeSplit{math.MaxUint64 / 2, math.MaxUint64 / 2, 1}},
	}
	for i, tt := range tests {
		have, err := SplitFees(tt.price, tt.platform, tt.referral, tt.referrer)
		if err != nil {
			t.Fatalf("test %d: unexpected error: %v", i, err)
		}
		if have != tt.want {
			t.Errorf("test %d: have %+v, want %+v", i, have, tt.want)
		}
	}
}

func TestSplitFeesRejectsBadRates(t *testing.T) {
	_, err := SplitFees(1_000_000, 10_001, 0, false)
	assert.ErrorIs(t, err, ErrBadBasisPoints)
	_, err = SplitFees(1_000_000, 6_000, 6_000, true)
	assert.ErrorIs(t, err, ErrBadBasisPoints)

	// Without a referrer the referral rate does not count.
	_, err = SplitFees(1_000_000, 6_000, 6_000, false)
	assert.NoError(t, err)
}

func TestSplitFeesConservation(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for i := 0; i < 2000; i++ {
		var (
			price              uint64
			platform, referral uint16
			referrer           bool
		)
		f.Fuzz(&price)
		f.Fuzz(&platform)
		f.Fuzz(&referral)
		f.Fuzz(&referrer)
		p, r := uint64(platform)%5_001, uint64(referral)%5_001

		split, err := SplitFees(price, p, r, referrer)
		require.NoError(t, err)
		if split.PlatformFee+split.ReferralFee+split.CreatorAmount != price {
			t.Fatalf("lamports not conserved: price %d split %+v", price, split)
		}
		if !referrer && split.ReferralFee != 0 {
			t.Fatalf("referral fee charged without referrer: %+v", split)
		}
	}
}

// TestConcurrentPurchase races identical purchases from one buyer. Exactly
// one may commit; the rest must observe the existing purchase record.
func TestConcurrentPurchase(t *testing.T) {
	tl := newTestLedger(t, nil)
	tl.setupMarket()
	tl.mustSend(buyerKey, &types.InitializeAgent{AgentID: "b1"})

	nonce := tl.Nonce(buyerAddr)
	buyerBefore := tl.Balance(buyerAddr)

	var (
		g         errgroup.Group
		succeeded int32
		duplicate int32
	)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			tx, err := types.SignNewTx(tl.config.ProgramID, buyerKey, nonce, &types.PurchaseModule{ModuleID: "m1", BuyerAgentID: "b1"})
			if err != nil {
				return err
			}
			_, err = tl.Apply(tx)
			switch {
			case err == nil:
				atomic.AddInt32(&succeeded, 1)
			case errors.Is(err, ErrAlreadyPurchased):
				atomic.AddInt32(&duplicate, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int32(1), succeeded)
	assert.Equal(t, int32(7), duplicate)

	module, err := tl.Module("m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), module.TotalSales)
	assert.Equal(t, buyerBefore-100_000_000, tl.Balance(buyerAddr))
	assert.Equal(t, nonce+1, tl.Nonce(buyerAddr))
}

// TestRandomInstructions applies fuzzed instructions and checks that the
// ledger never panics and that failures leave no trace.
func TestRandomInstructions(t *testing.T) {
	tl := newTestLedger(t, nil)
	tl.setupMarket()
	tl.mustSend(buyerKey, &types.InitializeAgent{AgentID: "b1"})

	f := fuzz.New().NilChance(0.5).NumElements(0, 3)
	keys := []struct {
		name string
		fill func() types.Instruction
	}{
		{"platform", func() types.Instruction { ins := new(types.InitializePlatform); f.Fuzz(ins); return ins }},
		{"agent", func() types.Instruction { ins := new(types.InitializeAgent); f.Fuzz(ins); return ins }},
		{"log", func() types.Instruction {
			ins := &types.LogDecision{AgentID: "b1"}
			f.Fuzz(&ins.InputData)
			f.Fuzz(&ins.LogicData)
			return ins
		}},
		{"attest", func() types.Instruction { ins := &types.AttestOutcome{AgentID: "b1"}; f.Fuzz(&ins.ScoreDelta); return ins }},
		{"register", func() types.Instruction { ins := new(types.RegisterModule); f.Fuzz(ins); return ins }},
		{"purchase", func() types.Instruction {
			ins := &types.PurchaseModule{ModuleID: "m1", BuyerAgentID: "b1"}
			f.Fuzz(&ins.Referrer)
			return ins
		}},
		{"pricing", func() types.Instruction { ins := &types.UpdateModulePricing{ModuleID: "m1"}; f.Fuzz(ins); return ins }},
		{"transfer", func() types.Instruction { ins := new(types.Transfer); f.Fuzz(ins); return ins }},
	}
	signers := []*ecdsa.PrivateKey{buyerKey, creatorKey, otherKey}
	supply := tl.config.TotalSupply()

	for i := 0; i < 400; i++ {
		var pick, who uint8
		f.Fuzz(&pick)
		f.Fuzz(&who)
		gen := keys[int(pick)%len(keys)]
		key := signers[int(who)%len(signers)]
		ins := gen.fill()

		addr := crypto.PubkeyToAddress(key.PublicKey)
		nonce, head := tl.Nonce(addr), tl.Head()
		if _, err := tl.send(key, ins); err != nil {
			if tl.Nonce(addr) != nonce || tl.Head() != head {
				t.Fatalf("failed %s instruction mutated the ledger: %v\n%s", gen.name, err, spew.Sdump(ins))
			}
			if _, ok := AsLedgerError(err); !ok {
				t.Fatalf("untyped error from %s instruction: %v\n%s", gen.name, err, spew.Sdump(ins))
			}
		}
	}
	var total uint64
	for _, addr := range []common.Address{adminAddr, creatorAddr, buyerAddr, otherAddr, treasuryAddr} {
		total += tl.Balance(addr)
	}
	assert.LessOrEqual(t, total, supply)
}
