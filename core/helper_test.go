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
	"testing"
	"time"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/ledgerdb"
	"github.com/agentmemory/go-agentmemory/ledgerdb/leveldb"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

const (
	testValidCID        = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
	testFunds    uint64 = 10 * params.Sol
)

var (
	adminKey, _   = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	creatorKey, _ = crypto.HexToECDSA("8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a")
	buyerKey, _   = crypto.HexToECDSA("49a7b37aa6f6645917e7b807e9d1c00d4fa71f18343b0d4122a4d2df64dd6fee")
	otherKey, _   = crypto.HexToECDSA("289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032")

	adminAddr    = crypto.PubkeyToAddress(adminKey.PublicKey)
	creatorAddr  = crypto.PubkeyToAddress(creatorKey.PublicKey)
	buyerAddr    = crypto.PubkeyToAddress(buyerKey.PublicKey)
	otherAddr    = crypto.PubkeyToAddress(otherKey.PublicKey)
	treasuryAddr = common.HexToAddress("0x7ea5000000000000000000000000000000000001")
	referrerAddr = common.HexToAddress("0x7ef0000000000000000000000000000000000002")
)

var testStart = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type testLedger struct {
	*Ledger
	t     *testing.T
	db    ledgerdb.KeyValueStore
	clock *ManualClock
}

func testConfig() *params.LedgerConfig {
	config := params.DefaultLedgerConfig
	config.Genesis = []params.GenesisAccount{
		{Address: adminAddr, Balance: testFunds},
		{Address: creatorAddr, Balance: testFunds},
		{Address: buyerAddr, Balance: testFunds},
		{Address: otherAddr, Balance: testFunds},
	}
	return &config
}

func newTestLedger(t *testing.T, config *params.LedgerConfig) *testLedger {
	t.Helper()
	db := leveldb.NewMemory()
	t.Cleanup(func() { db.Close() })
	return openTestLedger(t, db, config)
}

func openTestLedger(t *testing.T, db ledgerdb.KeyValueStore, config *params.LedgerConfig) *testLedger {
	t.Helper()
	if config == nil {
		config = testConfig()
	}
	clock := NewManualClock(testStart)
	l, err := NewLedger(db, config, clock, nil)
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return &testLedger{Ledger: l, t: t, db: db, clock: clock}
}

// send signs ins with the next nonce of key and applies it.
func (tl *testLedger) send(key *ecdsa.PrivateKey, ins types.Instruction) (*types.Receipt, error) {
	tl.t.Helper()
	tx, err := types.SignNewTx(tl.config.ProgramID, key, tl.Nonce(crypto.PubkeyToAddress(key.PublicKey)), ins)
	require.NoError(tl.t, err)
	return tl.Apply(tx)
}

func (tl *testLedger) mustSend(key *ecdsa.PrivateKey, ins types.Instruction) *types.Receipt {
	tl.t.Helper()
	receipt, err := tl.send(key, ins)
	require.NoError(tl.t, err, "%v", ins.Kind())
	return receipt
}

// setupMarket initializes the platform at 500/500 bps and registers module
// "m1" for 100,000,000 lamports.
func (tl *testLedger) setupMarket() {
	tl.t.Helper()
	tl.mustSend(adminKey, &types.InitializePlatform{Treasury: treasuryAddr, PlatformFeeBps: 500, ReferralFeeBps: 500})
	tl.mustSend(creatorKey, &types.RegisterModule{
		ModuleID:      "m1",
		Category:      types.CategorySemantic,
		PriceLamports: 100_000_000,
		RoyaltyBps:    9000,
		IpfsHash:      testValidCID,
	})
}

func (tl *testLedger) logDecision(key *ecdsa.PrivateKey, agentID, input, logic string) common.Address {
	tl.t.Helper()
	receipt := tl.mustSend(key, &types.LogDecision{AgentID: agentID, InputData: input, LogicData: logic})
	ev, ok := receipt.FindEvent(types.DecisionLoggedEvent).(*types.DecisionLogged)
	require.True(tl.t, ok)
	return ev.MemoryLog
}

func keccak(s string) common.Hash {
	return crypto.Keccak256Hash([]byte(s))
}

func keccakConcat(a, b common.Hash) common.Hash {
	return crypto.Keccak256Hash(a[:], b[:])
}
