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

package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/agentmemory/go-agentmemory/core"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/internal/ledgerapi"
	"github.com/agentmemory/go-agentmemory/ledgerdb/leveldb"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCID = "bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi"

var (
	adminKey, _   = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	creatorKey, _ = crypto.HexToECDSA("8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a")
	buyerKey, _   = crypto.HexToECDSA("49a7b37aa6f6645917e7b807e9d1c00d4fa71f18343b0d4122a4d2df64dd6fee")

	treasuryAddr = common.HexToAddress("0x7ea5000000000000000000000000000000000001")
	referrerAddr = common.HexToAddress("0x7ef0000000000000000000000000000000000002")
)

func newTestClient(t *testing.T) (*Client, *core.Ledger) {
	t.Helper()
	config := params.DefaultLedgerConfig
	config.Genesis = []params.GenesisAccount{
		{Address: crypto.PubkeyToAddress(adminKey.PublicKey), Balance: 10 * params.Sol},
		{Address: crypto.PubkeyToAddress(creatorKey.PublicKey), Balance: 10 * params.Sol},
		{Address: crypto.PubkeyToAddress(buyerKey.PublicKey), Balance: 10 * params.Sol},
	}
	db := leveldb.NewMemory()
	ledger, err := core.NewLedger(db, &config, core.NewManualClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), nil)
	require.NoError(t, err)
	api := ledgerapi.NewServer(ledger, nil, ledgerapi.Config{})
	srv := httptest.NewServer(api)
	t.Cleanup(func() {
		srv.Close()
		api.Close()
		ledger.Close()
		db.Close()
	})

	c, err := Dial(context.Background(), srv.URL)
	require.NoError(t, err)
	return c, ledger
}

func TestDial(t *testing.T) {
	c, _ := newTestClient(t)
	assert.Equal(t, params.DefaultProgramID, c.ProgramID())

	_, err := NewClient("ftp://example.org", nil)
	assert.Error(t, err)
}

func TestMarketplace(t *testing.T) {
	var (
		ctx     = context.Background()
		c, _    = newTestClient(t)
		admin   = NewTransactor(c, adminKey)
		creator = NewTransactor(c, creatorKey)
		buyer   = NewTransactor(c, buyerKey)
	)
	_, err := admin.InitializePlatform(ctx, treasuryAddr, 500, 500)
	require.NoError(t, err)
	_, err = creator.RegisterModule(ctx, "m1", types.CategoryEpisodic, 100_000_000, 9000, testCID)
	require.NoError(t, err)
	_, err = buyer.InitializeAgent(ctx, "buyer")
	require.NoError(t, err)

	owned, err := c.HasPurchased(ctx, "buyer", "m1")
	require.NoError(t, err)
	assert.False(t, owned)
	owned, err = c.HasPurchased(ctx, "nobody", "m1")
	require.NoError(t, err)
	assert.False(t, owned)

	receipt, err := buyer.PurchaseModule(ctx, "m1", "buyer", &referrerAddr)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{c.PurchaseAddress("buyer", "m1")}, receipt.Created)
	ev := receipt.FindEvent(types.ModulePurchasedEvent).(*types.ModulePurchased)
	assert.Equal(t, uint64(90_000_000), ev.CreatorAmount)

	owned, err = c.HasPurchased(ctx, "buyer", "m1")
	require.NoError(t, err)
	assert.True(t, owned)

	balance, err := c.BalanceAt(ctx, referrerAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), balance)
	balance, err = c.BalanceAt(ctx, common.HexToAddress("0x1234"))
	require.NoError(t, err)
	assert.Zero(t, balance)

	_, err = buyer.PurchaseModule(ctx, "m1", "buyer", nil)
	assert.True(t, errors.Is(err, core.ErrAlreadyPurchased))
	assert.Equal(t, core.KindConflict, core.KindOf(err))
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)

	_, err = creator.UpdateModulePricing(ctx, "m1", 200_000_000, 8000)
	require.NoError(t, err)
	module, err := c.Module(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, uint64(200_000_000), module.PriceLamports)
	assert.Equal(t, uint64(1), module.TotalSales)

	modules, err := c.Modules(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, modules, 1)
	assert.Equal(t, c.ModuleAddress("m1"), modules[0].Address)

	purchases, err := c.Purchases(ctx, "buyer")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, uint64(100_000_000), purchases[0].PricePaid)
}

func TestDecisionLog(t *testing.T) {
	var (
		ctx   = context.Background()
		c, _  = newTestClient(t)
		agent = NewTransactor(c, buyerKey)
	)
	_, err := agent.InitializeAgent(ctx, "a1")
	require.NoError(t, err)
	logAddr, _, err := agent.LogDecision(ctx, "a1", "market data", "buy signal")
	require.NoError(t, err)

	ml, err := c.MemoryLog(ctx, logAddr)
	require.NoError(t, err)
	assert.Equal(t, crypto.Keccak256Hash([]byte("market data")), ml.InputHash)
	assert.Equal(t, c.AgentAddress("a1"), ml.Agent)

	_, err = c.Attestation(ctx, logAddr)
	assert.True(t, errors.Is(err, core.ErrAttestationNotFound))

	_, err = agent.AttestOutcome(ctx, "a1", logAddr, "profit", true, 25)
	require.NoError(t, err)
	_, err = agent.AttestOutcome(ctx, "a1", logAddr, "again", true, 25)
	assert.True(t, errors.Is(err, core.ErrAlreadyAttested))

	att, err := c.Attestation(ctx, logAddr)
	require.NoError(t, err)
	assert.Equal(t, types.ScoreDelta(25), att.ScoreDelta)

	a, err := c.Agent(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, uint64(25), a.Reputation)

	logs, err := c.MemoryLogs(ctx, "a1", 0, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.True(t, logs[0].IsAttested)

	_, err = c.Agent(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrAgentNotFound))
	assert.True(t, IsNotFound(err))
}

func TestIdentity(t *testing.T) {
	var (
		ctx   = context.Background()
		c, l  = newTestClient(t)
		agent = NewTransactor(c, buyerKey)
		said  = types.IdentityProvider{Kind: types.ProviderSAID}
	)
	_, err := agent.InitializeAgent(ctx, "a1")
	require.NoError(t, err)

	_, _, err = c.Identity(ctx, "a1")
	assert.True(t, errors.Is(err, core.ErrIdentityNotFound))

	_, err = agent.RegisterIdentity(ctx, "a1", said, common.Hash{}, 0)
	assert.True(t, errors.Is(err, core.ErrInvalidCredential))

	expiry := l.Head().Timestamp + 3600
	_, err = agent.RegisterIdentity(ctx, "a1", said, common.HexToHash("0x01"), expiry)
	require.NoError(t, err)
	identity, valid, err := c.Identity(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, expiry, identity.ExpiresAt)

	_, err = agent.RevokeIdentity(ctx, "a1")
	require.NoError(t, err)
	_, valid, err = c.Identity(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = agent.RenewIdentity(ctx, "a1", common.HexToHash("0x02"), 0)
	require.NoError(t, err)
	identity, valid, err = c.Identity(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.Equal(t, common.HexToHash("0x02"), identity.Credential)
	assert.Zero(t, identity.ExpiresAt)
}

func TestSequentialNonces(t *testing.T) {
	var (
		ctx    = context.Background()
		c, l   = newTestClient(t)
		sender = NewTransactor(c, adminKey)
	)
	for i := 0; i < 3; i++ {
		_, err := sender.Transfer(ctx, treasuryAddr, params.Sol)
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(3), l.Nonce(sender.From))
	assert.Equal(t, uint64(3*params.Sol), l.Balance(treasuryAddr))
}

func TestSubscribeEvents(t *testing.T) {
	var (
		ctx   = context.Background()
		c, _  = newTestClient(t)
		agent = NewTransactor(c, buyerKey)
	)
	ch := make(chan *types.Event, 4)
	sub, err := c.SubscribeEvents(ctx, ch, types.AgentInitializedEvent)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	_, err = agent.InitializeAgent(ctx, "a1")
	require.NoError(t, err)

	select {
	case ev := <-ch:
		require.Equal(t, types.AgentInitializedEvent, ev.Kind)
		payload, err := ev.Payload()
		require.NoError(t, err)
		assert.Equal(t, "a1", payload.(*types.AgentInitialized).AgentID)
	case err := <-sub.Err():
		t.Fatalf("subscription failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	_, err = c.Info(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Nil(t, errors.Unwrap(err))
	assert.Equal(t, core.KindUnknown, core.KindOf(err))
}
