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

package ledgerapi

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/agentmemory/go-agentmemory/core"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/ledgerdb/leveldb"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCID = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"

var (
	adminKey, _   = crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	creatorKey, _ = crypto.HexToECDSA("8a1f9a8f95be41cd7ccb6168179afb4504aefe388d1e14474d32c45c72ce7b7a")
	buyerKey, _   = crypto.HexToECDSA("49a7b37aa6f6645917e7b807e9d1c00d4fa71f18343b0d4122a4d2df64dd6fee")

	adminAddr    = crypto.PubkeyToAddress(adminKey.PublicKey)
	creatorAddr  = crypto.PubkeyToAddress(creatorKey.PublicKey)
	buyerAddr    = crypto.PubkeyToAddress(buyerKey.PublicKey)
	treasuryAddr = common.HexToAddress("0x7ea5000000000000000000000000000000000001")
)

type testServer struct {
	*httptest.Server
	t      *testing.T
	ledger *core.Ledger
	api    *Server
}

func newTestServer(t *testing.T, reports Analytics, config Config) *testServer {
	t.Helper()
	ledgerConfig := params.DefaultLedgerConfig
	ledgerConfig.Genesis = []params.GenesisAccount{
		{Address: adminAddr, Balance: 10 * params.Sol},
		{Address: creatorAddr, Balance: 10 * params.Sol},
		{Address: buyerAddr, Balance: 10 * params.Sol},
	}
	db := leveldb.NewMemory()
	ledger, err := core.NewLedger(db, &ledgerConfig, core.NewManualClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), nil)
	require.NoError(t, err)

	api := NewServer(ledger, reports, config)
	srv := httptest.NewServer(api)
	t.Cleanup(func() {
		srv.Close()
		api.Close()
		ledger.Close()
		db.Close()
	})
	return &testServer{Server: srv, t: t, ledger: ledger, api: api}
}

// send signs ins and submits it through the API.
func (ts *testServer) send(key *ecdsa.PrivateKey, ins types.Instruction) *http.Response {
	ts.t.Helper()
	tx, err := types.SignNewTx(ts.ledger.Config().ProgramID, key, ts.ledger.Nonce(crypto.PubkeyToAddress(key.PublicKey)), ins)
	require.NoError(ts.t, err)
	raw, err := tx.MarshalBinary()
	require.NoError(ts.t, err)
	body, err := json.Marshal(&SendTxArgs{Raw: raw})
	require.NoError(ts.t, err)
	resp, err := http.Post(ts.URL+"/v1/transactions", "application/json", bytes.NewReader(body))
	require.NoError(ts.t, err)
	return resp
}

func (ts *testServer) mustSend(key *ecdsa.PrivateKey, ins types.Instruction) *types.Receipt {
	ts.t.Helper()
	resp := ts.send(key, ins)
	var receipt types.Receipt
	decode(ts.t, resp, http.StatusOK, &receipt)
	return &receipt
}

func (ts *testServer) get(path string) *http.Response {
	ts.t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(ts.t, err)
	return resp
}

func (ts *testServer) setupMarket() {
	ts.t.Helper()
	ts.mustSend(adminKey, &types.InitializePlatform{Treasury: treasuryAddr, PlatformFeeBps: 500, ReferralFeeBps: 500})
	ts.mustSend(creatorKey, &types.RegisterModule{ModuleID: "m1", Category: types.CategorySemantic, PriceLamports: 100_000_000, RoyaltyBps: 9000, IpfsHash: testCID})
	ts.mustSend(buyerKey, &types.InitializeAgent{AgentID: "buyer"})
}

func decode(t *testing.T, resp *http.Response, status int, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.Equal(t, status, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func decodeError(t *testing.T, resp *http.Response, status int) ErrorBody {
	t.Helper()
	var body ErrorResponse
	decode(t, resp, status, &body)
	return body.Error
}

func TestInfo(t *testing.T) {
	ts := newTestServer(t, nil, Config{})
	ts.mustSend(adminKey, &types.InitializePlatform{Treasury: treasuryAddr, PlatformFeeBps: 500, ReferralFeeBps: 500})

	var info InfoResult
	decode(t, ts.get("/v1/info"), http.StatusOK, &info)
	assert.Equal(t, params.DefaultProgramID, info.ProgramID)
	assert.Equal(t, uint64(1), info.Head.Slot)
	assert.Equal(t, string(params.LogAddressTimestamp), info.LogAddressScheme)
}

func TestMarketplaceFlow(t *testing.T) {
	ts := newTestServer(t, nil, Config{})
	ts.setupMarket()

	receipt := ts.mustSend(buyerKey, &types.PurchaseModule{ModuleID: "m1", BuyerAgentID: "buyer"})
	assert.Equal(t, types.PurchaseModuleKind, receipt.Kind)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, types.ModulePurchasedEvent, receipt.Events[0].Kind)

	var module types.ModuleMetadata
	decode(t, ts.get("/v1/modules/m1"), http.StatusOK, &module)
	assert.Equal(t, uint64(1), module.TotalSales)
	assert.Equal(t, uint64(100_000_000), module.TotalRevenue)

	var purchase PurchaseResult
	decode(t, ts.get("/v1/purchases/buyer/m1"), http.StatusOK, &purchase)
	assert.Equal(t, uint64(100_000_000), purchase.Purchase.PricePaid)
	assert.Equal(t, receipt.Created[0], purchase.Address)

	var purchases []core.PurchaseEntry
	decode(t, ts.get("/v1/agents/buyer/purchases"), http.StatusOK, &purchases)
	require.Len(t, purchases, 1)
	assert.Equal(t, purchase.Address, purchases[0].Address)

	var treasury AccountResult
	decode(t, ts.get("/v1/accounts/"+treasuryAddr.Hex()), http.StatusOK, &treasury)
	assert.Equal(t, uint64(5_000_000), treasury.Balance)
	assert.Equal(t, types.KindSystem, treasury.Kind)

	var fetched types.Receipt
	decode(t, ts.get("/v1/receipts/"+receipt.TxHash.Hex()), http.StatusOK, &fetched)
	assert.Equal(t, receipt.Slot, fetched.Slot)

	body := decodeError(t, ts.send(buyerKey, &types.PurchaseModule{ModuleID: "m1", BuyerAgentID: "buyer"}), http.StatusConflict)
	assert.Equal(t, core.ErrAlreadyPurchased.Code, body.Code)
	assert.Equal(t, "AlreadyPurchased", body.Name)
	assert.Equal(t, core.KindConflict.String(), body.Kind)
}

func TestMemoryLogs(t *testing.T) {
	ts := newTestServer(t, nil, Config{})
	ts.mustSend(buyerKey, &types.InitializeAgent{AgentID: "a1"})
	receipt := ts.mustSend(buyerKey, &types.LogDecision{AgentID: "a1", InputData: "in", LogicData: "logic"})
	logAddr := receipt.Created[0]

	var logs []core.MemoryLogEntry
	decode(t, ts.get("/v1/agents/a1/logs"), http.StatusOK, &logs)
	require.Len(t, logs, 1)
	assert.Equal(t, logAddr, logs[0].Address)
	assert.False(t, logs[0].IsAttested)

	decodeError(t, ts.get("/v1/attestations/"+logAddr.Hex()), http.StatusNotFound)
	ts.mustSend(buyerKey, &types.AttestOutcome{AgentID: "a1", MemoryLog: logAddr, OutcomeData: "ok", Success: true, ScoreDelta: 10})

	var att types.Attestation
	decode(t, ts.get("/v1/attestations/"+logAddr.Hex()), http.StatusOK, &att)
	assert.True(t, att.Success)

	var agent types.AgentAccount
	decode(t, ts.get("/v1/agents/a1"), http.StatusOK, &agent)
	assert.Equal(t, uint64(10), agent.Reputation)
	assert.Equal(t, uint64(1), agent.TotalAttestations)

	body := decodeError(t, ts.send(creatorKey, &types.LogDecision{AgentID: "a1", InputData: "x", LogicData: "y"}), http.StatusForbidden)
	assert.Equal(t, core.ErrUnauthorized.Code, body.Code)
}

func TestAgentIdentity(t *testing.T) {
	ts := newTestServer(t, nil, Config{})
	ts.mustSend(buyerKey, &types.InitializeAgent{AgentID: "a1"})
	decodeError(t, ts.get("/v1/agents/a1/identity"), http.StatusNotFound)

	credential := common.HexToHash("0x5a1d")
	receipt := ts.mustSend(buyerKey, &types.RegisterIdentity{
		AgentID:    "a1",
		Provider:   types.IdentityProvider{Kind: types.ProviderCustom, Name: "kyc"},
		Credential: credential,
	})

	var result IdentityResult
	decode(t, ts.get("/v1/agents/a1/identity"), http.StatusOK, &result)
	assert.Equal(t, receipt.Created[0], result.Address)
	assert.True(t, result.Valid)
	assert.Equal(t, types.IdentityProvider{Kind: types.ProviderCustom, Name: "kyc"}, result.Identity.Provider)
	assert.Equal(t, credential, result.Identity.Credential)

	ts.mustSend(buyerKey, &types.RevokeIdentity{AgentID: "a1"})
	decode(t, ts.get("/v1/agents/a1/identity"), http.StatusOK, &result)
	assert.False(t, result.Valid)
	assert.False(t, result.Identity.IsActive)

	body := decodeError(t, ts.send(buyerKey, &types.RevokeIdentity{AgentID: "a1"}), http.StatusNotFound)
	assert.Equal(t, core.ErrIdentityInactive.Code, body.Code)
	body = decodeError(t, ts.send(buyerKey, &types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderSAID}}), http.StatusBadRequest)
	assert.Equal(t, core.ErrInvalidCredential.Code, body.Code)
}

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{core.ErrAgentIDTooLong, http.StatusBadRequest},
		{core.ErrUnauthorized, http.StatusForbidden},
		{core.ErrAlreadyAttested, http.StatusConflict},
		{core.ErrModuleInactive, http.StatusNotFound},
		{core.ErrInsufficientFunds, http.StatusPaymentRequired},
		{analytics.ErrAgentNotFound, http.StatusNotFound},
		{errAnalyticsDisabled, http.StatusServiceUnavailable},
		{context.Canceled, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		status, _ := errorResponse(tt.err)
		assert.Equal(t, tt.status, status, "%v", tt.err)
	}
}

func TestBadRequests(t *testing.T) {
	ts := newTestServer(t, nil, Config{})
	for _, path := range []string{
		"/v1/accounts/nope",
		"/v1/logs/0x1234",
		"/v1/receipts/0xabcd",
		"/v1/agents?limit=0",
		"/v1/modules?offset=-1",
		"/v1/events?kinds=Bogus",
	} {
		body := decodeError(t, ts.get(path), http.StatusBadRequest)
		assert.Equal(t, core.KindValidation.String(), body.Kind, path)
	}

	resp, err := http.Post(ts.URL+"/v1/transactions", "application/json", strings.NewReader(`{"raw":"0x01"}`))
	require.NoError(t, err)
	decodeError(t, resp, http.StatusBadRequest)

	decodeError(t, ts.get("/v1/nowhere"), http.StatusNotFound)
	decodeError(t, ts.get("/v1/platform"), http.StatusNotFound)
}

func TestParsePage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/v1/agents?offset=5&limit=5000", nil)
	offset, limit, err := parsePage(r)
	require.NoError(t, err)
	assert.Equal(t, 5, offset)
	assert.Equal(t, maxPageSize, limit)

	r = httptest.NewRequest(http.MethodGet, "/v1/agents", nil)
	_, limit, err = parsePage(r)
	require.NoError(t, err)
	assert.Equal(t, defaultPageSize, limit)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, nil, Config{RateLimit: 0.001, RateBurst: 2})
	for i := 0; i < 2; i++ {
		resp := ts.get("/v1/info")
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := ts.get("/v1/info")
	resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))
}

func TestClientLimiterEvictsIdle(t *testing.T) {
	now := time.Unix(1000, 0)
	cl := newClientLimiter(1, 1)
	cl.now = func() time.Time { return now }

	assert.True(t, cl.allow("10.0.0.1"))
	assert.False(t, cl.allow("10.0.0.1"))
	assert.True(t, cl.allow("10.0.0.2"))

	now = now.Add(clientIdleTime + time.Second)
	cl.allow("10.0.0.3")
	cl.mu.Lock()
	assert.Len(t, cl.clients, 1)
	cl.mu.Unlock()
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(r))
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(r))
}

func TestRequestID(t *testing.T) {
	ts := newTestServer(t, nil, Config{})
	resp := ts.get("/v1/info")
	resp.Body.Close()
	assert.Len(t, resp.Header.Get(requestIDHeader), 36)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/info", nil)
	req.Header.Set(requestIDHeader, "abc")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc", resp.Header.Get(requestIDHeader))
}

func TestCors(t *testing.T) {
	ts := newTestServer(t, nil, Config{Cors: []string{"https://dash.example"}})
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/v1/transactions", nil)
	req.Header.Set("Origin", "https://dash.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "https://dash.example", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Empty(t, resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestEvents(t *testing.T) {
	ts := newTestServer(t, nil, Config{})
	ts.setupMarket()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/events?kinds=ModulePurchased"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ts.api.hub.count() == 1 }, time.Second, 10*time.Millisecond)

	ts.mustSend(buyerKey, &types.InitializeAgent{AgentID: "second"})
	ts.mustSend(buyerKey, &types.PurchaseModule{ModuleID: "m1", BuyerAgentID: "buyer"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg EventMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Len(t, msg.Subscription, 36)
	require.Equal(t, types.ModulePurchasedEvent, msg.Event.Kind)
	payload, err := msg.Event.Payload()
	require.NoError(t, err)
	purchased := payload.(*types.ModulePurchased)
	assert.Equal(t, uint64(100_000_000), purchased.Price)
	assert.Equal(t, creatorAddr, purchased.Creator)

	conn.Close()
	assert.Eventually(t, func() bool { return ts.api.hub.count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestAnalyticsEndpoints(t *testing.T) {
	decodeError(t, newTestServer(t, nil, Config{}).get("/v1/analytics/agents/a1"), http.StatusServiceUnavailable)

	store, err := analytics.OpenStore(":memory:")
	require.NoError(t, err)
	defer store.Close()
	reporter := analytics.NewReporter(store, analytics.DefaultConfig)
	ts := newTestServer(t, reporter, Config{})
	ts.setupMarket()
	ts.mustSend(buyerKey, &types.PurchaseModule{ModuleID: "m1", BuyerAgentID: "buyer"})
	receipt := ts.mustSend(buyerKey, &types.LogDecision{AgentID: "buyer", InputData: "in", LogicData: "logic"})
	ts.mustSend(buyerKey, &types.AttestOutcome{AgentID: "buyer", MemoryLog: receipt.Created[0], OutcomeData: "ok", Success: true, ScoreDelta: 5})

	projector := analytics.NewProjector(store, ts.ledger, ts.ledger.Config().TimestampResolution)
	require.NoError(t, projector.Sync(context.Background()))

	var report analytics.AgentReport
	decode(t, ts.get("/v1/analytics/agents/buyer"), http.StatusOK, &report)
	assert.Equal(t, uint64(1), report.Decisions)
	assert.Equal(t, uint64(1), report.Successes)

	var creator analytics.CreatorReport
	decode(t, ts.get("/v1/analytics/creators/"+creatorAddr.Hex()), http.StatusOK, &creator)
	assert.Equal(t, uint64(1), creator.Sales)
	assert.Equal(t, uint64(95_000_000), creator.CreatorTake)

	decodeError(t, ts.get("/v1/analytics/agents/missing"), http.StatusNotFound)
}
