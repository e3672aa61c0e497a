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
	"strings"
	"testing"
	"time"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCredential = common.HexToHash("0x5a1d")

func TestRegisterIdentity(t *testing.T) {
	tl := newTestLedger(t, nil)
	tl.mustSend(buyerKey, &types.InitializeAgent{AgentID: "a1"})

	now := uint64(testStart.Unix())
	receipt := tl.mustSend(buyerKey, &types.RegisterIdentity{
		AgentID:    "a1",
		Provider:   types.IdentityProvider{Kind: types.ProviderSAID},
		Credential: testCredential,
		ExpiresAt:  now + 3600,
	})
	agentAddr := types.AgentAddress(tl.config.ProgramID, "a1")
	addr := types.IdentityAddress(tl.config.ProgramID, agentAddr)
	assert.Equal(t, []common.Address{addr}, receipt.Created)

	ev, ok := receipt.FindEvent(types.IdentityRegisteredEvent).(*types.IdentityRegistered)
	require.True(t, ok)
	assert.Equal(t, addr, ev.Identity)
	assert.Equal(t, types.ProviderSAID, ev.Provider.Kind)

	identity, err := tl.Identity("a1")
	require.NoError(t, err)
	assert.Equal(t, &types.VerifiedIdentity{
		Agent:      agentAddr,
		Provider:   types.IdentityProvider{Kind: types.ProviderSAID},
		Credential: testCredential,
		VerifiedAt: now,
		ExpiresAt:  now + 3600,
		IsActive:   true,
	}, identity)

	valid, err := tl.IdentityValid("a1")
	require.NoError(t, err)
	assert.True(t, valid)

	// One identity per agent.
	_, err = tl.send(buyerKey, &types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderPubkey}})
	assert.ErrorIs(t, err, ErrAccountAlreadyExists)

	// Expiry is inclusive.
	tl.clock.Advance(time.Hour)
	valid, _ = tl.IdentityValid("a1")
	assert.True(t, valid)
	tl.clock.Advance(time.Second)
	valid, _ = tl.IdentityValid("a1")
	assert.False(t, valid)
}

func TestRegisterIdentityValidation(t *testing.T) {
	tl := newTestLedger(t, nil)
	tl.mustSend(buyerKey, &types.InitializeAgent{AgentID: "a1"})
	now := uint64(testStart.Unix())

	tests := []struct {
		ins  *types.RegisterIdentity
		want error
	}{
		{&types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderSAID}}, ErrInvalidCredential},
		{&types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderCustom, Name: "kyc"}}, ErrInvalidCredential},
		{&types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderCustom}, Credential: testCredential}, ErrInvalidProvider},
		{&types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderCustom, Name: strings.Repeat("n", 33)}, Credential: testCredential}, ErrInvalidProvider},
		{&types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderSAID, Name: "said"}, Credential: testCredential}, ErrInvalidProvider},
		{&types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: 7}, Credential: testCredential}, ErrInvalidProvider},
		{&types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderPubkey}, ExpiresAt: now}, ErrInvalidExpiry},
		{&types.RegisterIdentity{AgentID: "nobody", Provider: types.IdentityProvider{Kind: types.ProviderPubkey}}, ErrAgentNotFound},
	}
	for i, tt := range tests {
		_, err := tl.send(buyerKey, tt.ins)
		assert.ErrorIs(t, err, tt.want, "test %d", i)
	}
	_, err := tl.send(otherKey, &types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderPubkey}})
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = tl.Identity("a1")
	assert.ErrorIs(t, err, ErrIdentityNotFound)
	valid, err := tl.IdentityValid("a1")
	require.NoError(t, err)
	assert.False(t, valid)

	// Pubkey identities need no credential, custom ones need a name.
	tl.mustSend(buyerKey, &types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderPubkey}})
	tl.mustSend(buyerKey, &types.InitializeAgent{AgentID: "a2"})
	tl.mustSend(buyerKey, &types.RegisterIdentity{
		AgentID:    "a2",
		Provider:   types.IdentityProvider{Kind: types.ProviderCustom, Name: strings.Repeat("n", 32)},
		Credential: testCredential,
	})
	identity, err := tl.Identity("a2")
	require.NoError(t, err)
	assert.Equal(t, "Custom("+strings.Repeat("n", 32)+")", identity.Provider.String())
}

func TestRevokeAndRenewIdentity(t *testing.T) {
	tl := newTestLedger(t, nil)
	tl.mustSend(buyerKey, &types.InitializeAgent{AgentID: "a1"})

	_, err := tl.send(buyerKey, &types.RevokeIdentity{AgentID: "a1"})
	assert.ErrorIs(t, err, ErrIdentityNotFound)
	_, err = tl.send(buyerKey, &types.RenewIdentity{AgentID: "a1", Credential: testCredential})
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	tl.mustSend(buyerKey, &types.RegisterIdentity{AgentID: "a1", Provider: types.IdentityProvider{Kind: types.ProviderSAID}, Credential: testCredential})

	_, err = tl.send(otherKey, &types.RevokeIdentity{AgentID: "a1"})
	assert.ErrorIs(t, err, ErrUnauthorized)

	receipt := tl.mustSend(buyerKey, &types.RevokeIdentity{AgentID: "a1"})
	assert.NotNil(t, receipt.FindEvent(types.IdentityRevokedEvent))
	valid, err := tl.IdentityValid("a1")
	require.NoError(t, err)
	assert.False(t, valid)

	_, err = tl.send(buyerKey, &types.RevokeIdentity{AgentID: "a1"})
	assert.ErrorIs(t, err, ErrIdentityInactive)

	// A SAID renewal must carry a credential.
	_, err = tl.send(buyerKey, &types.RenewIdentity{AgentID: "a1"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	tl.clock.Advance(time.Minute)
	now := uint64(testStart.Add(time.Minute).Unix())
	_, err = tl.send(buyerKey, &types.RenewIdentity{AgentID: "a1", Credential: testCredential, ExpiresAt: now - 1})
	assert.ErrorIs(t, err, ErrInvalidExpiry)

	renewed := common.HexToHash("0x5a1e")
	receipt = tl.mustSend(buyerKey, &types.RenewIdentity{AgentID: "a1", Credential: renewed, ExpiresAt: now + 60})
	ev, ok := receipt.FindEvent(types.IdentityRenewedEvent).(*types.IdentityRenewed)
	require.True(t, ok)
	assert.Equal(t, renewed, ev.Credential)
	assert.Empty(t, receipt.Created)

	identity, err := tl.Identity("a1")
	require.NoError(t, err)
	assert.True(t, identity.IsActive)
	assert.Equal(t, renewed, identity.Credential)
	assert.Equal(t, now, identity.VerifiedAt)
	assert.Equal(t, now+60, identity.ExpiresAt)
}
