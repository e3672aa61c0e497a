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

// registerIdentity verifies an agent of the signer with an identity provider.
func (env *execEnv) registerIdentity(ins *types.RegisterIdentity) error {
	if err := validateProvider(ins.Provider); err != nil {
		return err
	}
	if err := validateCredential(ins.Provider.Kind, ins.Credential); err != nil {
		return err
	}
	if err := env.validateExpiry(ins.ExpiresAt); err != nil {
		return err
	}
	agentAddr, _, err := env.loadOwnedAgent(ins.AgentID)
	if err != nil {
		return err
	}
	addr := types.IdentityAddress(env.config.ProgramID, agentAddr)
	identity := &types.VerifiedIdentity{
		Agent:      agentAddr,
		Provider:   ins.Provider,
		Credential: ins.Credential,
		VerifiedAt: env.timestamp,
		ExpiresAt:  ins.ExpiresAt,
		IsActive:   true,
	}
	if err := env.create(addr, types.KindIdentity, identity, ErrAccountAlreadyExists); err != nil {
		return err
	}
	return env.emit(&types.IdentityRegistered{
		Identity:   addr,
		Agent:      agentAddr,
		AgentID:    ins.AgentID,
		Provider:   ins.Provider,
		Credential: ins.Credential,
		ExpiresAt:  ins.ExpiresAt,
	})
}

// revokeIdentity deactivates the identity of an agent of the signer.
func (env *execEnv) revokeIdentity(ins *types.RevokeIdentity) error {
	agentAddr, addr, identity, err := env.loadIdentity(ins.AgentID)
	if err != nil {
		return err
	}
	if !identity.IsActive {
		return fmt.Errorf("%w: agent %q", ErrIdentityInactive, ins.AgentID)
	}
	identity.IsActive = false
	if err := env.state.UpdateAccount(addr, identity); err != nil {
		return err
	}
	return env.emit(&types.IdentityRevoked{Identity: addr, Agent: agentAddr, AgentID: ins.AgentID})
}

// renewIdentity replaces the credential and expiry of an identity and
// reactivates it. Revoked identities can be renewed.
func (env *execEnv) renewIdentity(ins *types.RenewIdentity) error {
	if err := env.validateExpiry(ins.ExpiresAt); err != nil {
		return err
	}
	agentAddr, addr, identity, err := env.loadIdentity(ins.AgentID)
	if err != nil {
		return err
	}
	if err := validateCredential(identity.Provider.Kind, ins.Credential); err != nil {
		return err
	}
	identity.Credential = ins.Credential
	identity.ExpiresAt = ins.ExpiresAt
	identity.VerifiedAt = env.timestamp
	identity.IsActive = true
	if err := env.state.UpdateAccount(addr, identity); err != nil {
		return err
	}
	return env.emit(&types.IdentityRenewed{
		Identity:   addr,
		Agent:      agentAddr,
		AgentID:    ins.AgentID,
		Credential: ins.Credential,
		ExpiresAt:  ins.ExpiresAt,
	})
}

// loadOwnedAgent retrieves an agent whose authority is the signer.
func (env *execEnv) loadOwnedAgent(agentID string) (common.Address, *types.AgentAccount, error) {
	addr, agent, err := env.loadAgent(agentID)
	if err != nil {
		return addr, nil, err
	}
	if agent.Authority != env.signer {
		return addr, nil, fmt.Errorf("%w: agent %q", ErrUnauthorized, agentID)
	}
	return addr, agent, nil
}

// loadIdentity retrieves the identity of an agent of the signer.
func (env *execEnv) loadIdentity(agentID string) (agentAddr, addr common.Address, identity *types.VerifiedIdentity, err error) {
	agentAddr, _, err = env.loadOwnedAgent(agentID)
	if err != nil {
		return
	}
	addr = types.IdentityAddress(env.config.ProgramID, agentAddr)
	identity = new(types.VerifiedIdentity)
	if !env.state.GetAccount(addr, types.KindIdentity, identity) {
		return agentAddr, addr, nil, fmt.Errorf("%w: agent %q", ErrIdentityNotFound, agentID)
	}
	return agentAddr, addr, identity, nil
}

func (env *execEnv) validateExpiry(expiresAt uint64) error {
	if expiresAt != 0 && expiresAt <= env.timestamp {
		return fmt.Errorf("%w: %d not after %d", ErrInvalidExpiry, expiresAt, env.timestamp)
	}
	return nil
}

func validateProvider(p types.IdentityProvider) error {
	switch {
	case !p.Kind.Valid():
		return fmt.Errorf("%w: %v", ErrInvalidProvider, p.Kind)
	case p.Kind != types.ProviderCustom && p.Name != "":
		return fmt.Errorf("%w: %v takes no name", ErrInvalidProvider, p.Kind)
	case p.Kind == types.ProviderCustom && (len(p.Name) == 0 || len(p.Name) > params.MaxProviderNameLength):
		return fmt.Errorf("%w: custom provider name of %d bytes", ErrInvalidProvider, len(p.Name))
	}
	return nil
}

// validateCredential checks a credential against its provider. Pubkey
// identities carry no credential to check.
func validateCredential(kind types.ProviderKind, credential common.Hash) error {
	if kind != types.ProviderPubkey && credential == (common.Hash{}) {
		return fmt.Errorf("%w: empty %v credential", ErrInvalidCredential, kind)
	}
	return nil
}
