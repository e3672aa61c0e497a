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

package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInvalidProvider is returned for identity provider tags outside the known set.
var ErrInvalidProvider = errors.New("invalid identity provider")

// ProviderKind is the closed set of identity providers an agent can verify with.
type ProviderKind uint8

const (
	// ProviderSAID verifies against the Solana Agent Identity registry.
	ProviderSAID ProviderKind = iota
	// ProviderPubkey binds the identity to the agent key alone.
	ProviderPubkey
	// ProviderCustom names an external provider.
	ProviderCustom

	providerCount
)

var providerNames = [providerCount]string{
	ProviderSAID:   "SAID",
	ProviderPubkey: "Pubkey",
	ProviderCustom: "Custom",
}

// Valid reports whether k is one of the known providers.
func (k ProviderKind) Valid() bool {
	return k < providerCount
}

func (k ProviderKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("provider(%d)", uint8(k))
	}
	return providerNames[k]
}

// ParseProviderKind converts a provider name, case-insensitively.
func ParseProviderKind(s string) (ProviderKind, error) {
	for i, name := range providerNames {
		if strings.EqualFold(name, s) {
			return ProviderKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidProvider, s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ProviderKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidProvider, uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ProviderKind) UnmarshalText(input []byte) error {
	parsed, err := ParseProviderKind(string(input))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// IdentityProvider is a provider variant. Name is only set for ProviderCustom.
type IdentityProvider struct {
	Kind ProviderKind `json:"kind"`
	Name string       `json:"name,omitempty"`
}

func (p IdentityProvider) String() string {
	if p.Kind == ProviderCustom {
		return fmt.Sprintf("Custom(%s)", p.Name)
	}
	return p.Kind.String()
}

// VerifiedIdentity binds an agent to a credential issued by an identity
// provider. An ExpiresAt of zero never expires.
type VerifiedIdentity struct {
	Agent      common.Address   `json:"agent"`
	Provider   IdentityProvider `json:"provider"`
	Credential common.Hash      `json:"credential"`
	VerifiedAt uint64           `json:"verifiedAt"`
	ExpiresAt  uint64           `json:"expiresAt"`
	IsActive   bool             `json:"isActive"`
}

// IsValid reports whether the identity is active and unexpired at now.
func (id *VerifiedIdentity) IsValid(now uint64) bool {
	if !id.IsActive {
		return false
	}
	return id.ExpiresAt == 0 || now <= id.ExpiresAt
}
