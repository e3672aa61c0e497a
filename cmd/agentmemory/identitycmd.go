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

package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/urfave/cli.v1"
)

var (
	providerFlag = cli.StringFlag{
		Name:  "provider",
		Usage: "Identity provider (SAID, Pubkey or Custom:<name>)",
		Value: "SAID",
	}
	credentialFlag = cli.StringFlag{
		Name:  "credential",
		Usage: "32 byte hex credential issued by the provider",
	}
	expiresFlag = cli.Uint64Flag{
		Name:  "expires",
		Usage: "Expiry timestamp in ledger time units (0 never expires)",
	}

	identityCommand = cli.Command{
		Name:     "identity",
		Usage:    "Manage the verified identities of agents",
		Category: "LEDGER COMMANDS",
		Subcommands: []cli.Command{
			{
				Name:      "register",
				Usage:     "Verify an agent with an identity provider",
				ArgsUsage: "<agent-id>",
				Action:    identityRegister,
				Flags:     []cli.Flag{providerFlag, credentialFlag, expiresFlag},
			},
			{
				Name:      "renew",
				Usage:     "Replace the credential of an identity and reactivate it",
				ArgsUsage: "<agent-id>",
				Action:    identityRenew,
				Flags:     []cli.Flag{credentialFlag, expiresFlag},
			},
			{
				Name:      "revoke",
				Usage:     "Deactivate the identity of an agent",
				ArgsUsage: "<agent-id>",
				Action:    identityRevoke,
			},
			{
				Name:      "show",
				Usage:     "Show the identity of an agent",
				ArgsUsage: "<agent-id>",
				Action:    identityShow,
			},
		},
	}
)

// parseProvider reads a provider name, where custom providers are written
// as Custom:<name>.
func parseProvider(s string) (types.IdentityProvider, error) {
	var name string
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s, name = s[:i], s[i+1:]
	}
	kind, err := types.ParseProviderKind(s)
	if err != nil {
		return types.IdentityProvider{}, err
	}
	if (kind == types.ProviderCustom) != (name != "") {
		return types.IdentityProvider{}, fmt.Errorf("provider name is required for Custom providers only")
	}
	return types.IdentityProvider{Kind: kind, Name: name}, nil
}

// parseCredential decodes a hex credential. An empty string is the zero
// credential.
func parseCredential(s string) (common.Hash, error) {
	if s == "" {
		return common.Hash{}, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid credential: %v", err)
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid credential: %d bytes, want %d", len(b), common.HashLength)
	}
	return common.BytesToHash(b), nil
}

func identityRegister(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	provider, err := parseProvider(ctx.String(providerFlag.Name))
	if err != nil {
		return err
	}
	credential, err := parseCredential(ctx.String(credentialFlag.Name))
	if err != nil {
		return err
	}
	r, err := transactor(ctx).RegisterIdentity(context.Background(), a[0], provider, credential, ctx.Uint64(expiresFlag.Name))
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func identityRenew(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	credential, err := parseCredential(ctx.String(credentialFlag.Name))
	if err != nil {
		return err
	}
	r, err := transactor(ctx).RenewIdentity(context.Background(), a[0], credential, ctx.Uint64(expiresFlag.Name))
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func identityRevoke(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	r, err := transactor(ctx).RevokeIdentity(context.Background(), a[0])
	if err != nil {
		return err
	}
	return printReceipt(ctx, r)
}

func identityShow(ctx *cli.Context) error {
	a, err := args(ctx, 1)
	if err != nil {
		return err
	}
	identity, valid, err := dial(ctx).Identity(context.Background(), a[0])
	if err != nil {
		return err
	}
	result := struct {
		*types.VerifiedIdentity
		Valid bool `json:"valid"`
	}{identity, valid}
	return printResult(ctx, result, func() {
		status := failureColor.Sprint("invalid")
		if valid {
			status = successColor.Sprint("valid")
		}
		expires := "never"
		if identity.ExpiresAt != 0 {
			expires = strconv.FormatUint(identity.ExpiresAt, 10)
		}
		printFields("Identity of "+a[0], [][]string{
			{"Agent", identity.Agent.Hex()},
			{"Provider", identity.Provider.String()},
			{"Credential", identity.Credential.Hex()},
			{"Verified", strconv.FormatUint(identity.VerifiedAt, 10)},
			{"Expires", expires},
			{"Status", status},
		})
	})
}
