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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agentmemory/go-agentmemory/analytics"
	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/go-cmp/cmp"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
		fail bool
	}{
		{in: "100000000", want: 100_000_000},
		{in: "1sol", want: params.Sol},
		{in: "0.1 SOL", want: 100_000_000},
		{in: "2.000000001sol", want: 2*params.Sol + 1},
		{in: "0.0000000001sol", fail: true},
		{in: "18446744074sol", fail: true},
		{in: "-1", fail: true},
		{in: "abc", fail: true},
	}
	for _, tt := range tests {
		got, err := parseAmount(tt.in)
		if tt.fail {
			if err == nil {
				t.Errorf("%q: expected error, got %d", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.in, err)
		} else if got != tt.want {
			t.Errorf("%q: got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		in   string
		want types.IdentityProvider
		fail bool
	}{
		{in: "SAID", want: types.IdentityProvider{Kind: types.ProviderSAID}},
		{in: "pubkey", want: types.IdentityProvider{Kind: types.ProviderPubkey}},
		{in: "Custom:kyc", want: types.IdentityProvider{Kind: types.ProviderCustom, Name: "kyc"}},
		{in: "Custom", fail: true},
		{in: "SAID:x", fail: true},
		{in: "oauth", fail: true},
	}
	for _, tt := range tests {
		got, err := parseProvider(tt.in)
		if tt.fail {
			if err == nil {
				t.Errorf("%q: expected error, got %v", tt.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.in, err)
		} else if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseCredential(t *testing.T) {
	h, err := parseCredential("")
	if err != nil || h != (common.Hash{}) {
		t.Fatalf("empty credential: %v %v", h, err)
	}
	want := common.HexToHash("0x01")
	if h, err = parseCredential(want.Hex()); err != nil || h != want {
		t.Fatalf("got %v %v, want %v", h, err, want)
	}
	for _, in := range []string{"0x01", "01", "0xzz"} {
		if _, err := parseCredential(in); err == nil {
			t.Errorf("%q: expected error", in)
		}
	}
}

func TestFormatSol(t *testing.T) {
	for lamports, want := range map[uint64]string{
		0:                  "0 SOL",
		params.Sol:         "1 SOL",
		100_000_000:        "0.1 SOL",
		3*params.Sol + 250: "3.00000025 SOL",
	} {
		if got := formatSol(lamports); got != want {
			t.Errorf("formatSol(%d) = %q, want %q", lamports, got, want)
		}
	}
}

func TestKeyFromMnemonic(t *testing.T) {
	key, mnemonic, err := newKeyWithMnemonic()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(strings.Fields(mnemonic)); n != 24 {
		t.Fatalf("mnemonic has %d words, want 24", n)
	}
	// Extra whitespace must not change the recovered key.
	recovered, err := keyFromMnemonic("  " + strings.ReplaceAll(mnemonic, " ", "\n  "))
	if err != nil {
		t.Fatal(err)
	}
	if crypto.PubkeyToAddress(key.PublicKey) != crypto.PubkeyToAddress(recovered.PublicKey) {
		t.Fatal("recovered key does not match")
	}
	if _, err := keyFromMnemonic("not a valid phrase"); err == nil {
		t.Fatal("expected error for invalid phrase")
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := agentmemoryConfig{
		Ledger:    params.DefaultLedgerConfig,
		Node:      defaultNodeConfig(),
		Analytics: analytics.DefaultConfig,
	}
	cfg.Ledger.BootstrapAuthority = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	cfg.Ledger.Genesis = []params.GenesisAccount{{Address: common.HexToAddress("0x01"), Balance: params.Sol}}
	cfg.Node.HTTPCors = []string{"https://dash.example"}

	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, out, 0600); err != nil {
		t.Fatal(err)
	}
	var loaded agentmemoryConfig
	if err := loadConfig(file, &loaded); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigUnknownField(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(file, []byte("[Node]\nHTTPPortt = 1\n"), 0600); err != nil {
		t.Fatal(err)
	}
	var cfg agentmemoryConfig
	err := loadConfig(file, &cfg)
	if err == nil || !strings.Contains(err.Error(), "HTTPPortt") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestSetupLogging(t *testing.T) {
	if err := setupLogging(6, os.Stderr); err == nil {
		t.Fatal("expected error for verbosity 6")
	}
	if err := setupLogging(3, os.Stderr); err != nil {
		t.Fatal(err)
	}
}

func TestSplitAndTrim(t *testing.T) {
	got := splitAndTrim(" a, ,b ,c")
	if !cmp.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("got %q", got)
	}
	if got := splitAndTrim(""); got != nil {
		t.Fatalf("got %q, want nil", got)
	}
}
