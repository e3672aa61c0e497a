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
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"gopkg.in/urfave/cli.v1"
)

var (
	mnemonicFlag = cli.StringFlag{
		Name:  "mnemonic",
		Usage: "Recovery phrase of the key",
	}

	accountCommand = cli.Command{
		Name:     "account",
		Usage:    "Manage signing keys",
		Category: "ACCOUNT COMMANDS",
		Subcommands: []cli.Command{
			{
				Name:      "new",
				Usage:     "Create a new signing key",
				ArgsUsage: "<keyfile>",
				Action:    accountNew,
				Description: `
Creates a new secp256k1 signing key, writes it hex encoded to <keyfile> and
prints its address together with a 24 word recovery phrase.`,
			},
			{
				Name:   "inspect",
				Usage:  "Print the address of a key",
				Action: accountInspect,
				Flags:  []cli.Flag{mnemonicFlag},
				Description: `
Prints the address of the key in --keyfile, or of the key recovered from
--mnemonic. With --mnemonic and a <keyfile> argument the recovered key is
written to the file.`,
				ArgsUsage: "[keyfile]",
			},
		},
	}
)

// keyFromMnemonic derives the signing key of a recovery phrase.
func keyFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, error) {
	mnemonic = strings.Join(strings.Fields(mnemonic), " ")
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, errors.New("invalid recovery phrase")
	}
	seed := bip39.NewSeed(mnemonic, "")
	return crypto.ToECDSA(crypto.Keccak256(seed))
}

func newKeyWithMnemonic() (*ecdsa.PrivateKey, string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return nil, "", err
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, "", err
	}
	key, err := keyFromMnemonic(mnemonic)
	if err != nil {
		return nil, "", err
	}
	return key, mnemonic, nil
}

func accountNew(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("need the key file to write")
	}
	file := ctx.Args().First()
	if _, err := os.Stat(file); err == nil {
		return fmt.Errorf("key file %s already exists", file)
	}
	key, mnemonic, err := newKeyWithMnemonic()
	if err != nil {
		return err
	}
	if err := crypto.SaveECDSA(file, key); err != nil {
		return err
	}
	fmt.Printf("Address:         %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Printf("Key file:        %s\n", file)
	fmt.Printf("Recovery phrase: %s\n", mnemonic)
	fmt.Println("\nWrite the recovery phrase down, it is the only way to restore the key.")
	return nil
}

func accountInspect(ctx *cli.Context) error {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	if phrase := ctx.String(mnemonicFlag.Name); phrase != "" {
		if key, err = keyFromMnemonic(phrase); err != nil {
			return err
		}
		if ctx.NArg() > 0 {
			if err := crypto.SaveECDSA(ctx.Args().First(), key); err != nil {
				return err
			}
		}
	} else {
		key = loadKey(ctx)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	return printResult(ctx, struct {
		Address common.Address `json:"address"`
	}{addr}, func() {
		fmt.Println("Address:", addr.Hex())
	})
}

// loadKey reads the signing key named by --keyfile.
func loadKey(ctx *cli.Context) *ecdsa.PrivateKey {
	file := ctx.GlobalString(keyFileFlag.Name)
	if file == "" {
		Fatalf("No signing key, use --%s", keyFileFlag.Name)
	}
	key, err := crypto.LoadECDSA(file)
	if err != nil {
		Fatalf("Failed to load key: %v", err)
	}
	return key
}
