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
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ErrInvalidSig is returned for malformed or unrecoverable signatures.
var ErrInvalidSig = errors.New("invalid transaction signature")

// Transaction is a signed ledger instruction.
type Transaction struct {
	inner txdata

	// caches
	hash atomic.Value
	from atomic.Value
}

// txdata is the consensus encoding of a transaction.
type txdata struct {
	Nonce   uint64
	Kind    InstructionKind
	Payload []byte
	Sig     []byte
}

// sigCache is used to cache the derived sender and contains
// the program namespace used to derive it.
type sigCache struct {
	program common.Address
	from    common.Address
}

// NewTransaction creates an unsigned transaction carrying the instruction.
func NewTransaction(nonce uint64, ins Instruction) (*Transaction, error) {
	payload, err := rlp.EncodeToBytes(ins)
	if err != nil {
		return nil, err
	}
	return &Transaction{inner: txdata{
		Nonce:   nonce,
		Kind:    ins.Kind(),
		Payload: payload,
	}}, nil
}

// EncodeRLP implements rlp.Encoder
func (tx *Transaction) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, &tx.inner)
}

// DecodeRLP implements rlp.Decoder
func (tx *Transaction) DecodeRLP(s *rlp.Stream) error {
	var inner txdata
	if err := s.Decode(&inner); err != nil {
		return err
	}
	tx.inner = inner
	return nil
}

// MarshalBinary returns the canonical encoding of the transaction.
func (tx *Transaction) MarshalBinary() ([]byte, error) {
	return rlp.EncodeToBytes(tx)
}

// UnmarshalBinary decodes the canonical encoding of transactions.
func (tx *Transaction) UnmarshalBinary(b []byte) error {
	return rlp.DecodeBytes(b, tx)
}

// Nonce returns the sender account nonce of the transaction.
func (tx *Transaction) Nonce() uint64 { return tx.inner.Nonce }

// Kind returns the instruction kind of the transaction.
func (tx *Transaction) Kind() InstructionKind { return tx.inner.Kind }

// Payload returns the encoded instruction arguments.
func (tx *Transaction) Payload() []byte { return common.CopyBytes(tx.inner.Payload) }

// Signature returns the [R || S || V] signature, or nil if unsigned.
func (tx *Transaction) Signature() []byte { return common.CopyBytes(tx.inner.Sig) }

// Instruction decodes the instruction carried by the transaction.
func (tx *Transaction) Instruction() (Instruction, error) {
	return DecodeInstruction(tx.inner.Kind, tx.inner.Payload)
}

// Hash returns the transaction hash.
func (tx *Transaction) Hash() common.Hash {
	if hash := tx.hash.Load(); hash != nil {
		return hash.(common.Hash)
	}
	h := rlpHash(&tx.inner)
	tx.hash.Store(h)
	return h
}

// SigHash returns the digest signed by the sender. The program id is part of
// the digest, so a transaction is only valid for one ledger deployment.
func (tx *Transaction) SigHash(program common.Address) common.Hash {
	return rlpHash([]interface{}{
		program,
		tx.inner.Nonce,
		tx.inner.Kind,
		tx.inner.Payload,
	})
}

// WithSignature returns a new transaction with the given signature.
func (tx *Transaction) WithSignature(sig []byte) (*Transaction, error) {
	if len(sig) != crypto.SignatureLength {
		return nil, fmt.Errorf("%w: have %d bytes, want %d", ErrInvalidSig, len(sig), crypto.SignatureLength)
	}
	cpy := &Transaction{inner: txdata{
		Nonce:   tx.inner.Nonce,
		Kind:    tx.inner.Kind,
		Payload: common.CopyBytes(tx.inner.Payload),
		Sig:     common.CopyBytes(sig),
	}}
	return cpy, nil
}

// SignTx signs the transaction for the given program using the private key.
func SignTx(tx *Transaction, program common.Address, prv *ecdsa.PrivateKey) (*Transaction, error) {
	h := tx.SigHash(program)
	sig, err := crypto.Sign(h[:], prv)
	if err != nil {
		return nil, err
	}
	return tx.WithSignature(sig)
}

// SignNewTx creates a transaction and signs it.
func SignNewTx(program common.Address, prv *ecdsa.PrivateKey, nonce uint64, ins Instruction) (*Transaction, error) {
	tx, err := NewTransaction(nonce, ins)
	if err != nil {
		return nil, err
	}
	return SignTx(tx, program, prv)
}

// Sender returns the identity that signed the transaction.
//
// Sender may cache the address, allowing it to be used regardless of
// signing method. The cache is invalidated if the cached program id does
// not match the one used in the current call.
func Sender(program common.Address, tx *Transaction) (common.Address, error) {
	if sc := tx.from.Load(); sc != nil {
		sigCache := sc.(sigCache)
		if sigCache.program == program {
			return sigCache.from, nil
		}
	}
	if !validSignature(tx.inner.Sig) {
		return common.Address{}, ErrInvalidSig
	}
	h := tx.SigHash(program)
	pub, err := crypto.SigToPub(h[:], tx.inner.Sig)
	if err != nil {
		return common.Address{}, ErrInvalidSig
	}
	addr := crypto.PubkeyToAddress(*pub)
	tx.from.Store(sigCache{program: program, from: addr})
	return addr, nil
}

// validSignature reports whether sig is a well formed [R || S || V]
// signature with a low s value.
func validSignature(sig []byte) bool {
	if len(sig) != crypto.SignatureLength {
		return false
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	return crypto.ValidateSignatureValues(sig[crypto.RecoveryIDOffset], r, s, true)
}

func rlpHash(x interface{}) (h common.Hash) {
	sha := crypto.NewKeccakState()
	sha.Reset()
	rlp.Encode(sha, x)
	sha.Read(h[:])
	return h
}
