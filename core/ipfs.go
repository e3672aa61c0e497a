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

	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ipfs/go-cid"
)

// ValidateIpfsHash checks that hash is an IPFS content identifier in its
// canonical text form: a base58 CIDv0 (Qm...) or a base32 CIDv1 (b...).
// The referenced content is never fetched.
func ValidateIpfsHash(hash string) error {
	if len(hash) > params.MaxIpfsHashLength {
		return ErrIpfsHashTooLong
	}
	var version uint64
	switch {
	case strings.HasPrefix(hash, "Qm"):
		version = 0
	case strings.HasPrefix(hash, "b"):
		version = 1
	default:
		return ErrInvalidIpfsHash
	}
	c, err := cid.Decode(hash)
	if err != nil || c.Version() != version || c.String() != hash {
		return ErrInvalidIpfsHash
	}
	return nil
}
