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
)

func TestValidateIpfsHash(t *testing.T) {
	tests := []struct {
		hash string
		want error
	}{
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", nil},
		{"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi", nil},
		{"bafkreihdwdcefgh4dqkjv67uzcmw7ojee6xedzdetojuzjevtenxquvyku", nil},
		{"", ErrInvalidIpfsHash},
		{"Qm", ErrInvalidIpfsHash},
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbd", ErrInvalidIpfsHash},
		{"QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPb0G", ErrInvalidIpfsHash},
		{"bafy", ErrInvalidIpfsHash},
		{"bafyBEIGDYRZT5SFP7UDM", ErrInvalidIpfsHash},
		{"ipfs://QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG", ErrInvalidIpfsHash},
		{"bafaaaaaaa", ErrInvalidIpfsHash},
		{"bafzzzzzzzzzzzzzzzzzz", ErrInvalidIpfsHash},
		{"bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzd", ErrInvalidIpfsHash},
		{"zdj7WWeQ43G6JJvLWQWZpyHuAMq6uYWRjkBXFad11vE2LHhQ7", ErrInvalidIpfsHash},
		{"bafy" + strings.Repeat("a", 125), ErrIpfsHashTooLong},
	}
	for _, tt := range tests {
		if err := ValidateIpfsHash(tt.hash); err != tt.want {
			t.Errorf("%q: have %v, want %v", tt.hash, err, tt.want)
		}
	}
}
