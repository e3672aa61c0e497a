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
	"io"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
)

var errScoreDeltaRange = errors.New("score delta out of range")

// ScoreDelta is a signed reputation adjustment. RLP has no signed integers,
// so it is encoded as a [negative, magnitude] pair.
type ScoreDelta int64

type scoreDeltaRLP struct {
	Negative  bool
	Magnitude uint64
}

// Split returns the sign and absolute value of d.
func (d ScoreDelta) Split() (negative bool, magnitude uint64) {
	if d < 0 {
		return true, uint64(-(d + 1)) + 1
	}
	return false, uint64(d)
}

// EncodeRLP implements rlp.Encoder.
func (d ScoreDelta) EncodeRLP(w io.Writer) error {
	neg, mag := d.Split()
	return rlp.Encode(w, &scoreDeltaRLP{Negative: neg, Magnitude: mag})
}

// DecodeRLP implements rlp.Decoder.
func (d *ScoreDelta) DecodeRLP(s *rlp.Stream) error {
	var dec scoreDeltaRLP
	if err := s.Decode(&dec); err != nil {
		return err
	}
	switch {
	case !dec.Negative && dec.Magnitude > math.MaxInt64:
		return errScoreDeltaRange
	case dec.Negative && (dec.Magnitude == 0 || dec.Magnitude > 1<<63):
		return errScoreDeltaRange
	case dec.Negative:
		*d = ScoreDelta(-int64(dec.Magnitude-1) - 1)
	default:
		*d = ScoreDelta(dec.Magnitude)
	}
	return nil
}
