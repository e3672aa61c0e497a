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
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		err  *LedgerError
		code uint32
		kind ErrorKind
	}{
		{ErrAgentIDTooLong, 6000, KindValidation},
		{ErrInputTooLong, 6001, KindValidation},
		{ErrPriceTooLow, 6007, KindValidation},
		{ErrInvalidIpfsHash, 6008, KindValidation},
		{ErrUnauthorized, 6100, KindAuthorization},
		{ErrAlreadyAttested, 6201, KindConflict},
		{ErrAlreadyPurchased, 6202, KindConflict},
		{ErrModuleInactive, 6303, KindNotFound},
		{ErrInsufficientFunds, 6400, KindFunds},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, tt.err.Code, tt.err.Name)
		assert.Equal(t, tt.kind, tt.err.Kind, tt.err.Name)
		assert.Same(t, tt.err, ErrorByCode(tt.code))
	}
	assert.Nil(t, ErrorByCode(1))
}

func TestErrorClassification(t *testing.T) {
	wrapped := fmt.Errorf("purchase: %w", fmt.Errorf("%w: agent %q", ErrAgentNotFound, "b1"))
	assert.True(t, IsNotFound(wrapped))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, errors.Is(wrapped, ErrAgentNotFound))

	lerr, ok := AsLedgerError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, "AgentNotFound", lerr.Name)

	assert.Equal(t, KindUnknown, KindOf(errors.New("disk on fire")))
	assert.Equal(t, "ConflictError", KindConflict.String())
}
