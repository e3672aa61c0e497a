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
)

// ErrInvalidCategory is returned for module category tags outside the known set.
var ErrInvalidCategory = errors.New("invalid module category")

// ModuleCategory classifies the memory capability a module provides.
type ModuleCategory uint8

const (
	CategoryBiTemporal ModuleCategory = iota
	CategoryProcedural
	CategorySemantic
	CategoryEpisodic
	CategoryCustom

	categoryCount
)

var categoryNames = [categoryCount]string{
	CategoryBiTemporal: "BiTemporal",
	CategoryProcedural: "Procedural",
	CategorySemantic:   "Semantic",
	CategoryEpisodic:   "Episodic",
	CategoryCustom:     "Custom",
}

// Valid reports whether c is one of the known categories.
func (c ModuleCategory) Valid() bool {
	return c < categoryCount
}

func (c ModuleCategory) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return categoryNames[c]
}

// ParseModuleCategory converts a category name, case-insensitively.
func ParseModuleCategory(s string) (ModuleCategory, error) {
	for i, name := range categoryNames {
		if strings.EqualFold(name, s) {
			return ModuleCategory(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// MarshalText implements encoding.TextMarshaler.
func (c ModuleCategory) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ModuleCategory) UnmarshalText(input []byte) error {
	parsed, err := ParseModuleCategory(string(input))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
