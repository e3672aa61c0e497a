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

// Package analytics maintains an off-ledger projection of agent activity and
// module sales in SQLite. The ledger never consults it.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Config holds the weighting parameters of the projected reputation score.
type Config struct {
	SuccessWeight float64 // Score impact of a successful outcome
	FailureWeight float64 // Score impact of a failed outcome, usually negative
	DecayRate     float64 // Daily retention factor for outcomes older than Window
	AgeWeight     float64 // Exponential age penalty for outcomes inside Window
	Ceiling       float64 // Upper bound of the score
	Window        time.Duration
}

// DefaultConfig contains the default weighting parameters.
var DefaultConfig = Config{
	SuccessWeight: 10,
	FailureWeight: -5,
	DecayRate:     0.95,
	AgeWeight:     0.1,
	Ceiling:       100,
	Window:        30 * 24 * time.Hour,
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch {
	case c.DecayRate <= 0 || c.DecayRate > 1:
		return fmt.Errorf("decay rate %v out of range (0, 1]", c.DecayRate)
	case c.AgeWeight < 0:
		return errors.New("age weight must not be negative")
	case c.Ceiling <= 0:
		return errors.New("score ceiling must be positive")
	case c.Window <= 0:
		return errors.New("window must be positive")
	}
	return nil
}

// TrustLevel buckets a score relative to the ceiling.
type TrustLevel string

const (
	TrustExceptional TrustLevel = "exceptional"
	TrustHigh        TrustLevel = "high"
	TrustMedium      TrustLevel = "medium"
	TrustLow         TrustLevel = "low"
	TrustUntrusted   TrustLevel = "untrusted"
)

// Level returns the trust level of score.
func (c *Config) Level(score float64) TrustLevel {
	switch ratio := score / c.Ceiling; {
	case ratio >= 0.9:
		return TrustExceptional
	case ratio >= 0.75:
		return TrustHigh
	case ratio >= 0.5:
		return TrustMedium
	case ratio >= 0.25:
		return TrustLow
	default:
		return TrustUntrusted
	}
}

// outcome is an attested decision as seen by the scoring function.
type outcome struct {
	success bool
	at      time.Time
}

// Score computes the decayed reputation of a series of outcomes as of now.
// Outcomes inside the window lose weight exponentially with age; older ones
// retain DecayRate of their weight per day. The result is clamped to
// [0, Ceiling].
func (c *Config) Score(outcomes []outcome, now time.Time) float64 {
	var score float64
	for _, o := range outcomes {
		impact := c.FailureWeight
		if o.success {
			impact = c.SuccessWeight
		}
		age := now.Sub(o.at)
		if age < 0 {
			age = 0
		}
		days := age.Hours() / 24
		if age <= c.Window {
			score += impact * math.Exp(-c.AgeWeight*days)
		} else {
			score += impact * math.Pow(c.DecayRate, days)
		}
	}
	return math.Max(0, math.Min(c.Ceiling, score))
}
