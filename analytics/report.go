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

package analytics

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Activity counts the decisions an agent logged in recent periods.
type Activity struct {
	Last24h uint64 `json:"last24h"`
	Last7d  uint64 `json:"last7d"`
	Last30d uint64 `json:"last30d"`
}

// AgentReport summarizes the projected performance of an agent.
type AgentReport struct {
	Agent             common.Address `json:"agent"`
	AgentID           string         `json:"agentId"`
	Score             float64        `json:"score"`
	TrustLevel        TrustLevel     `json:"trustLevel"`
	Decisions         uint64         `json:"decisions"`
	Attested          uint64         `json:"attested"`
	Successes         uint64         `json:"successes"`
	Failures          uint64         `json:"failures"`
	SuccessRate       float64        `json:"successRate"`
	WindowSuccessRate float64        `json:"windowSuccessRate"`
	Activity          Activity       `json:"activity"`
}

// CreatorReport summarizes the sales of a module creator.
//
// MonthlyRevenue spreads the total revenue over the 30 day months between the
// first and the last sale, counting at least one month. GrowthRate compares
// the revenue of the last 30 days with the 30 days before, in percent.
type CreatorReport struct {
	Creator        common.Address `json:"creator"`
	Modules        uint64         `json:"modules"`
	Sales          uint64         `json:"sales"`
	TotalRevenue   uint64         `json:"totalRevenue"`
	CreatorTake    uint64         `json:"creatorTake"`
	AverageSale    uint64         `json:"averageSale"`
	MonthlyRevenue uint64         `json:"monthlyRevenue"`
	GrowthRate     float64        `json:"growthRate"`
	FirstSaleAt    *time.Time     `json:"firstSaleAt,omitempty"`
	LastSaleAt     *time.Time     `json:"lastSaleAt,omitempty"`
}

const revenueMonth = 30 * 24 * time.Hour

// Reporter answers analytics queries over a Store.
type Reporter struct {
	store  *Store
	config Config
	now    func() time.Time
}

// NewReporter creates a reporter scoring with the given configuration.
func NewReporter(store *Store, config Config) *Reporter {
	return &Reporter{store: store, config: config, now: time.Now}
}

// AgentReport builds the report of the agent with the given id.
func (r *Reporter) AgentReport(ctx context.Context, agentID string) (*AgentReport, error) {
	agent, err := r.store.agentByID(ctx, agentID)
	if err != nil {
		return nil, err
	}
	now := r.now()
	outcomes, err := r.store.outcomesOf(ctx, agent)
	if err != nil {
		return nil, err
	}
	report := &AgentReport{
		Agent:    agent,
		AgentID:  agentID,
		Score:    r.config.Score(outcomes, now),
		Attested: uint64(len(outcomes)),
	}
	report.TrustLevel = r.config.Level(report.Score)

	var windowSuccesses, windowTotal uint64
	for _, o := range outcomes {
		if o.success {
			report.Successes++
		} else {
			report.Failures++
		}
		if now.Sub(o.at) <= r.config.Window {
			windowTotal++
			if o.success {
				windowSuccesses++
			}
		}
	}
	report.SuccessRate = rate(report.Successes, report.Attested)
	report.WindowSuccessRate = rate(windowSuccesses, windowTotal)

	if report.Decisions, err = r.store.countDecisions(ctx, agent, time.Time{}); err != nil {
		return nil, err
	}
	periods := []struct {
		dst *uint64
		d   time.Duration
	}{
		{&report.Activity.Last24h, 24 * time.Hour},
		{&report.Activity.Last7d, 7 * 24 * time.Hour},
		{&report.Activity.Last30d, 30 * 24 * time.Hour},
	}
	for _, p := range periods {
		if *p.dst, err = r.store.countDecisions(ctx, agent, now.Add(-p.d)); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// CreatorReport builds the sales report of a creator. A creator without
// modules gets an empty report.
func (r *Reporter) CreatorReport(ctx context.Context, creator common.Address) (*CreatorReport, error) {
	modules, err := r.store.countModules(ctx, creator)
	if err != nil {
		return nil, err
	}
	sales, err := r.store.salesOf(ctx, creator)
	if err != nil {
		return nil, err
	}
	report := &CreatorReport{Creator: creator, Modules: modules, Sales: uint64(len(sales))}
	if len(sales) == 0 {
		return report, nil
	}
	var (
		now             = r.now()
		current, before uint64
	)
	for _, s := range sales {
		report.TotalRevenue += s.price
		report.CreatorTake += s.creatorAmount
		switch age := now.Sub(s.at); {
		case age <= revenueMonth:
			current += s.price
		case age <= 2*revenueMonth:
			before += s.price
		}
	}
	first, last := sales[0].at, sales[len(sales)-1].at
	report.FirstSaleAt, report.LastSaleAt = &first, &last
	report.AverageSale = report.TotalRevenue / report.Sales

	months := uint64(last.Sub(first) / revenueMonth)
	if months == 0 {
		months = 1
	}
	report.MonthlyRevenue = report.TotalRevenue / months
	if before > 0 {
		report.GrowthRate = (float64(current) - float64(before)) / float64(before) * 100
	}
	return report, nil
}

func rate(n, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
