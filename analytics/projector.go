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
	"fmt"
	"time"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/params"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
)

// receiptChanSize is the size of the channel listening to committed receipts.
const receiptChanSize = 256

// Source is the ledger the projection follows.
type Source interface {
	Head() *types.Head
	ReceiptBySlot(slot uint64) (*types.Receipt, error)
	SubscribeReceipts(ch chan<- *types.Receipt) event.Subscription
}

// Projector keeps a Store in sync with a ledger.
type Projector struct {
	store      *Store
	source     Source
	resolution params.TimestampResolution
}

// NewProjector creates a projector feeding store from source. The resolution
// must match the ledger's timestamp resolution.
func NewProjector(store *Store, source Source, resolution params.TimestampResolution) *Projector {
	return &Projector{store: store, source: source, resolution: resolution}
}

// Sync applies every committed slot the store has not seen yet.
func (p *Projector) Sync(ctx context.Context) error {
	progress, err := p.store.Progress(ctx)
	if err != nil {
		return err
	}
	head := p.source.Head().Slot
	for slot := progress + 1; slot <= head; slot++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		receipt, err := p.source.ReceiptBySlot(slot)
		if err != nil {
			return fmt.Errorf("slot %d: %w", slot, err)
		}
		if err := p.Apply(ctx, receipt); err != nil {
			return err
		}
	}
	if head > progress {
		log.Info("Analytics projection synced", "from", progress+1, "to", head)
	}
	return nil
}

// Run follows the ledger until ctx is cancelled or the subscription fails.
func (p *Projector) Run(ctx context.Context) error {
	ch := make(chan *types.Receipt, receiptChanSize)
	sub := p.source.SubscribeReceipts(ch)
	defer sub.Unsubscribe()

	// Subscribe before syncing so no slot falls between the two.
	if err := p.Sync(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	for {
		select {
		case receipt := <-ch:
			progress, err := p.store.Progress(ctx)
			if err != nil {
				return err
			}
			if receipt.Slot > progress+1 {
				if err := p.Sync(ctx); err != nil {
					return err
				}
				continue
			}
			if err := p.Apply(ctx, receipt); err != nil {
				return err
			}
		case err := <-sub.Err():
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

// Apply projects a single receipt. Receipts must be applied in slot order.
func (p *Projector) Apply(ctx context.Context, receipt *types.Receipt) error {
	at := p.timeOf(receipt.Timestamp)
	u := &update{slot: receipt.Slot}
	for _, ev := range receipt.Events {
		payload, err := ev.Payload()
		if err != nil {
			return err
		}
		switch e := payload.(type) {
		case *types.AgentInitialized:
			u.agents = append(u.agents, agentRow{address: e.Agent, agentID: e.AgentID, authority: e.Authority, createdAt: at})
		case *types.DecisionLogged:
			u.decisions = append(u.decisions, decisionRow{memoryLog: e.MemoryLog, agent: e.Agent, sequence: e.Sequence, loggedAt: at})
		case *types.OutcomeAttested:
			u.outcomes = append(u.outcomes, outcomeRow{memoryLog: e.MemoryLog, agent: e.Agent, success: e.Success, scoreDelta: int64(e.ScoreDelta), attestedAt: at})
		case *types.ModuleRegistered:
			u.modules = append(u.modules, moduleRow{address: e.Module, moduleID: e.ModuleID, creator: e.Creator, registeredAt: at})
		case *types.ModulePurchased:
			u.sales = append(u.sales, saleRow{
				purchase:      e.Purchase,
				module:        e.Module,
				creator:       e.Creator,
				agent:         e.Agent,
				price:         e.Price,
				creatorAmount: e.CreatorAmount,
				soldAt:        at,
			})
		}
	}
	if err := p.store.apply(ctx, u); err != nil {
		return fmt.Errorf("project slot %d: %w", receipt.Slot, err)
	}
	return nil
}

func (p *Projector) timeOf(timestamp uint64) time.Time {
	if p.resolution == params.Milliseconds {
		return time.UnixMilli(int64(timestamp))
	}
	return time.Unix(int64(timestamp), 0)
}
