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

package rawdb

import (
	"testing"

	"github.com/agentmemory/go-agentmemory/core/types"
	"github.com/agentmemory/go-agentmemory/ledgerdb/leveldb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
)

func TestAccountStorage(t *testing.T) {
	db := leveldb.NewMemory()
	defer db.Close()

	addr := common.HexToAddress("0x01")
	if acc := ReadAccount(db, addr); acc != nil {
		t.Fatalf("non existent account returned: %v", acc)
	}
	acc := &types.Account{Kind: types.KindAgent, Data: []byte{0xc0}}
	WriteAccount(db, addr, acc)
	if !HasAccount(db, addr) {
		t.Fatalf("stored account not found")
	}
	if diff := cmp.Diff(acc, ReadAccount(db, addr)); diff != "" {
		t.Fatalf("account mismatch (-want +got):\n%s", diff)
	}

	WriteAccount(db, common.HexToAddress("0x02"), &types.Account{Balance: 5})
	var seen []common.Address
	if err := IterateAccounts(db, func(addr common.Address, blob []byte) bool {
		seen = append(seen, addr)
		return true
	}); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[0] != addr {
		t.Fatalf("unexpected iteration result: %v", seen)
	}
}

func TestHeadAndProgramStorage(t *testing.T) {
	db := leveldb.NewMemory()
	defer db.Close()

	if ReadHead(db) != nil || ReadProgramID(db) != nil {
		t.Fatalf("fresh database has a head")
	}
	head := &types.Head{Slot: 4, Timestamp: 1700000000, TxHash: common.HexToHash("0xaa")}
	WriteHead(db, head)
	WriteProgramID(db, common.HexToAddress("0x77"))

	if diff := cmp.Diff(head, ReadHead(db)); diff != "" {
		t.Fatalf("head mismatch (-want +got):\n%s", diff)
	}
	if p := ReadProgramID(db); p == nil || *p != common.HexToAddress("0x77") {
		t.Fatalf("program id mismatch: %v", p)
	}
}

func TestReceiptStorage(t *testing.T) {
	db := leveldb.NewMemory()
	defer db.Close()

	ev, err := types.NewEvent(&types.AgentInitialized{AgentID: "a1"})
	if err != nil {
		t.Fatal(err)
	}
	receipt := &types.Receipt{
		TxHash:    common.HexToHash("0x1234"),
		Kind:      types.InitializeAgentKind,
		Slot:      2,
		Timestamp: 1700000000,
		Created:   []common.Address{common.HexToAddress("0x99")},
		Events:    []*types.Event{ev},
	}
	WriteReceipt(db, receipt)
	WriteSlotTxHash(db, 2, receipt.TxHash)

	stored := ReadReceipt(db, receipt.TxHash)
	if stored == nil {
		t.Fatalf("receipt not found")
	}
	if stored.Events[0].Slot != 2 || stored.Events[0].TxHash != receipt.TxHash {
		t.Fatalf("derived fields not set: %+v", stored.Events[0])
	}
	if ReadSlotTxHash(db, 2) != receipt.TxHash {
		t.Fatalf("slot index mismatch")
	}
	if ReadReceipt(db, common.Hash{}) != nil {
		t.Fatalf("missing receipt returned")
	}
}

func TestIndexes(t *testing.T) {
	db := leveldb.NewMemory()
	defer db.Close()

	var agents []common.Address
	for i := byte(1); i <= 5; i++ {
		addr := common.BytesToAddress([]byte{0xff - i})
		agents = append(agents, addr)
		WriteKindIndex(db, types.KindAgent, uint64(i), addr)
	}
	WriteKindIndex(db, types.KindModule, 1, common.HexToAddress("0x01"))

	if diff := cmp.Diff(agents, ReadKindIndex(db, types.KindAgent, 0, 0)); diff != "" {
		t.Fatalf("agent index mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(agents[1:3], ReadKindIndex(db, types.KindAgent, 1, 2)); diff != "" {
		t.Fatalf("paged index mismatch (-want +got):\n%s", diff)
	}

	agent := agents[0]
	logs := []common.Address{common.HexToAddress("0x10"), common.HexToAddress("0x11")}
	WriteAgentLog(db, agent, 0, logs[0])
	WriteAgentLog(db, agent, 1, logs[1])
	WriteAgentLog(db, agents[1], 0, common.HexToAddress("0x12"))
	if diff := cmp.Diff(logs, ReadAgentLogs(db, agent, 0, 0)); diff != "" {
		t.Fatalf("log index mismatch (-want +got):\n%s", diff)
	}

	WritePurchaseIndex(db, agent, common.HexToAddress("0x20"), common.HexToAddress("0x30"))
	if got := ReadPurchases(db, agent); len(got) != 1 || got[0] != common.HexToAddress("0x30") {
		t.Fatalf("purchase index mismatch: %v", got)
	}
}
