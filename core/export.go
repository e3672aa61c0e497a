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
	"io"

	"github.com/agentmemory/go-agentmemory/core/rawdb"
	"github.com/agentmemory/go-agentmemory/ledgerdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"
)

// exportEntry is a single key-value pair of an export stream.
type exportEntry struct {
	Key, Val []byte
}

// Export writes every key-value pair of db to w as a snappy compressed stream
// of RLP encoded entries. The iterator reads from a consistent snapshot, so
// the ledger may keep committing while an export runs.
func Export(db ledgerdb.Iteratee, w io.Writer) (int, error) {
	sw := snappy.NewBufferedWriter(w)
	it := db.NewIterator(nil, nil)
	defer it.Release()

	var count int
	for it.Next() {
		if err := rlp.Encode(sw, &exportEntry{Key: it.Key(), Val: it.Value()}); err != nil {
			return count, err
		}
		count++
	}
	if err := it.Error(); err != nil {
		return count, err
	}
	if err := sw.Close(); err != nil {
		return count, err
	}
	log.Info("Exported ledger database", "entries", count)
	return count, nil
}

// Import loads a stream produced by Export into an empty database. The entries
// are written in a single batch, so a failed import leaves the database empty.
func Import(db ledgerdb.KeyValueStore, r io.Reader) (int, error) {
	if rawdb.ReadProgramID(db) != nil {
		return 0, errors.New("import target database is not empty")
	}
	var (
		stream = rlp.NewStream(snappy.NewReader(r), 0)
		batch  = db.NewBatch()
		count  int
	)
	for {
		var entry exportEntry
		err := stream.Decode(&entry)
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("entry %d: %w", count, err)
		}
		if err := batch.Put(entry.Key, entry.Val); err != nil {
			return count, err
		}
		count++
	}
	if err := batch.Write(); err != nil {
		return count, err
	}
	log.Info("Imported ledger database", "entries", count)
	return count, nil
}
