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
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"
)

// ErrAgentNotFound is returned for agents the projection has not seen.
var ErrAgentNotFound = errors.New("agent not found in projection")

const schema = `
CREATE TABLE IF NOT EXISTS progress (
    id INTEGER PRIMARY KEY CHECK (id = 0),
    slot INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS agents (
    address TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL UNIQUE,
    authority TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
    memory_log TEXT PRIMARY KEY,
    agent TEXT NOT NULL,
    sequence INTEGER NOT NULL,
    logged_at INTEGER NOT NULL,
    FOREIGN KEY (agent) REFERENCES agents(address)
);
CREATE INDEX IF NOT EXISTS decisions_agent ON decisions(agent, logged_at);

CREATE TABLE IF NOT EXISTS outcomes (
    memory_log TEXT PRIMARY KEY,
    agent TEXT NOT NULL,
    success INTEGER NOT NULL,
    score_delta INTEGER NOT NULL,
    attested_at INTEGER NOT NULL,
    FOREIGN KEY (memory_log) REFERENCES decisions(memory_log)
);
CREATE INDEX IF NOT EXISTS outcomes_agent ON outcomes(agent, attested_at);

CREATE TABLE IF NOT EXISTS modules (
    address TEXT PRIMARY KEY,
    module_id TEXT NOT NULL UNIQUE,
    creator TEXT NOT NULL,
    registered_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS modules_creator ON modules(creator);

CREATE TABLE IF NOT EXISTS sales (
    purchase TEXT PRIMARY KEY,
    module TEXT NOT NULL,
    creator TEXT NOT NULL,
    agent TEXT NOT NULL,
    price INTEGER NOT NULL,
    creator_amount INTEGER NOT NULL,
    sold_at INTEGER NOT NULL,
    FOREIGN KEY (module) REFERENCES modules(address)
);
CREATE INDEX IF NOT EXISTS sales_creator ON sales(creator, sold_at);
`

// Store is the SQLite database backing the projection.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the projection database at path. The special
// path ":memory:" creates a private in-memory database.
func OpenStore(path string) (*Store, error) {
	dsn := "file::memory:?_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open analytics db: %w", err)
	}
	// A single connection serializes writers and keeps an in-memory
	// database alive.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping analytics db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate analytics db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Progress returns the last ledger slot applied to the projection.
func (s *Store) Progress(ctx context.Context) (uint64, error) {
	var slot int64
	err := s.db.QueryRowContext(ctx, `SELECT slot FROM progress WHERE id = 0`).Scan(&slot)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return uint64(slot), err
}

// update is the projection of a single ledger slot.
type update struct {
	slot      uint64
	agents    []agentRow
	decisions []decisionRow
	outcomes  []outcomeRow
	modules   []moduleRow
	sales     []saleRow
}

type agentRow struct {
	address   common.Address
	agentID   string
	authority common.Address
	createdAt time.Time
}

type decisionRow struct {
	memoryLog, agent common.Address
	sequence         uint64
	loggedAt         time.Time
}

type outcomeRow struct {
	memoryLog, agent common.Address
	success          bool
	scoreDelta       int64
	attestedAt       time.Time
}

type moduleRow struct {
	address      common.Address
	moduleID     string
	creator      common.Address
	registeredAt time.Time
}

type saleRow struct {
	purchase, module, creator, agent common.Address
	price, creatorAmount             uint64
	soldAt                           time.Time
}

// apply writes an update in one transaction. Slots at or below the current
// progress are skipped, so replaying a receipt is harmless.
func (s *Store) apply(ctx context.Context, u *update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var progress int64
	err = tx.QueryRowContext(ctx, `SELECT slot FROM progress WHERE id = 0`).Scan(&progress)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	if u.slot <= uint64(progress) {
		return nil
	}
	for _, a := range u.agents {
		if _, err := tx.ExecContext(ctx, `INSERT INTO agents (address, agent_id, authority, created_at) VALUES (?, ?, ?, ?)`,
			hexOf(a.address), a.agentID, hexOf(a.authority), a.createdAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert agent %s: %w", a.agentID, err)
		}
	}
	for _, d := range u.decisions {
		if _, err := tx.ExecContext(ctx, `INSERT INTO decisions (memory_log, agent, sequence, logged_at) VALUES (?, ?, ?, ?)`,
			hexOf(d.memoryLog), hexOf(d.agent), int64(d.sequence), d.loggedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert decision %x: %w", d.memoryLog, err)
		}
	}
	for _, o := range u.outcomes {
		if _, err := tx.ExecContext(ctx, `INSERT INTO outcomes (memory_log, agent, success, score_delta, attested_at) VALUES (?, ?, ?, ?, ?)`,
			hexOf(o.memoryLog), hexOf(o.agent), o.success, o.scoreDelta, o.attestedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert outcome %x: %w", o.memoryLog, err)
		}
	}
	for _, m := range u.modules {
		if _, err := tx.ExecContext(ctx, `INSERT INTO modules (address, module_id, creator, registered_at) VALUES (?, ?, ?, ?)`,
			hexOf(m.address), m.moduleID, hexOf(m.creator), m.registeredAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert module %s: %w", m.moduleID, err)
		}
	}
	for _, sale := range u.sales {
		// Amounts are stored as the int64 bit pattern of the uint64 value.
		if _, err := tx.ExecContext(ctx, `INSERT INTO sales (purchase, module, creator, agent, price, creator_amount, sold_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			hexOf(sale.purchase), hexOf(sale.module), hexOf(sale.creator), hexOf(sale.agent),
			int64(sale.price), int64(sale.creatorAmount), sale.soldAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert sale %x: %w", sale.purchase, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO progress (id, slot) VALUES (0, ?)
		ON CONFLICT(id) DO UPDATE SET slot = excluded.slot
	`, int64(u.slot)); err != nil {
		return err
	}
	return tx.Commit()
}

// agentByID resolves an agent id to its address.
func (s *Store) agentByID(ctx context.Context, agentID string) (common.Address, error) {
	var addr string
	err := s.db.QueryRowContext(ctx, `SELECT address FROM agents WHERE agent_id = ?`, agentID).Scan(&addr)
	if errors.Is(err, sql.ErrNoRows) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrAgentNotFound, agentID)
	}
	if err != nil {
		return common.Address{}, err
	}
	return common.HexToAddress(addr), nil
}

// outcomesOf returns the attested outcomes of an agent, oldest first.
func (s *Store) outcomesOf(ctx context.Context, agent common.Address) ([]outcome, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT success, attested_at FROM outcomes WHERE agent = ? ORDER BY attested_at`, hexOf(agent))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []outcome
	for rows.Next() {
		var (
			success bool
			at      int64
		)
		if err := rows.Scan(&success, &at); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome{success: success, at: time.UnixMilli(at)})
	}
	return outcomes, rows.Err()
}

// countDecisions returns the number of decisions an agent logged at or after since.
func (s *Store) countDecisions(ctx context.Context, agent common.Address, since time.Time) (uint64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM decisions WHERE agent = ? AND logged_at >= ?`,
		hexOf(agent), since.UnixMilli()).Scan(&n)
	return uint64(n), err
}

// sale is a single projected module sale.
type sale struct {
	price, creatorAmount uint64
	at                   time.Time
}

// salesOf returns all sales of a creator, oldest first.
func (s *Store) salesOf(ctx context.Context, creator common.Address) ([]sale, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT price, creator_amount, sold_at FROM sales WHERE creator = ? ORDER BY sold_at`, hexOf(creator))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []sale
	for rows.Next() {
		var price, amount, at int64
		if err := rows.Scan(&price, &amount, &at); err != nil {
			return nil, err
		}
		sales = append(sales, sale{price: uint64(price), creatorAmount: uint64(amount), at: time.UnixMilli(at)})
	}
	return sales, rows.Err()
}

// countModules returns the number of modules registered by creator.
func (s *Store) countModules(ctx context.Context, creator common.Address) (uint64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules WHERE creator = ?`, hexOf(creator)).Scan(&n)
	return uint64(n), err
}

func hexOf(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
