// Package archive stores blocks and transactions seen by the live pipeline in
// Postgres so history survives restarts.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/matko5ss/kripto-transakcije-sub000/internal/model"
)

// ErrDisabled is returned by Open when no DSN is configured.
var ErrDisabled = errors.New("archive disabled")

const (
	createTableBlocks = `
		CREATE TABLE IF NOT EXISTS blocks (
			chain TEXT NOT NULL,
			number BIGINT NOT NULL,
			hash TEXT,
			timestamp TIMESTAMPTZ,
			miner TEXT,
			tx_count INTEGER,
			tx_hashes TEXT[],
			PRIMARY KEY (chain, number)
		);
	`

	createTableTxs = `
		CREATE TABLE IF NOT EXISTS txs (
			chain TEXT NOT NULL,
			hash TEXT NOT NULL,
			block_number BIGINT,
			sender TEXT,
			recipient TEXT,
			value NUMERIC,
			fee NUMERIC,
			timestamp TIMESTAMPTZ,
			PRIMARY KEY (chain, hash)
		);
	`

	setBlock = `
		INSERT INTO blocks (chain, number, hash, timestamp, miner, tx_count, tx_hashes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (chain, number) DO UPDATE SET
			hash = EXCLUDED.hash,
			tx_count = EXCLUDED.tx_count,
			tx_hashes = EXCLUDED.tx_hashes;
	`

	setTx = `
		INSERT INTO txs (chain, hash, block_number, sender, recipient, value, fee, timestamp)
		VALUES (:chain, :hash, :block_number, :sender, :recipient, :value, :fee, :timestamp)
		ON CONFLICT (chain, hash) DO UPDATE SET
			block_number = EXCLUDED.block_number;
	`

	getLatestBlock = `
		SELECT COALESCE(MAX(number), 0) FROM blocks WHERE chain = $1;
	`
)

type txRow struct {
	Chain       string     `db:"chain"`
	Hash        string     `db:"hash"`
	BlockNumber *int64     `db:"block_number"`
	Sender      string     `db:"sender"`
	Recipient   string     `db:"recipient"`
	Value       string     `db:"value"`
	Fee         string     `db:"fee"`
	Timestamp   *time.Time `db:"timestamp"`
}

func toTxRow(tx model.Transaction) txRow {
	row := txRow{
		Chain:     string(tx.Chain),
		Hash:      tx.Hash,
		Sender:    tx.From,
		Recipient: tx.To,
		Value:     tx.Value.String(),
		Fee:       tx.Fee.String(),
	}
	if !tx.Pending && tx.BlockNumber > 0 {
		n := tx.BlockNumber
		row.BlockNumber = &n
	}
	if !tx.Timestamp.IsZero() {
		ts := tx.Timestamp
		row.Timestamp = &ts
	}
	return row
}

type DB struct {
	*sqlx.DB
}

// Open connects to Postgres and creates the tables. An empty dsn returns ErrDisabled.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn == "" {
		return nil, ErrDisabled
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect archive: %w", err)
	}
	for _, stmt := range []string{createTableBlocks, createTableTxs} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create archive tables: %w", err)
		}
	}
	return &DB{db}, nil
}

func (db *DB) AddBlock(ctx context.Context, b model.Block) error {
	var ts *time.Time
	if !b.Timestamp.IsZero() {
		ts = &b.Timestamp
	}
	_, err := db.ExecContext(ctx, setBlock, string(b.Chain), b.Height, b.Hash, ts, b.Miner, b.TxCount, pq.StringArray(b.TxHashes))
	return err
}

func (db *DB) AddTx(ctx context.Context, tx model.Transaction) error {
	_, err := db.NamedExecContext(ctx, setTx, toTxRow(tx))
	return err
}

func (db *DB) LatestHeight(ctx context.Context, chain model.Chain) (int64, error) {
	var num int64
	if err := db.GetContext(ctx, &num, getLatestBlock, string(chain)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return num, nil
}

// Store is the write side of the archive.
type Store interface {
	AddBlock(ctx context.Context, b model.Block) error
	AddTx(ctx context.Context, tx model.Transaction) error
}

// Publisher archives the fresh rows of live snapshots. The first snapshot of
// each list is written whole, since the rows shown at startup have nothing to
// be fresh against.
type Publisher struct {
	Store Store

	mu     sync.Mutex
	primed map[string]bool
}

func (p *Publisher) Publish(ctx context.Context, snap model.Snapshot) error {
	if p.Store == nil {
		return ErrDisabled
	}
	all := p.prime(snap.Key())

	var errs []error
	for _, b := range snap.Blocks {
		if !all && !snap.IsFresh(b.ID()) {
			continue
		}
		if err := p.Store.AddBlock(ctx, b); err != nil {
			errs = append(errs, fmt.Errorf("archive block %s/%d: %w", b.Chain, b.Height, err))
		}
	}
	for _, tx := range snap.Transactions {
		if !all && !snap.IsFresh(tx.ID()) {
			continue
		}
		if err := p.Store.AddTx(ctx, tx); err != nil {
			errs = append(errs, fmt.Errorf("archive tx %s: %w", tx.Hash, err))
		}
	}
	if len(errs) > 0 && all {
		p.unprime(snap.Key())
	}
	return errors.Join(errs...)
}

// prime reports whether key is seen for the first time and marks it.
func (p *Publisher) prime(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.primed == nil {
		p.primed = make(map[string]bool)
	}
	if p.primed[key] {
		return false
	}
	p.primed[key] = true
	return true
}

func (p *Publisher) unprime(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.primed, key)
}
