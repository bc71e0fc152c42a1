package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/chatsync-server/internal/store"
)

// orderField is the only collection field live queries can order by. It is
// the single index this system needs; asking for anything else is a
// programming error surfaced at Subscribe time.
const orderField = "createdAt"

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	path TEXT PRIMARY KEY,
	data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS collection_docs (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	path          TEXT NOT NULL,
	order_seconds INTEGER NOT NULL DEFAULT 0,
	order_nanos   INTEGER NOT NULL DEFAULT 0,
	data          TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_collection_docs_order
	ON collection_docs (path, order_seconds, order_nanos, seq);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB

	mu   sync.Mutex
	subs map[string]map[*store.Subscription]int // collection path -> subscription -> window limit
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store and runs an extra setup function
// after the schema is applied. Useful for tests to seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{
		db:   db,
		subs: make(map[string]map[*store.Subscription]int),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== DocumentStore implementation ====

// GetDocument reads the document at path into out.
func (s *SQLiteStore) GetDocument(ctx context.Context, path string, out any) error {
	query := `
		SELECT data
		FROM documents
		WHERE path = ?
	`
	var data []byte
	err := s.db.QueryRowContext(ctx, query, path).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		return fmt.Errorf("query document: %w", err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// SetDocument writes value as the document at path.
func (s *SQLiteStore) SetDocument(ctx context.Context, path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	query := `
		INSERT INTO documents (path, data)
		VALUES (?, ?)
		ON CONFLICT (path) DO UPDATE SET data = excluded.data
	`
	if _, err := s.db.ExecContext(ctx, query, path, data); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// AddToCollection appends value to the collection at path and notifies live
// queries over that collection.
func (s *SQLiteStore) AddToCollection(ctx context.Context, path string, value any) (int64, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return 0, fmt.Errorf("encode collection entry: %w", err)
	}

	// The order columns mirror the entry's createdAt field so that window
	// queries never parse JSON.
	var order struct {
		CreatedAt store.Timestamp `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &order); err != nil {
		return 0, fmt.Errorf("extract order field: %w", err)
	}

	query := `
		INSERT INTO collection_docs (path, order_seconds, order_nanos, data)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, path, order.CreatedAt.Seconds, order.CreatedAt.Nanos, data)
	if err != nil {
		return 0, fmt.Errorf("insert collection entry: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}

	s.notify(path)
	return seq, nil
}

// ==== LiveQuerier implementation ====

// Subscribe opens a live window query over the collection at path.
func (s *SQLiteStore) Subscribe(path, orderBy string, limit int) (*store.Subscription, error) {
	if orderBy != orderField {
		return nil, fmt.Errorf("unsupported order field %q", orderBy)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("invalid window limit %d", limit)
	}

	sub := store.NewSubscription(func(sub *store.Subscription) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.unregister(path, sub)
	})

	// Registration, the initial query, and the initial push happen under
	// the registry lock so a concurrent append cannot deliver a newer
	// window that the initial snapshot would then clobber.
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.subs[path] == nil {
		s.subs[path] = make(map[*store.Subscription]int)
	}
	s.subs[path][sub] = limit

	snapshot, err := s.window(context.Background(), path, limit)
	if err != nil {
		s.unregister(path, sub)
		return nil, fmt.Errorf("initial window: %w", err)
	}
	sub.Push(snapshot)

	return sub, nil
}

// unregister removes sub from the registry. Caller holds s.mu.
func (s *SQLiteStore) unregister(path string, sub *store.Subscription) {
	if registered, ok := s.subs[path]; ok {
		delete(registered, sub)
		if len(registered) == 0 {
			delete(s.subs, path)
		}
	}
}

// notify re-runs the window query for every subscription on path and pushes
// the fresh snapshot. Subscriptions whose re-query fails are terminated.
func (s *SQLiteStore) notify(path string) {
	s.mu.Lock()
	var failed map[*store.Subscription]error
	for sub, limit := range s.subs[path] {
		snapshot, err := s.window(context.Background(), path, limit)
		if err != nil {
			if failed == nil {
				failed = make(map[*store.Subscription]error)
			}
			failed[sub] = err
			continue
		}
		sub.Push(snapshot)
	}
	s.mu.Unlock()

	// Fail outside the lock: teardown re-enters the registry to unregister.
	for sub, err := range failed {
		sub.Fail(err)
	}
}

// window returns the most recent limit entries of the collection at path in
// chronological order. Ties on the order field fall back to insertion seq.
func (s *SQLiteStore) window(ctx context.Context, path string, limit int) ([]store.Document, error) {
	query := `
		SELECT seq, data
		FROM collection_docs
		WHERE path = ?
		ORDER BY order_seconds DESC, order_nanos DESC, seq DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, path, limit)
	if err != nil {
		return nil, fmt.Errorf("query window: %w", err)
	}
	defer rows.Close()

	var docs []store.Document
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(&doc.Seq, &doc.Data); err != nil {
			return nil, fmt.Errorf("scan collection entry: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate window: %w", err)
	}

	// Reverse to get chronological order.
	for i := range len(docs) / 2 {
		docs[i], docs[len(docs)-1-i] = docs[len(docs)-1-i], docs[i]
	}

	return docs, nil
}
