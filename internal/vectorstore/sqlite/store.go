package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/vectorstore"
	"github.com/cloo-solutions/resumatch/internal/vectorstore/sqlite/migrations"
)

// DefaultFilename is the database file created inside the store directory.
const DefaultFilename = "vectors.db"

var _ vectorstore.Index = (*Store)(nil)

// Store is a vector index for one collection backed by a SQLite file.
type Store struct {
	db         *sql.DB
	path       string
	collection string
}

// Open opens (creating if needed) the store at dataDir/vectors.db scoped to collection.
func Open(dataDir, collection string) (*Store, error) {
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection name is required")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DefaultFilename)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, path: dbPath, collection: collection}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) Insert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.insert(ctx, tx, chunks)
	})
}

func (s *Store) Delete(ctx context.Context, filter domain.Filter) error {
	return s.delete(ctx, s.db, filter)
}

func (s *Store) Replace(ctx context.Context, filter domain.Filter, chunks []domain.EmbeddedChunk) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.delete(ctx, tx, filter); err != nil {
			return err
		}
		return s.insert(ctx, tx, chunks)
	})
}

func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("resetting collection: %w", err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error) {
	where, args := s.where(filter)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, metadata, embedding FROM chunks WHERE `+where+` ORDER BY rowid`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0)
	for rows.Next() {
		var (
			c            domain.Chunk
			metadataJSON string
			blob         []byte
		)
		if err := rows.Scan(&c.ID, &c.Text, &metadataJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return nil, err
		}
		results = append(results, domain.ScoredChunk{
			Chunk:    c,
			Distance: vectorstore.CosineDistance(embedding, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return vectorstore.Rank(results, k), nil
}

func (s *Store) Sources(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT source FROM chunks WHERE collection = ? ORDER BY source`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying sources: %w", err)
	}
	defer rows.Close()

	sources := make([]string, 0)
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("scanning source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

func (s *Store) insert(ctx context.Context, db execer, chunks []domain.EmbeddedChunk) error {
	for _, c := range chunks {
		metadataJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO chunks (id, collection, source, content, metadata, embedding) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, s.collection, c.Source(), c.Text, string(metadataJSON), encodeVector(c.Embedding),
		); err != nil {
			return fmt.Errorf("inserting chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *Store) delete(ctx context.Context, db execer, filter domain.Filter) error {
	where, args := s.where(filter)
	if _, err := db.ExecContext(ctx, `DELETE FROM chunks WHERE `+where, args...); err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// where builds the predicate for the store's collection and an exact metadata match.
func (s *Store) where(filter domain.Filter) (string, []any) {
	clauses := []string{"collection = ?"}
	args := []any{s.collection}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		clauses = append(clauses, "json_extract(metadata, ?) = ?")
		args = append(args, jsonPath(k), filter[k])
	}
	return strings.Join(clauses, " AND "), args
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func jsonPath(key string) string {
	return `$."` + strings.ReplaceAll(key, `"`, `\"`) + `"`
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding blob of %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
