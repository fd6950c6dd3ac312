package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/resumatch/internal/domain"
	"github.com/cloo-solutions/resumatch/internal/vectorstore"
)

var _ vectorstore.Index = (*ChunkRepository)(nil)

// ChunkRepository stores resume chunk embeddings of one collection in PostgreSQL with pgvector.
type ChunkRepository struct {
	db         dbtx
	tx         *TxRunner
	collection string
}

func NewChunkRepository(pool *pgxpool.Pool, collection string) *ChunkRepository {
	return &ChunkRepository{db: pool, tx: NewTxRunner(pool), collection: collection}
}

func (r *ChunkRepository) Insert(ctx context.Context, chunks []domain.EmbeddedChunk) error {
	return insertChunks(ctx, r.db, r.collection, chunks)
}

func (r *ChunkRepository) Delete(ctx context.Context, filter domain.Filter) error {
	return deleteChunks(ctx, r.db, r.collection, filter)
}

// Replace deletes the chunks matching filter and inserts chunks in one transaction.
func (r *ChunkRepository) Replace(ctx context.Context, filter domain.Filter, chunks []domain.EmbeddedChunk) error {
	return r.tx.WithTx(ctx, func(db dbtx) error {
		if err := deleteChunks(ctx, db, r.collection, filter); err != nil {
			return err
		}
		return insertChunks(ctx, db, r.collection, chunks)
	})
}

func (r *ChunkRepository) Reset(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `DELETE FROM resume_chunks WHERE collection = $1`, r.collection)
	return err
}

// Search ranks chunks by cosine distance (pgvector <=>) to embedding. The HNSW scan is iterative
// so a selective filter still yields up to k rows.
func (r *ChunkRepository) Search(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	where, arg, err := filterClause(filter, 3)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredChunk, 0, k)
	err = r.tx.WithTx(ctx, func(db dbtx) error {
		if _, err := db.Exec(ctx, `SET LOCAL hnsw.iterative_scan = strict_order`); err != nil {
			return fmt.Errorf("enable iterative scan: %w", err)
		}

		rows, err := db.Query(ctx,
			`SELECT id::text, content, metadata, embedding <=> $1 AS distance
			 FROM resume_chunks
			 WHERE collection = $2 AND `+where+`
			 ORDER BY embedding <=> $1, created_at
			 LIMIT $4`,
			pgvector.NewVector(embedding),
			r.collection,
			arg,
			k,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				result   domain.ScoredChunk
				metadata []byte
			)
			if err := rows.Scan(&result.ID, &result.Text, &metadata, &result.Distance); err != nil {
				return err
			}
			if err := json.Unmarshal(metadata, &result.Metadata); err != nil {
				return fmt.Errorf("decode metadata of chunk %s: %w", result.ID, err)
			}
			results = append(results, result)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (r *ChunkRepository) Sources(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT DISTINCT source FROM resume_chunks WHERE collection = $1 ORDER BY source`,
		r.collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := make([]string, 0)
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, err
		}
		sources = append(sources, source)
	}

	return sources, rows.Err()
}

// Count returns the number of chunks stored for source.
func (r *ChunkRepository) Count(ctx context.Context, source string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM resume_chunks WHERE collection = $1 AND source = $2`,
		r.collection, domain.SourceName(source),
	).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

func insertChunks(ctx context.Context, db dbtx, collection string, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata of chunk %s: %w", c.ID, err)
		}
		batch.Queue(
			`INSERT INTO resume_chunks (id, collection, source, content, metadata, embedding)
			 VALUES ($1, $2, $3, $4, $5::jsonb, $6)`,
			c.ID,
			collection,
			c.Source(),
			c.Text,
			string(metadata),
			pgvector.NewVector(c.Embedding),
		)
	}

	results := db.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return err
		}
	}
	return results.Close()
}

func deleteChunks(ctx context.Context, db dbtx, collection string, filter domain.Filter) error {
	where, arg, err := filterClause(filter, 2)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx,
		`DELETE FROM resume_chunks WHERE collection = $1 AND `+where,
		collection, arg,
	)
	return err
}

// filterClause renders filter as a predicate on placeholder $n. A filter on the source alone
// uses the indexed source column; anything else falls back to jsonb containment.
func filterClause(filter domain.Filter, n int) (string, any, error) {
	if source, ok := filter[domain.MetadataSource]; ok && len(filter) == 1 {
		return fmt.Sprintf("source = $%d", n), source, nil
	}
	doc, err := filterDocument(filter)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("metadata @> $%d::jsonb", n), doc, nil
}

// filterDocument renders filter as the JSON object used with the jsonb containment operator.
func filterDocument(filter domain.Filter) (string, error) {
	if len(filter) == 0 {
		return "{}", nil
	}
	raw, err := json.Marshal(map[string]string(filter))
	if err != nil {
		return "", fmt.Errorf("encode filter: %w", err)
	}
	return string(raw), nil
}
