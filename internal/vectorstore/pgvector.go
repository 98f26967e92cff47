package vectorstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PgVectorIndex implements Index on Postgres with the pgvector extension.
// It serves deployments that already run Postgres and do not want a
// dedicated vector service.
type PgVectorIndex struct {
	db *pgxpool.Pool
}

func NewPgVectorIndex(db *pgxpool.Pool) *PgVectorIndex {
	return &PgVectorIndex{db: db}
}

func (s *PgVectorIndex) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	_, err := s.db.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID NOT NULL,
			owner_id UUID NOT NULL,
			chunk_index INT NOT NULL,
			page INT NOT NULL,
			filename TEXT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, dimension))
	if err != nil {
		return fmt.Errorf("%w: create table: %v", ErrUnavailable, err)
	}
	_, err = s.db.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_chunks_scope ON document_chunks (owner_id, document_id)`)
	if err != nil {
		return fmt.Errorf("%w: create index: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *PgVectorIndex) Upsert(ctx context.Context, vectors [][]float32, payloads []ChunkPayload) error {
	if len(vectors) != len(payloads) {
		return fmt.Errorf("%w: %d vectors, %d payloads", ErrLengthMismatch, len(vectors), len(payloads))
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", ErrUnavailable, err)
	}
	defer tx.Rollback(ctx)

	for i, p := range payloads {
		_, err := tx.Exec(ctx,
			`INSERT INTO document_chunks (document_id, owner_id, chunk_index, page, filename, content, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.DocumentID, p.OwnerID, p.ChunkIndex, p.Page, p.Filename, p.Text, pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", p.ChunkIndex, err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PgVectorIndex) Search(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	sql, args, err := searchSQL(opts.Filter, limit, opts.WithVectors)
	if err != nil {
		return nil, err
	}

	queryArgs := append([]any{pgvector.NewVector(query)}, args...)
	rows, err := s.db.Query(ctx, sql, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		dest := []any{
			&r.ID, &r.Payload.DocumentID, &r.Payload.OwnerID, &r.Payload.ChunkIndex,
			&r.Payload.Page, &r.Payload.Filename, &r.Payload.Text, &r.Score,
		}
		var emb pgvector.Vector
		if opts.WithVectors {
			dest = append(dest, &emb)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if opts.WithVectors {
			r.Vector = emb.Slice()
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *PgVectorIndex) Scroll(ctx context.Context, filter Filter, pageSize int) ([]ChunkPayload, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var payloads []ChunkPayload
	offset := 0
	for {
		sql, args, err := scrollSQL(filter, pageSize, offset)
		if err != nil {
			return nil, err
		}

		rows, err := s.db.Query(ctx, sql, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: scroll: %v", ErrUnavailable, err)
		}

		n := 0
		for rows.Next() {
			var p ChunkPayload
			if err := rows.Scan(&p.DocumentID, &p.OwnerID, &p.ChunkIndex, &p.Page, &p.Filename, &p.Text); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan payload: %w", err)
			}
			payloads = append(payloads, p)
			n++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if n < pageSize {
			return payloads, nil
		}
		offset += pageSize
	}
}

func (s *PgVectorIndex) DeleteByFilter(ctx context.Context, filter Filter) error {
	where, args, err := scopeClause(filter, 1)
	if err != nil {
		return err
	}
	if where == "" {
		return fmt.Errorf("refusing to delete without a filter")
	}
	_, err = s.db.Exec(ctx, "DELETE FROM document_chunks "+where, args...)
	return err
}

// searchSQL builds the similarity query. $1 is reserved for the query
// vector; filter arguments start at $2.
func searchSQL(f Filter, limit int, withVectors bool) (string, []any, error) {
	where, args, err := scopeClause(f, 2)
	if err != nil {
		return "", nil, err
	}

	cols := `id, document_id, owner_id, chunk_index, page, filename, content,
	         1 - (embedding <=> $1) AS score`
	if withVectors {
		cols += `, embedding`
	}

	sql := fmt.Sprintf(
		`SELECT %s FROM document_chunks %s ORDER BY embedding <=> $1 LIMIT %d`,
		cols, where, limit)
	return sql, args, nil
}

// scrollSQL builds one page of the enumeration query. Ordering by id
// keeps pages stable across requests; reading order is the caller's
// problem.
func scrollSQL(f Filter, pageSize, offset int) (string, []any, error) {
	where, args, err := scopeClause(f, 1)
	if err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(
		`SELECT document_id, owner_id, chunk_index, page, filename, content
		 FROM document_chunks %s ORDER BY id LIMIT %d OFFSET %d`,
		where, pageSize, offset)
	return sql, args, nil
}

// scopeClause translates the equality-only Filter into a WHERE clause.
// Only payload fields that exist as columns are accepted.
func scopeClause(f Filter, firstArg int) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, nil
	}

	columns := map[string]string{
		"owner_id":    "owner_id",
		"document_id": "document_id",
		"filename":    "filename",
	}

	clause := "WHERE "
	var args []any
	i := 0
	for k, v := range f {
		col, ok := columns[k]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter field %q", k)
		}
		if i > 0 {
			clause += " AND "
		}
		clause += fmt.Sprintf("%s = $%d", col, firstArg+i)
		args = append(args, v)
		i++
	}
	return clause, args, nil
}
