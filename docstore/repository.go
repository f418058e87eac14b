// Package docstore implements the Document Repository (spec §4.G):
// transactional replace-by-user writes of chunked documents.
package docstore

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/aptrag/chatbot/apperr"
	"github.com/aptrag/chatbot/domain"
)

// Repository is the Document Repository (§4.G).
type Repository struct {
	pool *pgxpool.Pool
}

// New wraps an already-connected pgx pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ReplaceForUser performs the only supported write shape for ETL
// output: delete all existing documents for the user, then insert the
// provided set, preserving order, inside a single transaction. On any
// failure the transaction rolls back and the caller sees the original
// state (Property P2).
func (r *Repository) ReplaceForUser(ctx context.Context, userID string, docs []domain.Document) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return apperr.New(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM chat_documents WHERE user_id = $1`, userID); err != nil {
		return apperr.New(err)
	}

	for i := range docs {
		d := &docs[i]
		if d.ID == "" {
			d.ID = uuid.NewString()
		}
		d.UserID = userID

		content, _ := json.Marshal(d.Content)
		meta, _ := json.Marshal(d.Metadata)

		if _, err := tx.Exec(ctx, `
			INSERT INTO chat_documents (
				doc_id, user_id, doc_type, content, summary_text,
				searchable_text, embedding_vector, metadata
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, d.ID, d.UserID, string(d.DocType), content, d.SummaryText,
			d.SearchableText, pgvector.NewVector(d.Embedding), meta); err != nil {
			return apperr.New(err)
		}
	}

	return apperr.New(tx.Commit(ctx))
}

// DeleteForUser removes every document belonging to userID. Used by
// the ETL Orchestrator's rollback path.
func (r *Repository) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM chat_documents WHERE user_id = $1`, userID)
	return apperr.New(err)
}

// ListForUser returns all documents currently stored for userID.
func (r *Repository) ListForUser(ctx context.Context, userID string) ([]domain.Document, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT doc_id, user_id, doc_type, content, summary_text,
		       searchable_text, embedding_vector, metadata
		FROM chat_documents WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, apperr.New(err)
	}
	defer rows.Close()

	var out []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, apperr.New(err)
		}
		out = append(out, d)
	}
	return out, apperr.New(rows.Err())
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (domain.Document, error) {
	var d domain.Document
	var docType string
	var content, meta []byte
	var vec pgvector.Vector

	if err := row.Scan(&d.ID, &d.UserID, &docType, &content, &d.SummaryText,
		&d.SearchableText, &vec, &meta); err != nil {
		return d, err
	}
	d.DocType = domain.DocType(docType)
	d.Embedding = vec.Slice()
	_ = json.Unmarshal(content, &d.Content)
	_ = json.Unmarshal(meta, &d.Metadata)
	return d, nil
}
