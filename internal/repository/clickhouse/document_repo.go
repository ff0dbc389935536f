package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/mentionwatch/mentionwatch/internal/domain"
)

// DocumentRepository reads document rows and their embeddings from
// ClickHouse.
type DocumentRepository struct {
	conn clickhouse.Conn
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(conn clickhouse.Conn) *DocumentRepository {
	return &DocumentRepository{conn: conn}
}

const documentColumns = `id, subject, sender, recipients, received_at, preview`

// DocumentsByIDs returns documents matching the given ids inside the time
// range, newest first, with their extracted entities attached.
func (r *DocumentRepository) DocumentsByIDs(
	ctx context.Context,
	ids []string,
	from, to time.Time,
	limit int,
) ([]*domain.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id IN (?) AND received_at >= ? AND received_at < ?
		ORDER BY received_at DESC
		LIMIT ?
	`
	docs, err := r.queryDocuments(ctx, query, ids, from, to, limit)
	if err != nil {
		return nil, err
	}
	return docs, r.attachEntities(ctx, docs)
}

// DocumentsForPeriod returns documents in the range matching the entity
// filter, newest first.
func (r *DocumentRepository) DocumentsForPeriod(
	ctx context.Context,
	from, to time.Time,
	filter domain.MentionFilter,
	limit int,
) ([]*domain.Document, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var query string
	args := []interface{}{from, to}
	if filter.All() {
		query = `
			SELECT ` + documentColumns + `
			FROM documents
			WHERE received_at >= ? AND received_at < ?
			ORDER BY received_at DESC
			LIMIT ?
		`
		args = append(args, limit)
	} else {
		query = `
			SELECT ` + documentColumns + `
			FROM documents
			WHERE received_at >= ? AND received_at < ?
			  AND id IN (
				SELECT DISTINCT document_id FROM mentions
				WHERE occurred_at >= ? AND occurred_at < ? AND entity_type = ?`
		args = append(args, from, to, filter.EntityType)
		if filter.EntityValue != "" {
			query += ` AND entity_value = ?`
			args = append(args, filter.EntityValue)
		}
		query += `
			  )
			ORDER BY received_at DESC
			LIMIT ?
		`
		args = append(args, limit)
	}

	docs, err := r.queryDocuments(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return docs, r.attachEntities(ctx, docs)
}

// SemanticCandidates runs a nearest-neighbour scan over stored embeddings
// and returns document ids with similarity scores, best match first. Rows
// without an embedding are skipped.
func (r *DocumentRepository) SemanticCandidates(
	ctx context.Context,
	embedding []float32,
	from, to time.Time,
	limit int,
) ([]domain.SemanticMatch, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, 1 - cosineDistance(embedding, ?) AS score
		FROM documents
		WHERE received_at >= ? AND received_at < ? AND notEmpty(embedding)
		ORDER BY score DESC
		LIMIT ?
	`
	rows, err := r.conn.Query(ctx, query, embedding, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []domain.SemanticMatch
	for rows.Next() {
		var m domain.SemanticMatch
		if err := rows.Scan(&m.DocumentID, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (r *DocumentRepository) queryDocuments(ctx context.Context, query string, args ...interface{}) ([]*domain.Document, error) {
	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.Subject, &d.Sender, &d.Recipients, &d.ReceivedAt, &d.Preview); err != nil {
			return nil, err
		}
		d.ReceivedAt = d.ReceivedAt.UTC()
		docs = append(docs, &d)
	}
	return docs, rows.Err()
}

func (r *DocumentRepository) attachEntities(ctx context.Context, docs []*domain.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, len(docs))
	byID := make(map[string]*domain.Document, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
		byID[d.ID] = d
	}

	rows, err := r.conn.Query(ctx, `
		SELECT document_id, entity_type, entity_value
		FROM mentions
		WHERE document_id IN (?)
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var docID string
		var e domain.Entity
		if err := rows.Scan(&docID, &e.Type, &e.Text); err != nil {
			return err
		}
		if d, ok := byID[docID]; ok {
			d.Entities = append(d.Entities, e)
		}
	}
	return rows.Err()
}
