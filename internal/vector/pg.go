package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGQueries implements Querier over PostgreSQL with the pgvector extension.
type PGQueries struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPGQueries creates the PostgreSQL-backed querier.
func NewPGQueries(pool *pgxpool.Pool, logger *slog.Logger) *PGQueries {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGQueries{pool: pool, logger: logger}
}

const vectorColumns = `id, user_id, content_type, content_id, embedding, text_content,
	metadata, source_collection, source_doc_id, version, created_at, updated_at`

// InsertVector persists a new vector row.
func (q *PGQueries) InsertVector(ctx context.Context, v ContentVector) error {
	metadataJSON, err := json.Marshal(v.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	emb := pgvector.NewVector(v.Embedding)
	_, err = q.pool.Exec(ctx, `
		INSERT INTO content_vectors (`+vectorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		v.ID, v.UserID, string(v.ContentType), v.ContentID, &emb, v.TextContent,
		metadataJSON, v.SourceCollection, v.SourceDocID, v.Version, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting vector %q: %w", v.ContentID, err)
	}
	return nil
}

// UpdateVector rewrites an existing row identified by v.ID.
func (q *PGQueries) UpdateVector(ctx context.Context, v ContentVector) error {
	metadataJSON, err := json.Marshal(v.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	emb := pgvector.NewVector(v.Embedding)
	tag, err := q.pool.Exec(ctx, `
		UPDATE content_vectors
		SET embedding = $2, text_content = $3, metadata = $4, version = $5, updated_at = $6
		WHERE id = $1`,
		v.ID, &emb, v.TextContent, metadataJSON, v.Version, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("updating vector %q: %w", v.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating vector %q: no such row", v.ID)
	}
	return nil
}

// FirstByContentID returns the first vector matching (userID, contentID).
func (q *PGQueries) FirstByContentID(ctx context.Context, userID, contentID string) (ContentVector, bool, error) {
	row := q.pool.QueryRow(ctx, `
		SELECT `+vectorColumns+`
		FROM content_vectors
		WHERE user_id = $1 AND content_id = $2
		ORDER BY created_at
		LIMIT 1`,
		userID, contentID)

	v, err := q.scanVector(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ContentVector{}, false, nil
		}
		return ContentVector{}, false, fmt.Errorf("querying vector %q for user %q: %w", contentID, userID, err)
	}
	return v, true, nil
}

// ListByUser returns all of a user's vectors, optionally filtered by type.
func (q *PGQueries) ListByUser(ctx context.Context, userID string, contentType ContentType) ([]ContentVector, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if contentType != "" {
		rows, err = q.pool.Query(ctx, `
			SELECT `+vectorColumns+`
			FROM content_vectors
			WHERE user_id = $1 AND content_type = $2
			ORDER BY created_at DESC`,
			userID, string(contentType))
	} else {
		rows, err = q.pool.Query(ctx, `
			SELECT `+vectorColumns+`
			FROM content_vectors
			WHERE user_id = $1
			ORDER BY created_at DESC`,
			userID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing vectors for user %q: %w", userID, err)
	}
	defer rows.Close()

	var vectors []ContentVector
	for rows.Next() {
		v, err := q.scanVector(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning vector row: %w", err)
		}
		vectors = append(vectors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vector rows: %w", err)
	}
	return vectors, nil
}

// CountUserSince counts a user's vectors created at or after the instant.
func (q *PGQueries) CountUserSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := q.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM content_vectors
		WHERE user_id = $1 AND created_at >= $2`,
		userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting vectors for user %q: %w", userID, err)
	}
	return count, nil
}

// CountAllSince counts vectors across all users created at or after the instant.
func (q *PGQueries) CountAllSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := q.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM content_vectors WHERE created_at >= $1`,
		since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting vectors: %w", err)
	}
	return count, nil
}

// DeleteOldLowValue deletes aged, low-performing vectors in a single
// statement, which keeps the per-user batch atomic.
func (q *PGQueries) DeleteOldLowValue(ctx context.Context, userID string, cutoff time.Time, maxPerformance float64) (int, error) {
	tag, err := q.pool.Exec(ctx, `
		DELETE FROM content_vectors
		WHERE user_id = $1
		  AND created_at < $2
		  AND COALESCE((metadata->>'performance')::double precision, 0) < $3`,
		userID, cutoff, maxPerformance)
	if err != nil {
		return 0, fmt.Errorf("deleting vectors for user %q: %w", userID, err)
	}
	return int(tag.RowsAffected()), nil
}

// ListUserIDs returns the distinct user IDs that own vectors.
func (q *PGQueries) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := q.pool.Query(ctx, `SELECT DISTINCT user_id FROM content_vectors ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user ids: %w", err)
	}
	return ids, nil
}

// GetRateOverride returns the user's quota override record.
func (q *PGQueries) GetRateOverride(ctx context.Context, userID string) (RateOverride, bool, error) {
	var (
		o          RateOverride
		maxPerHour *int
		maxPerDay  *int
	)
	err := q.pool.QueryRow(ctx, `
		SELECT custom_limits, max_per_hour, max_per_day
		FROM rate_limit_overrides
		WHERE user_id = $1`,
		userID).Scan(&o.CustomLimits, &maxPerHour, &maxPerDay)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RateOverride{}, false, nil
		}
		return RateOverride{}, false, fmt.Errorf("querying rate override for user %q: %w", userID, err)
	}
	if maxPerHour != nil {
		o.MaxPerHour = *maxPerHour
	}
	if maxPerDay != nil {
		o.MaxPerDay = *maxPerDay
	}
	return o, true, nil
}

// scanVector scans one content_vectors row.
func (q *PGQueries) scanVector(row pgx.Row) (ContentVector, error) {
	var (
		v            ContentVector
		contentType  string
		emb          *pgvector.Vector
		metadataJSON []byte
	)
	err := row.Scan(&v.ID, &v.UserID, &contentType, &v.ContentID, &emb, &v.TextContent,
		&metadataJSON, &v.SourceCollection, &v.SourceDocID, &v.Version, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return ContentVector{}, err
	}

	v.ContentType = ContentType(contentType)
	if emb != nil {
		v.Embedding = emb.Slice()
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &v.Metadata); err != nil {
			// A corrupt metadata document should not hide the vector.
			q.logger.Warn("failed to parse vector metadata", "vector_id", v.ID, "error", err)
			v.Metadata = Metadata{}
		}
	}
	return v, nil
}
