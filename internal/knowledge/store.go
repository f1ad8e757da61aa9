package knowledge

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/mnemo-ai/mnemo/internal/log"
)

// DB is the database surface the store depends on.
// Satisfied by *pgxpool.Pool; tests and integration helpers can substitute
// a transaction or a recording fake.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store manages knowledge entries in PostgreSQL.
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     DB
	logger log.Logger
}

// New creates a Store.
func New(db DB, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{db: db, logger: logger}
}

const entryColumns = "id, user_id, title, content, tags, created_at, updated_at"

// scanEntry scans one entry row in entryColumns order.
func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &e.Content, &e.Tags, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// collectEntries drains rows into a slice, always returning a non-nil
// slice so empty results serialize as [] rather than null.
func collectEntries(rows pgx.Rows) ([]Entry, error) {
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}
	return entries, nil
}

// Create inserts a new entry owned by ownerID and returns it with its
// generated id and timestamps.
func (s *Store) Create(ctx context.Context, ownerID int64, title, content string, tags []string) (Entry, error) {
	if tags == nil {
		tags = []string{}
	}

	row := s.db.QueryRow(ctx,
		`INSERT INTO knowledge_entries (user_id, title, content, tags)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+entryColumns,
		ownerID, title, content, tags)

	entry, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("creating entry: %w", err)
	}

	s.logger.Debug("created entry", "id", entry.ID, "owner_id", ownerID)
	return entry, nil
}

// Get returns one entry by id, scoped to its owner.
// Returns ErrEntryNotFound both for absent entries and for entries owned
// by someone else.
func (s *Store) Get(ctx context.Context, id, ownerID int64) (Entry, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+entryColumns+`
		 FROM knowledge_entries
		 WHERE id = $1 AND user_id = $2`,
		id, ownerID)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("getting entry %d: %w", id, err)
	}
	return entry, nil
}

// List returns all of an owner's entries, newest first.
func (s *Store) List(ctx context.Context, ownerID int64) ([]Entry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+`
		 FROM knowledge_entries
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return collectEntries(rows)
}

// Update replaces an entry's title, content and tags, scoped to its owner.
// Returns ErrEntryNotFound when the entry does not exist for this owner.
func (s *Store) Update(ctx context.Context, id, ownerID int64, title, content string, tags []string) (Entry, error) {
	if tags == nil {
		tags = []string{}
	}

	row := s.db.QueryRow(ctx,
		`UPDATE knowledge_entries
		 SET title = $3, content = $4, tags = $5, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING `+entryColumns,
		id, ownerID, title, content, tags)

	entry, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("updating entry %d: %w", id, err)
	}

	s.logger.Debug("updated entry", "id", id, "owner_id", ownerID)
	return entry, nil
}

// Delete removes an entry, scoped to its owner.
// Returns ErrEntryNotFound when nothing was deleted.
func (s *Store) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := s.db.Exec(ctx,
		`DELETE FROM knowledge_entries WHERE id = $1 AND user_id = $2`,
		id, ownerID)
	if err != nil {
		return fmt.Errorf("deleting entry %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}

	s.logger.Debug("deleted entry", "id", id, "owner_id", ownerID)
	return nil
}

// Search returns the owner's entries whose title or content contains the
// query, case-insensitively, newest first, capped at limit (DefaultSearchLimit
// when limit <= 0). An empty result is a valid answer, not an error.
func (s *Store) Search(ctx context.Context, ownerID int64, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+`
		 FROM knowledge_entries
		 WHERE user_id = $1
		   AND (title ILIKE '%' || $2 || '%' OR content ILIKE '%' || $2 || '%')
		 ORDER BY created_at DESC
		 LIMIT $3`,
		ownerID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching entries: %w", err)
	}
	return collectEntries(rows)
}

// SearchByTag returns the owner's entries carrying the given tag, newest
// first. Uses the tags @> containment operator so the GIN index applies.
func (s *Store) SearchByTag(ctx context.Context, ownerID int64, tag string) ([]Entry, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+entryColumns+`
		 FROM knowledge_entries
		 WHERE user_id = $1 AND tags @> ARRAY[$2]::text[]
		 ORDER BY created_at DESC`,
		ownerID, tag)
	if err != nil {
		return nil, fmt.Errorf("searching entries by tag: %w", err)
	}
	return collectEntries(rows)
}
