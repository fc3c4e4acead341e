package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kasw/orgtrace/internal/store"
)

const personColumns = `id, name, clean_name, tel, email, disambiguation_key, metadata, created_at, updated_at`

// People is the repository for the people table.
type People struct {
	q   store.Querier
	log *zap.Logger
}

func NewPeople(q store.Querier, log *zap.Logger) *People {
	if log == nil {
		log = zap.NewNop()
	}
	return &People{q: q, log: log}
}

// WithQuerier returns a copy bound to q, typically a transaction.
func (r *People) WithQuerier(q store.Querier) *People {
	return &People{q: q, log: r.log}
}

// PersonParams are the writable person fields.
type PersonParams struct {
	Name              string
	CleanName         string
	Tel               *string
	Email             *string
	DisambiguationKey int
	Attrs             Attrs
}

// Upsert inserts a person or, on a (name, disambiguation_key) hit,
// refreshes contact fields and merges metadata. Returns the row id.
func (r *People) Upsert(ctx context.Context, p PersonParams) (int, error) {
	if p.DisambiguationKey == 0 {
		p.DisambiguationKey = 1
	}
	meta, err := p.Attrs.jsonValue()
	if err != nil {
		return 0, fmt.Errorf("encode person metadata: %w", err)
	}

	var id int
	err = r.q.QueryRow(ctx, `
		INSERT INTO people (name, clean_name, tel, email, disambiguation_key, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name, disambiguation_key) DO UPDATE SET
			clean_name = EXCLUDED.clean_name,
			tel = COALESCE(EXCLUDED.tel, people.tel),
			email = COALESCE(EXCLUDED.email, people.email),
			metadata = people.metadata || EXCLUDED.metadata,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id`,
		p.Name, p.CleanName, p.Tel, p.Email, p.DisambiguationKey, meta,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert person %q: %w", p.Name, err)
	}
	return id, nil
}

// ByID returns the person with the given id, or ErrNotFound.
func (r *People) ByID(ctx context.Context, id int) (*Person, error) {
	row := r.q.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE id = $1`, id)
	p, err := scanPerson(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("person %d: %w", id, store.ErrNotFound)
	}
	return p, err
}

// ByName returns a person by exact name, or ErrNotFound. Split
// identities share a name; the lowest disambiguation key wins.
func (r *People) ByName(ctx context.Context, name string) (*Person, error) {
	row := r.q.QueryRow(ctx, `SELECT `+personColumns+` FROM people WHERE name = $1
		ORDER BY disambiguation_key LIMIT 1`, name)
	p, err := scanPerson(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("person %q: %w", name, store.ErrNotFound)
	}
	return p, err
}

// SearchCleanNames runs the trigram prefilter over clean_name. An
// empty result set, or a missing pg_trgm extension (SQLSTATE 42883),
// falls back to case-insensitive substring containment.
func (r *People) SearchCleanNames(ctx context.Context, query string, minSim float64, limit int) ([]NameCandidate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT clean_name, similarity(clean_name, $1) AS sim_score
		FROM people
		WHERE clean_name % $1 AND similarity(clean_name, $1) >= $2
		ORDER BY sim_score DESC
		LIMIT $3`,
		query, minSim, limit)
	if err != nil {
		if store.IsUndefinedFunction(err) {
			r.log.Warn("pg_trgm unavailable, falling back to substring search",
				zap.String("query", query))
			return r.searchCleanNamesSubstring(ctx, query, limit)
		}
		return nil, fmt.Errorf("trigram search %q: %w", query, err)
	}
	defer rows.Close()

	var out []NameCandidate
	for rows.Next() {
		var c NameCandidate
		if err := rows.Scan(&c.CleanName, &c.SimScore); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trigram search %q: %w", query, err)
	}
	if len(out) == 0 {
		return r.searchCleanNamesSubstring(ctx, query, limit)
	}
	return out, nil
}

func (r *People) searchCleanNamesSubstring(ctx context.Context, query string, limit int) ([]NameCandidate, error) {
	rows, err := r.q.Query(ctx, `
		SELECT clean_name
		FROM people
		WHERE clean_name ILIKE $1
		ORDER BY length(clean_name) ASC, clean_name ASC
		LIMIT $2`,
		"%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("substring search %q: %w", query, err)
	}
	defer rows.Close()

	var out []NameCandidate
	for rows.Next() {
		var c NameCandidate
		if err := rows.Scan(&c.CleanName); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountDistinctNames returns the number of distinct display names.
// Split identities share a name, so this undercounts people.
func (r *People) CountDistinctNames(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(DISTINCT name) FROM people`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count names: %w", err)
	}
	return n, nil
}

// SearchByEmbedding is reserved for a future vector-backed search; the
// current schema has no embedding column.
func (r *People) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]Person, error) {
	return nil, fmt.Errorf("embedding search: %w", errors.ErrUnsupported)
}

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	var meta []byte
	err := row.Scan(&p.ID, &p.Name, &p.CleanName, &p.Tel, &p.Email,
		&p.DisambiguationKey, &meta, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Attrs = scanAttrs(meta)
	return &p, nil
}
