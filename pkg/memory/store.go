// Package memory is the episodic long-term store: resolved tasks and
// reflections persisted in sqlite, searchable by keyword through FTS5 and
// by similarity through sqlite-vec when an embedding provider is wired.
//
// Ranked full-text recall requires building with the sqlite_fts5 tag
// (mattn/go-sqlite3 compiles FTS5 out by default). Without it the store
// still works; keyword recall degrades to unranked substring scans.
package memory

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register the sqlite-vec extension on every connection.
	sqlite_vec.Auto()
}

// Episode is one remembered task resolution or reflection.
type Episode struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Score    float64           `json:"score"`
}

// Config assembles a Store.
type Config struct {
	DBPath   string
	Embedder EmbeddingProvider // optional; enables vector recall
	Logger   zerolog.Logger
}

// Store is the sqlite-backed episodic memory.
type Store struct {
	db       *sql.DB
	embedder EmbeddingProvider
	fts      bool
	logger   zerolog.Logger
}

// New opens (or creates) the database and runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}
	s := &Store{db: db, embedder: cfg.Embedder, logger: cfg.Logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.logger.Info().Str("path", cfg.DBPath).Bool("vectors", cfg.Embedder != nil).Msg("Memory store opened")
	return s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS episodes (
		id TEXT PRIMARY KEY,
		task TEXT NOT NULL,
		summary TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'episode',
		created_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create episode tables: %w", err)
	}

	ftsSchema := `
	CREATE VIRTUAL TABLE IF NOT EXISTS episodes_fts USING fts5(
		content,
		episode_id UNINDEXED
	);`
	if _, err := s.db.Exec(ftsSchema); err != nil {
		// Binary built without the sqlite_fts5 tag; keep a plain index
		// table so storage and substring recall still work.
		s.logger.Warn().Err(err).Msg("FTS5 unavailable, keyword recall degrades to substring scans")
		plain := `
		CREATE TABLE IF NOT EXISTS episodes_fts (
			content TEXT NOT NULL,
			episode_id TEXT NOT NULL
		);`
		if _, err := s.db.Exec(plain); err != nil {
			return fmt.Errorf("failed to create episode index table: %w", err)
		}
	} else {
		s.fts = true
	}

	if s.embedder != nil {
		vectorSchema := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS episode_embeddings USING vec0(
			episode_id TEXT PRIMARY KEY,
			embedding FLOAT[%d]
		);`, s.embedder.Dimension())
		if _, err := s.db.Exec(vectorSchema); err != nil {
			return fmt.Errorf("failed to create vector table: %w", err)
		}
	}
	return nil
}

// StoreEpisode saves a resolved task so similar problems are not
// relearned from scratch. Returns the new episode id.
func (s *Store) StoreEpisode(ctx context.Context, task, resultSummary string) (string, error) {
	return s.storeKind(ctx, task, resultSummary, "episode")
}

func (s *Store) storeKind(ctx context.Context, task, summary, kind string) (string, error) {
	id := uuid.NewString()
	content := fmt.Sprintf("Task: %s\nSolution/Result: %s", task, summary)

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, task, summary, kind, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, task, summary, kind, time.Now().UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("failed to store episode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO episodes_fts (content, episode_id) VALUES (?, ?)`,
		content, id,
	); err != nil {
		return "", fmt.Errorf("failed to index episode: %w", err)
	}

	if s.embedder != nil {
		// Vector indexing is best-effort; keyword recall still works.
		if err := s.storeEmbedding(ctx, id, content); err != nil {
			s.logger.Warn().Err(err).Str("episodeId", id).Msg("Failed to store episode embedding")
		}
	}

	s.logger.Info().Str("episodeId", id).Str("kind", kind).Msg("Stored episode in long-term memory")
	return id, nil
}

func (s *Store) storeEmbedding(ctx context.Context, id, content string) error {
	vector, err := s.embedder.GenerateEmbedding(ctx, content)
	if err != nil {
		return err
	}
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO episode_embeddings (episode_id, embedding) VALUES (?, ?)`, id, blob)
	return err
}

// SearchSimilar retrieves past episodes relevant to a query, best first.
// Keyword hits and vector hits are merged and deduplicated; topK caps
// the result.
func (s *Store) SearchSimilar(ctx context.Context, query string, topK int) ([]Episode, error) {
	if topK <= 0 {
		topK = 3
	}

	results, err := s.keywordSearch(ctx, query, topK)
	if err != nil {
		return nil, err
	}

	if s.embedder != nil {
		vectorResults, vErr := s.vectorSearch(ctx, query, topK)
		if vErr != nil {
			s.logger.Warn().Err(vErr).Msg("Vector recall failed, keyword results only")
		} else {
			results = mergeResults(results, vectorResults, topK)
		}
	}
	return results, nil
}

func (s *Store) keywordSearch(ctx context.Context, query string, topK int) ([]Episode, error) {
	if !s.fts {
		return s.likeSearch(ctx, query, topK)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, f.content, e.task, e.kind, bm25(episodes_fts) AS score
		FROM episodes_fts f
		JOIN episodes e ON e.id = f.episode_id
		WHERE episodes_fts MATCH ?
		ORDER BY score
		LIMIT ?`, ftsQuery(query), topK)
	if err != nil {
		// FTS5 rejects queries it cannot parse; degrade to a LIKE scan.
		return s.likeSearch(ctx, query, topK)
	}
	defer rows.Close()
	return scanEpisodes(rows, func(raw float64) float64 { return -raw })
}

func (s *Store) likeSearch(ctx context.Context, query string, topK int) ([]Episode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, f.content, e.task, e.kind, 0.0
		FROM episodes_fts f
		JOIN episodes e ON e.id = f.episode_id
		WHERE f.content LIKE '%' || ? || '%'
		LIMIT ?`, query, topK)
	if err != nil {
		return nil, fmt.Errorf("keyword recall failed: %w", err)
	}
	defer rows.Close()
	return scanEpisodes(rows, func(raw float64) float64 { return raw })
}

func (s *Store) vectorSearch(ctx context.Context, query string, topK int) ([]Episode, error) {
	vector, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}
	blob, err := sqlite_vec.SerializeFloat32(vector)
	if err != nil {
		return nil, err
	}

	// The KNN constraint runs in its own scan; joining afterwards keeps
	// the vec0 query planner happy.
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.episode_id, f.content, e.task, e.kind, v.distance
		FROM (
			SELECT episode_id, distance
			FROM episode_embeddings
			WHERE embedding MATCH ? AND k = ?
			ORDER BY distance
		) v
		JOIN episodes e ON e.id = v.episode_id
		JOIN episodes_fts f ON f.episode_id = v.episode_id
		ORDER BY v.distance`, blob, topK)
	if err != nil {
		return nil, fmt.Errorf("vector recall failed: %w", err)
	}
	defer rows.Close()
	return scanEpisodes(rows, func(distance float64) float64 { return 1.0 / (1.0 + distance) })
}

func scanEpisodes(rows *sql.Rows, score func(float64) float64) ([]Episode, error) {
	var out []Episode
	for rows.Next() {
		var ep Episode
		var task, kind string
		var raw float64
		if err := rows.Scan(&ep.ID, &ep.Content, &task, &kind, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		ep.Score = score(raw)
		ep.Metadata = map[string]string{"task": task, "kind": kind}
		out = append(out, ep)
	}
	return out, rows.Err()
}

// ftsQuery quotes each term so user text with FTS operators cannot break
// the MATCH expression.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		clean := strings.ReplaceAll(term, `"`, "")
		if clean == "" {
			continue
		}
		quoted = append(quoted, `"`+clean+`"`)
	}
	return strings.Join(quoted, " OR ")
}

func mergeResults(keyword, vector []Episode, topK int) []Episode {
	best := make(map[string]Episode, len(keyword)+len(vector))
	for _, ep := range append(keyword, vector...) {
		if existing, ok := best[ep.ID]; !ok || ep.Score > existing.Score {
			best[ep.ID] = ep
		}
	}
	merged := make([]Episode, 0, len(best))
	for _, ep := range best {
		merged = append(merged, ep)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
