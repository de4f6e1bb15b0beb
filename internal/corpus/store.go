package corpus

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Chunk is one stored regulatory text chunk with its embedding.
type Chunk struct {
	RuleID    string
	Source    string
	Seq       int
	Text      string
	Embedding []float32
}

// Stats summarizes the state of the corpus store.
type Stats struct {
	ChunkCount  int      `json:"chunk_count"`
	SourceCount int      `json:"source_count"`
	Sources     []string `json:"sources,omitempty"`
}

// Store persists corpus chunks in SQLite. Writes happen only during offline
// ingestion; query-time access is read-only.
type Store struct {
	db *sql.DB
}

// OpenStore opens the corpus database at the given path and configures WAL mode.
func OpenStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "corpus: exec %s", pragma)
		}
	}
	return &Store{db: db}, nil
}

const migration = `
CREATE TABLE IF NOT EXISTS chunks (
	rule_id    TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	text       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source);
`

// Migrate creates the chunks table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, migration)
	return eris.Wrap(err, "corpus: migrate")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AddChunks inserts chunks in a single transaction, replacing any existing
// chunk with the same rule ID so re-ingesting a source is idempotent.
func (s *Store) AddChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "corpus: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO chunks (rule_id, source, seq, text, embedding) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "corpus: prepare insert")
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.RuleID, c.Source, c.Seq, c.Text, encodeVector(c.Embedding)); err != nil {
			return eris.Wrapf(err, "corpus: insert chunk %s", c.RuleID)
		}
	}

	return eris.Wrap(tx.Commit(), "corpus: commit")
}

// LoadAll reads every chunk with its embedding, ordered by source and sequence.
func (s *Store) LoadAll(ctx context.Context) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rule_id, source, seq, text, embedding FROM chunks ORDER BY source, seq`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: load chunks")
	}
	defer rows.Close()

	var chunks []Chunk
	for rows.Next() {
		var c Chunk
		var blob []byte
		if err := rows.Scan(&c.RuleID, &c.Source, &c.Seq, &c.Text, &blob); err != nil {
			return nil, eris.Wrap(err, "corpus: scan chunk")
		}
		c.Embedding = decodeVector(blob)
		chunks = append(chunks, c)
	}
	return chunks, eris.Wrap(rows.Err(), "corpus: iterate chunks")
}

// Stats returns chunk and source counts.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&st.ChunkCount); err != nil {
		return nil, eris.Wrap(err, "corpus: count chunks")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT source FROM chunks ORDER BY source`)
	if err != nil {
		return nil, eris.Wrap(err, "corpus: list sources")
	}
	defer rows.Close()

	for rows.Next() {
		var src string
		if err := rows.Scan(&src); err != nil {
			return nil, eris.Wrap(err, "corpus: scan source")
		}
		st.Sources = append(st.Sources, src)
	}
	st.SourceCount = len(st.Sources)
	return st, eris.Wrap(rows.Err(), "corpus: iterate sources")
}

// encodeVector serializes an embedding as little-endian float32 bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector deserializes little-endian float32 bytes into an embedding.
func decodeVector(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
