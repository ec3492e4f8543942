package internal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id             TEXT PRIMARY KEY,
	source_dir     TEXT NOT NULL,
	created_at     TEXT NOT NULL,
	detection_done INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS files (
	batch_id           TEXT NOT NULL,
	id                 TEXT NOT NULL,
	position           INTEGER NOT NULL,
	path               TEXT NOT NULL,
	size               INTEGER NOT NULL,
	content_hash       TEXT NOT NULL,
	perceptual_hash    TEXT,
	candidates         TEXT NOT NULL,
	selected_at        TEXT,
	ts_confidence      TEXT NOT NULL,
	exact_group_id     TEXT NOT NULL DEFAULT '',
	exact_confidence   TEXT NOT NULL,
	similar_group_id   TEXT NOT NULL DEFAULT '',
	similar_confidence TEXT NOT NULL,
	similar_kind       TEXT NOT NULL,
	discarded          INTEGER NOT NULL DEFAULT 0,
	flagged            INTEGER NOT NULL DEFAULT 0,
	flag_reason        TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (batch_id, id),
	FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS groups (
	batch_id   TEXT NOT NULL,
	id         TEXT NOT NULL,
	kind_table TEXT NOT NULL,
	members    TEXT NOT NULL,
	confidence TEXT NOT NULL,
	kind       TEXT NOT NULL,
	state      TEXT NOT NULL,
	PRIMARY KEY (batch_id, id),
	FOREIGN KEY (batch_id) REFERENCES batches(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_files_hash ON files(content_hash);
`

// Store persists batches between the import and review commands.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the sqlite database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBatch writes the full batch state in one transaction, replacing any
// previously stored version of the same batch.
func (s *Store) SaveBatch(b *Batch) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM batches WHERE id = ?`, b.ID); err != nil {
		return fmt.Errorf("clearing previous batch state: %w", err)
	}

	done := 0
	if b.DetectionDone {
		done = 1
	}
	_, err = tx.Exec(`INSERT INTO batches (id, source_dir, created_at, detection_done) VALUES (?, ?, ?, ?)`,
		b.ID, b.SourceDir, b.CreatedAt.Format(time.RFC3339Nano), done)
	if err != nil {
		return fmt.Errorf("inserting batch %s: %w", b.ID, err)
	}

	fileStmt, err := tx.Prepare(`INSERT INTO files
		(batch_id, id, position, path, size, content_hash, perceptual_hash,
		 candidates, selected_at, ts_confidence,
		 exact_group_id, exact_confidence,
		 similar_group_id, similar_confidence, similar_kind,
		 discarded, flagged, flag_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing file insert: %w", err)
	}
	defer fileStmt.Close()

	for pos, id := range b.Order {
		f := b.Files[id]

		candidates, err := json.Marshal(f.Candidates)
		if err != nil {
			return fmt.Errorf("encoding candidates for %s: %w", f.ID, err)
		}

		var phash sql.NullString
		if f.PerceptualHash != nil {
			phash = sql.NullString{String: strconv.FormatUint(*f.PerceptualHash, 16), Valid: true}
		}
		var selectedAt sql.NullString
		if f.HasSelectedTimestamp() {
			selectedAt = sql.NullString{String: f.SelectedAt.Format(time.RFC3339Nano), Valid: true}
		}

		_, err = fileStmt.Exec(
			b.ID, f.ID, pos, f.Path, f.Size, f.ContentHash, phash,
			string(candidates), selectedAt, f.TimestampConfidence.String(),
			f.ExactGroupID, f.ExactGroupConfidence.String(),
			f.SimilarGroupID, f.SimilarGroupConfidence.String(), f.SimilarGroupKind.String(),
			boolInt(f.Discarded), boolInt(f.Flagged), f.FlagReason,
		)
		if err != nil {
			return fmt.Errorf("inserting file %s: %w", f.ID, err)
		}
	}

	groupStmt, err := tx.Prepare(`INSERT INTO groups
		(batch_id, id, kind_table, members, confidence, kind, state)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing group insert: %w", err)
	}
	defer groupStmt.Close()

	for table, groups := range map[string]map[string]*Group{
		"exact":   b.ExactGroups,
		"similar": b.SimilarGroups,
	} {
		for _, g := range groups {
			members, err := json.Marshal(g.Members)
			if err != nil {
				return fmt.Errorf("encoding members for group %s: %w", g.ID, err)
			}
			_, err = groupStmt.Exec(b.ID, g.ID, table, string(members),
				g.Confidence.String(), g.Kind.String(), g.State.String())
			if err != nil {
				return fmt.Errorf("inserting group %s: %w", g.ID, err)
			}
		}
	}

	return tx.Commit()
}

// LoadBatch reads a stored batch back into an arena.
func (s *Store) LoadBatch(id string) (*Batch, error) {
	b := &Batch{
		Files:         make(map[string]*MediaFile),
		ExactGroups:   make(map[string]*Group),
		SimilarGroups: make(map[string]*Group),
	}

	var createdAt string
	var done int
	err := s.db.QueryRow(`SELECT id, source_dir, created_at, detection_done FROM batches WHERE id = ?`, id).
		Scan(&b.ID, &b.SourceDir, &createdAt, &done)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading batch %s: %w", id, err)
	}
	b.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing batch timestamp: %w", err)
	}
	b.DetectionDone = done != 0

	rows, err := s.db.Query(`SELECT id, path, size, content_hash, perceptual_hash,
		candidates, selected_at, ts_confidence,
		exact_group_id, exact_confidence,
		similar_group_id, similar_confidence, similar_kind,
		discarded, flagged, flag_reason
		FROM files WHERE batch_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("loading files for batch %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		f := &MediaFile{}
		var phash, selectedAt sql.NullString
		var candidates, tsConf, exactConf, similarConf, similarKind string
		var discarded, flagged int

		err := rows.Scan(&f.ID, &f.Path, &f.Size, &f.ContentHash, &phash,
			&candidates, &selectedAt, &tsConf,
			&f.ExactGroupID, &exactConf,
			&f.SimilarGroupID, &similarConf, &similarKind,
			&discarded, &flagged, &f.FlagReason)
		if err != nil {
			return nil, fmt.Errorf("scanning file row: %w", err)
		}

		if phash.Valid {
			h, err := strconv.ParseUint(phash.String, 16, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing perceptual hash for %s: %w", f.ID, err)
			}
			f.PerceptualHash = &h
		}
		if selectedAt.Valid {
			f.SelectedAt, err = time.Parse(time.RFC3339Nano, selectedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing selected timestamp for %s: %w", f.ID, err)
			}
		}
		if err := json.Unmarshal([]byte(candidates), &f.Candidates); err != nil {
			return nil, fmt.Errorf("decoding candidates for %s: %w", f.ID, err)
		}
		if f.TimestampConfidence, err = ParseConfidence(tsConf); err != nil {
			return nil, err
		}
		if f.ExactGroupConfidence, err = ParseConfidence(exactConf); err != nil {
			return nil, err
		}
		if f.SimilarGroupConfidence, err = ParseConfidence(similarConf); err != nil {
			return nil, err
		}
		if f.SimilarGroupKind, err = ParseSimilarKind(similarKind); err != nil {
			return nil, err
		}
		f.Discarded = discarded != 0
		f.Flagged = flagged != 0

		b.Files[f.ID] = f
		b.Order = append(b.Order, f.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file rows: %w", err)
	}

	groupRows, err := s.db.Query(`SELECT id, kind_table, members, confidence, kind, state
		FROM groups WHERE batch_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("loading groups for batch %s: %w", id, err)
	}
	defer groupRows.Close()

	for groupRows.Next() {
		g := &Group{}
		var table, members, conf, kind, state string
		if err := groupRows.Scan(&g.ID, &table, &members, &conf, &kind, &state); err != nil {
			return nil, fmt.Errorf("scanning group row: %w", err)
		}
		if err := json.Unmarshal([]byte(members), &g.Members); err != nil {
			return nil, fmt.Errorf("decoding members for group %s: %w", g.ID, err)
		}
		if g.Confidence, err = ParseConfidence(conf); err != nil {
			return nil, err
		}
		if g.Kind, err = ParseSimilarKind(kind); err != nil {
			return nil, err
		}
		if g.State, err = ParseGroupState(state); err != nil {
			return nil, err
		}

		switch table {
		case "exact":
			b.ExactGroups[g.ID] = g
		case "similar":
			b.SimilarGroups[g.ID] = g
		default:
			return nil, fmt.Errorf("unknown group table %q for group %s", table, g.ID)
		}
	}
	if err := groupRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating group rows: %w", err)
	}

	return b, nil
}

// LatestBatchID returns the most recently created batch, for commands that
// default to the last import.
func (s *Store) LatestBatchID() (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM batches ORDER BY created_at DESC LIMIT 1`).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no batches stored yet")
	}
	if err != nil {
		return "", fmt.Errorf("finding latest batch: %w", err)
	}
	return id, nil
}

// ListBatches returns stored batch ids with creation times, newest first.
func (s *Store) ListBatches() ([]BatchInfo, error) {
	rows, err := s.db.Query(`SELECT id, source_dir, created_at FROM batches ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var out []BatchInfo
	for rows.Next() {
		var info BatchInfo
		var createdAt string
		if err := rows.Scan(&info.ID, &info.SourceDir, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning batch row: %w", err)
		}
		info.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing batch timestamp: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// BatchInfo is one row of the batch listing.
type BatchInfo struct {
	ID        string
	SourceDir string
	CreatedAt time.Time
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
