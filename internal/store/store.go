// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists articles and assessments in SQLite so classify runs
// can skip articles already assessed and past results can be searched.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/fourp-digest/pkg/types"
)

const (
	indexDir = "index"
	dbFile   = "digest.db"

	defaultMaxResults = 20
)

// Store manages the assessment database at <DataDir>/index/digest.db.
type Store struct {
	db         *sql.DB
	dataDir    string
	maxResults int

	// fts is false when the SQLite build lacks FTS5; text queries then fall
	// back to LIKE matching.
	fts bool
}

// Open opens or creates the database and its schema.
func Open(cfg types.StoreConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "data"
	}
	dbDir := filepath.Join(dataDir, indexDir)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dbDir, dbFile)+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dataDir: dataDir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return filepath.Join(s.dataDir, indexDir, dbFile)
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			pmid TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			journal TEXT NOT NULL DEFAULT '',
			publication_date TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			authors TEXT,
			publication_types TEXT,
			updated_at TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS assessments (
			pmid TEXT NOT NULL REFERENCES articles(pmid),
			model TEXT NOT NULL,
			provider TEXT,
			is_relevant INTEGER NOT NULL,
			aspects TEXT,
			is_large_trial INTEGER NOT NULL,
			summary TEXT,
			revolutionary_aspects TEXT,
			impact_score INTEGER NOT NULL,
			run_id TEXT,
			assessed_at TEXT,
			PRIMARY KEY (pmid, model)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_model ON assessments(model)`,
		`CREATE INDEX IF NOT EXISTS idx_assessments_score ON assessments(impact_score)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table over title and abstract, kept in sync by triggers.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(`CREATE VIRTUAL TABLE articles_fts USING fts5(title, abstract, content=articles, content_rowid=rowid)`); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			slog.Debug("SQLite built without FTS5, text queries use LIKE")
			return nil
		}
		return fmt.Errorf("creating FTS table: %w", err)
	}
	triggers := []string{
		`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
			INSERT INTO articles_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
		END`,
		`CREATE TRIGGER articles_ad AFTER DELETE ON articles BEGIN
			INSERT INTO articles_fts(articles_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
		END`,
		`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
			INSERT INTO articles_fts(articles_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			INSERT INTO articles_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

const upsertArticleSQL = `INSERT INTO articles (pmid, title, journal, publication_date, abstract, url, authors, publication_types, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(pmid) DO UPDATE SET
		title=excluded.title, journal=excluded.journal,
		publication_date=excluded.publication_date, abstract=excluded.abstract,
		url=excluded.url, authors=excluded.authors,
		publication_types=excluded.publication_types, updated_at=excluded.updated_at`

// SaveArticles upserts articles keyed by PMID and returns how many were written.
func (s *Store) SaveArticles(ctx context.Context, articles []types.Article) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertArticleSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	n := 0
	for _, a := range articles {
		if a.ID == "" {
			continue
		}
		if err := execArticle(ctx, stmt, a, now); err != nil {
			return 0, err
		}
		n++
	}
	return n, tx.Commit()
}

func execArticle(ctx context.Context, stmt *sql.Stmt, a types.Article, now string) error {
	authorsJSON, _ := json.Marshal(a.Authors)
	typesJSON, _ := json.Marshal(a.PublicationTypes)
	_, err := stmt.ExecContext(ctx,
		a.ID, a.Title, a.Journal, a.PublicationDate, a.Abstract, a.URL,
		string(authorsJSON), string(typesJSON), now,
	)
	if err != nil {
		return fmt.Errorf("upserting article %s: %w", a.ID, err)
	}
	return nil
}

// SaveAssessments upserts assessments keyed by PMID and model, together with
// their articles, and returns how many were written.
func (s *Store) SaveAssessments(ctx context.Context, assessments []types.Assessment) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	artStmt, err := tx.PrepareContext(ctx, upsertArticleSQL)
	if err != nil {
		return 0, fmt.Errorf("preparing article insert: %w", err)
	}
	defer artStmt.Close()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO assessments (pmid, model, provider, is_relevant, aspects, is_large_trial,
			summary, revolutionary_aspects, impact_score, run_id, assessed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pmid, model) DO UPDATE SET
			provider=excluded.provider, is_relevant=excluded.is_relevant,
			aspects=excluded.aspects, is_large_trial=excluded.is_large_trial,
			summary=excluded.summary, revolutionary_aspects=excluded.revolutionary_aspects,
			impact_score=excluded.impact_score, run_id=excluded.run_id,
			assessed_at=excluded.assessed_at`)
	if err != nil {
		return 0, fmt.Errorf("preparing assessment insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	n := 0
	for _, a := range assessments {
		if a.Article.ID == "" {
			continue
		}
		if err := execArticle(ctx, artStmt, a.Article, now); err != nil {
			return 0, err
		}

		aspectsJSON, _ := json.Marshal(a.AspectStrings())
		var notable sql.NullString
		if a.NotableFindings != nil {
			notable = sql.NullString{String: *a.NotableFindings, Valid: true}
		}
		assessedAt := ""
		if !a.AssessedAt.IsZero() {
			assessedAt = a.AssessedAt.UTC().Format(time.RFC3339)
		}
		_, err := stmt.ExecContext(ctx,
			a.Article.ID, a.Model, a.Provider, a.Relevant, string(aspectsJSON), a.LargeTrial,
			a.Summary, notable, a.Score, a.RunID, assessedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("upserting assessment %s: %w", a.Article.ID, err)
		}
		n++
	}
	return n, tx.Commit()
}

// Assessed returns the PMIDs that already have an assessment from model.
func (s *Store) Assessed(ctx context.Context, model string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT pmid FROM assessments WHERE model = ?`, model)
	if err != nil {
		return nil, fmt.Errorf("listing assessed articles: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var pmid string
		if err := rows.Scan(&pmid); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out[pmid] = true
	}
	return out, rows.Err()
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	Articles    int
	Assessments int
	Failed      int
}

// Total returns the number of records written.
func (s IngestSummary) Total() int {
	return s.Articles + s.Assessments
}

// Ingest loads articles or assessments JSON files into the store. The kind
// of each file is detected from its records: assessment records carry a
// "paper" object.
func (s *Store) Ingest(ctx context.Context, paths []string, w io.Writer) (IngestSummary, error) {
	var sum IngestSummary
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			sum.Failed++
			continue
		}

		assessments, articles, err := decodeRecords(data)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			sum.Failed++
			continue
		}

		if assessments != nil {
			n, err := s.SaveAssessments(ctx, assessments)
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", path, err)
				sum.Failed++
				continue
			}
			fmt.Fprintf(w, "ingested %s (%d assessments)\n", path, n)
			sum.Assessments += n
			continue
		}

		n, err := s.SaveArticles(ctx, articles)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", path, err)
			sum.Failed++
			continue
		}
		fmt.Fprintf(w, "ingested %s (%d articles)\n", path, n)
		sum.Articles += n
	}

	fmt.Fprintf(w, "\narticles: %d, assessments: %d, failed: %d\n", sum.Articles, sum.Assessments, sum.Failed)
	return sum, nil
}

var errUnknownRecords = errors.New("file holds neither articles nor assessments")

func decodeRecords(data []byte) ([]types.Assessment, []types.Article, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, []types.Article{}, nil
	}
	if _, ok := raw[0]["paper"]; ok {
		var out []types.Assessment
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, nil, fmt.Errorf("parsing assessments: %w", err)
		}
		return out, nil, nil
	}
	if _, ok := raw[0]["pubmed_id"]; ok {
		var out []types.Article
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, nil, fmt.Errorf("parsing articles: %w", err)
		}
		return nil, out, nil
	}
	return nil, nil, errUnknownRecords
}
