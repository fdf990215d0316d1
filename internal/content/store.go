// Package content handles SQLite persistence of practice texts and words.
package content

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrNoContent is returned when a lookup matches nothing, e.g. an unknown
// language or an empty difficulty bucket.
var ErrNoContent = errors.New("no matching content")

// Text is one practice text row.
type Text struct {
	ID         int64  `json:"id"`
	Language   string `json:"language"`
	Difficulty string `json:"difficulty"`
	Content    string `json:"text"`
}

// Store wraps SQLite access for texts and words.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database, applies migrations and seeds
// the default corpus when the texts table is empty.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS texts (
			id INTEGER PRIMARY KEY,
			language TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			content TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS words (
			id INTEGER PRIMARY KEY,
			language TEXT NOT NULL,
			word TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_texts_lang_diff ON texts(language, difficulty);`,
		`CREATE INDEX IF NOT EXISTS idx_words_lang ON words(language);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return s.seed()
}

func (s *Store) seed() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM texts`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	for _, t := range seedTexts {
		if _, err := tx.Exec(
			`INSERT INTO texts (language, difficulty, content) VALUES (?, ?, ?)`,
			t.Language, t.Difficulty, t.Content,
		); err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
			return err
		}
	}
	for lang, words := range seedWords {
		for _, w := range words {
			if _, err := tx.Exec(
				`INSERT INTO words (language, word) VALUES (?, ?)`,
				lang, w,
			); err != nil {
				if rerr := tx.Rollback(); rerr != nil {
					// Best-effort rollback.
					_ = rerr
				}
				return err
			}
		}
	}
	return tx.Commit()
}

// TextByID looks a single text up.
func (s *Store) TextByID(ctx context.Context, id int64) (Text, error) {
	var t Text
	err := s.db.QueryRowContext(ctx,
		`SELECT id, language, difficulty, content FROM texts WHERE id = ?`, id,
	).Scan(&t.ID, &t.Language, &t.Difficulty, &t.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Text{}, ErrNoContent
	}
	if err != nil {
		return Text{}, err
	}
	return t, nil
}

// AllTexts returns the whole corpus.
func (s *Store) AllTexts(ctx context.Context) ([]Text, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, language, difficulty, content FROM texts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var texts []Text
	for rows.Next() {
		var t Text
		if err := rows.Scan(&t.ID, &t.Language, &t.Difficulty, &t.Content); err != nil {
			return nil, err
		}
		texts = append(texts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return texts, nil
}

// TextIDsByLanguageAndDifficulty returns the ids of matching texts.
func (s *Store) TextIDsByLanguageAndDifficulty(ctx context.Context, language, difficulty string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM texts WHERE language = ? AND difficulty = ? ORDER BY id`,
		language, difficulty)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrNoContent
	}
	return ids, nil
}

// RandomWordByLanguage picks one word uniformly for a language.
func (s *Store) RandomWordByLanguage(ctx context.Context, language string) (string, error) {
	var word string
	err := s.db.QueryRowContext(ctx,
		`SELECT word FROM words WHERE language = ? ORDER BY RANDOM() LIMIT 1`,
		language,
	).Scan(&word)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoContent
	}
	if err != nil {
		return "", err
	}
	return word, nil
}

// RandomText picks one text uniformly for a language and difficulty. It
// satisfies the game registry's TextSource.
func (s *Store) RandomText(ctx context.Context, language, difficulty string) (int64, string, error) {
	var (
		id   int64
		body string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, content FROM texts WHERE language = ? AND difficulty = ? ORDER BY RANDOM() LIMIT 1`,
		language, difficulty,
	).Scan(&id, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrNoContent
	}
	if err != nil {
		return 0, "", err
	}
	return id, body, nil
}
