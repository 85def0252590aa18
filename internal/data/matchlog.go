package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rehanumarkhan/tele-monitor/internal/biz/domain"
	"github.com/rehanumarkhan/tele-monitor/internal/biz/repo"
	"github.com/rehanumarkhan/tele-monitor/internal/logging"

	_ "modernc.org/sqlite"
)

// matchLogRepo implements the detailed-message log on sqlite
type matchLogRepo struct {
	db  *sql.DB
	loc *time.Location
}

// NewMatchLogRepo opens the match log. ":memory:" keeps the log for the
// lifetime of the process only.
func NewMatchLogRepo(dbPath string, loc *time.Location) (repo.MatchLogRepo, error) {
	if loc == nil {
		loc = time.UTC
	}

	memory := dbPath == "" || dbPath == ":memory:"
	if memory {
		dbPath = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS match_log (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT UNIQUE NOT NULL,
			keyword TEXT NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL,
			sender_name TEXT NOT NULL,
			chat_id TEXT,
			chat_name TEXT NOT NULL,
			chat_name_lower TEXT NOT NULL,
			date TEXT NOT NULL,
			occurred_at INTEGER NOT NULL,
			message_link TEXT NOT NULL,
			channel TEXT
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create match_log table: %w", err)
	}

	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_match_log_keyword ON match_log(keyword)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_match_log_date ON match_log(date)`)
	_, _ = db.Exec(`CREATE INDEX IF NOT EXISTS idx_match_log_chat ON match_log(chat_name_lower)`)

	log := logging.Component("MatchLog")
	log.Info().Str("path", dbPath).Msg("database initialized")
	return &matchLogRepo{db: db, loc: loc}, nil
}

// Append stores one match record
func (r *matchLogRepo) Append(ctx context.Context, rec *domain.MatchRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO match_log (id, keyword, source, message, sender_name, chat_id, chat_name,
			chat_name_lower, date, occurred_at, message_link, channel)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Keyword, string(rec.Source), rec.Text, rec.SenderName, rec.ChatID, rec.ChatName,
		strings.ToLower(rec.ChatName), rec.Date(), rec.Timestamp.UnixMilli(), rec.Link, rec.Channel)
	if err != nil {
		return fmt.Errorf("failed to append match log: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, keyword, source, message, sender_name, chat_id, chat_name,
	occurred_at, message_link, channel FROM match_log`

// ByKeyword returns entries with exactly this keyword
func (r *matchLogRepo) ByKeyword(ctx context.Context, keyword string) ([]*domain.MatchRecord, error) {
	return r.query(ctx, selectColumns+` WHERE keyword = ? ORDER BY seq`, keyword)
}

// ByDate returns entries on day (YYYY-MM-DD)
func (r *matchLogRepo) ByDate(ctx context.Context, day string) ([]*domain.MatchRecord, error) {
	return r.query(ctx, selectColumns+` WHERE substr(date, 1, 10) = ? ORDER BY seq`, day)
}

// ByChat returns entries from the chat with this name, case-insensitively
func (r *matchLogRepo) ByChat(ctx context.Context, name string) ([]*domain.MatchRecord, error) {
	return r.query(ctx, selectColumns+` WHERE chat_name_lower = ? ORDER BY seq`, strings.ToLower(name))
}

// Count returns the number of entries
func (r *matchLogRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM match_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count match log: %w", err)
	}
	return n, nil
}

// Close closes the database
func (r *matchLogRepo) Close() error {
	return r.db.Close()
}

func (r *matchLogRepo) query(ctx context.Context, query string, args ...interface{}) ([]*domain.MatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query match log: %w", err)
	}
	defer rows.Close()

	var records []*domain.MatchRecord
	for rows.Next() {
		rec, err := r.scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *matchLogRepo) scanRecord(rows *sql.Rows) (*domain.MatchRecord, error) {
	var rec domain.MatchRecord
	var source string
	var chatID, channel sql.NullString
	var occurredAt int64

	err := rows.Scan(&rec.ID, &rec.Keyword, &source, &rec.Text, &rec.SenderName, &chatID,
		&rec.ChatName, &occurredAt, &rec.Link, &channel)
	if err != nil {
		return nil, fmt.Errorf("failed to scan match log row: %w", err)
	}

	rec.Source = domain.SourceKind(source)
	rec.ChatID = chatID.String
	rec.Channel = channel.String
	rec.Timestamp = time.UnixMilli(occurredAt).In(r.loc)
	return &rec, nil
}
