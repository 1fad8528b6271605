package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"document-qa/internal/config"
	"document-qa/internal/helper"
	"document-qa/internal/models"
	"document-qa/internal/sessions"
)

const (
	DriverPG = "pgdriver"
	DriverPQ = "pq"
)

type ChatSession struct {
	bun.BaseModel `bun:"table:chat_sessions,alias:cs"`
	ID            string    `bun:"id,pk"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type ChatMessage struct {
	bun.BaseModel `bun:"table:chat_messages,alias:cm"`
	ID            int64  `bun:"id,pk,autoincrement"`
	SessionID     string `bun:"session_id,notnull"`
	Timestamp     string `bun:"timestamp,notnull"`
	SystemMessage string `bun:"system_message"`
	Question      string `bun:"question"`
	Answer        string `bun:"answer"`
	Source        string `bun:"source"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

// ConnectDB opens a lazy connection pool with the configured driver.
func ConnectDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is required")
	}
	dsn := cfg.URL
	if !strings.Contains(dsn, "sslmode=") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "sslmode=disable"
	}

	switch cfg.Driver {
	case DriverPG, "":
		opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
		if cfg.Password != "" {
			opts = append(opts, pgdriver.WithPassword(cfg.Password))
		}
		return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
	case DriverPQ:
		return sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func InitDB(ctx context.Context, db *bun.DB) error {
	for _, model := range []any{(*ChatSession)(nil), (*ChatMessage)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	_, err := db.NewCreateIndex().Model((*ChatMessage)(nil)).Index("chat_messages_session_idx").
		IfNotExists().Column("session_id", "id").Exec(ctx)
	return err
}

// SessionStore keeps chat histories in Postgres.
type SessionStore struct {
	db *bun.DB
}

var _ sessions.Store = (*SessionStore)(nil)

func NewSessionStore(db *bun.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Create(ctx context.Context) (string, error) {
	id, err := helper.GenerateUUID()
	if err != nil {
		return "", err
	}
	if err := s.Ensure(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SessionStore) Ensure(ctx context.Context, id string) error {
	return ensureSession(ctx, s.db, id)
}

func ensureSession(ctx context.Context, db bun.IDB, id string) error {
	if !models.IsValidSessionID(id) {
		return fmt.Errorf("session id %q: %w", id, models.ErrInvalidInput)
	}
	if _, err := ensureQuery(db, id).Exec(ctx); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func ensureQuery(db bun.IDB, id string) *bun.InsertQuery {
	return db.NewInsert().Model(&ChatSession{ID: id}).On("CONFLICT (id) DO NOTHING")
}

func (s *SessionStore) List(ctx context.Context) ([]string, error) {
	ids := []string{}
	if err := listQuery(s.db).Scan(ctx, &ids); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return ids, nil
}

func listQuery(db bun.IDB) *bun.SelectQuery {
	return db.NewSelect().Model((*ChatSession)(nil)).Column("id").Order("created_at ASC", "id ASC")
}

// History returns the messages of id oldest first, or ErrSessionNotFound when
// no such session was created.
func (s *SessionStore) History(ctx context.Context, id string) ([]models.ChatMessage, error) {
	var rows []ChatMessage
	if err := historyQuery(s.db, id, &rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	if len(rows) == 0 {
		exists, err := sessionQuery(s.db, id).Exists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		if !exists {
			return nil, fmt.Errorf("session %q: %w", id, models.ErrSessionNotFound)
		}
	}
	history := make([]models.ChatMessage, len(rows))
	for i, r := range rows {
		history[i] = r.toModel()
	}
	return history, nil
}

func historyQuery(db bun.IDB, id string, rows *[]ChatMessage) *bun.SelectQuery {
	return db.NewSelect().Model(rows).Where("session_id = ?", id).Order("id ASC")
}

func sessionQuery(db bun.IDB, id string) *bun.SelectQuery {
	return db.NewSelect().Model((*ChatSession)(nil)).Where("id = ?", id)
}

func (s *SessionStore) Append(ctx context.Context, id string, msg models.ChatMessage) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureSession(ctx, tx, id); err != nil {
			return err
		}
		row := fromModel(id, msg)
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return fmt.Errorf("failed to append message: %w", err)
		}
		return nil
	})
}

func (s *SessionStore) Delete(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*ChatMessage)(nil)).Where("session_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().Model((*ChatSession)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return deleted, nil
}

func fromModel(sessionID string, m models.ChatMessage) ChatMessage {
	return ChatMessage{
		SessionID:     sessionID,
		Timestamp:     m.Timestamp,
		SystemMessage: m.SystemMessage,
		Question:      m.Question,
		Answer:        m.Answer,
		Source:        m.Source,
	}
}

func (r ChatMessage) toModel() models.ChatMessage {
	return models.ChatMessage{
		Timestamp:     r.Timestamp,
		SystemMessage: r.SystemMessage,
		Question:      r.Question,
		Answer:        r.Answer,
		Source:        r.Source,
	}
}
