package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/LennoxSears/dulaan-backend-sub001/internal/control"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Postgres persists session state in a single sessions table with the
// conversation history as JSONB.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres runs pending migrations and opens the connection pool.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if err := migrate(dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func migrate(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("postgres open for migrate: %w", err)
	}
	defer db.Close()
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Save(ctx context.Context, state control.State) error {
	turns, err := json.Marshal(state.Turns)
	if err != nil {
		return fmt.Errorf("marshal turns: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO sessions (id, pwm, turns, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET pwm = $2, turns = $3, updated_at = now()`,
		state.SessionID, state.PWM, turns)
	if err != nil {
		return fmt.Errorf("save session %s: %w", state.SessionID, err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, sessionID string) (control.State, bool, error) {
	var (
		pwm   int
		turns []byte
	)
	err := p.pool.QueryRow(ctx,
		`SELECT pwm, turns FROM sessions WHERE id = $1`, sessionID).Scan(&pwm, &turns)
	if err == pgx.ErrNoRows {
		return control.State{}, false, nil
	}
	if err != nil {
		return control.State{}, false, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	state := control.State{SessionID: sessionID, PWM: control.Clamp(pwm)}
	if len(turns) > 0 {
		if err := json.Unmarshal(turns, &state.Turns); err != nil {
			return control.State{}, false, fmt.Errorf("decode turns for %s: %w", sessionID, err)
		}
	}
	return state, true, nil
}

func (p *Postgres) Delete(ctx context.Context, sessionID string) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	return nil
}

func (p *Postgres) Close() { p.pool.Close() }
