package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/homecast/cast-notifier/internal/domain"
)

type pgSessionRepository struct {
	pool *pgxpool.Pool
}

// NewPgSessionRepository returns a SessionRepository backed by PostgreSQL.
func NewPgSessionRepository(pool *pgxpool.Pool) SessionRepository {
	return &pgSessionRepository{pool: pool}
}

func (r *pgSessionRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (id, target, text, status, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		s.ID, s.Target, s.Text, s.Status, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, target, text, status, error_message, created_at, finished_at
		FROM sessions WHERE id = $1`, id)

	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return s, err
}

func (r *pgSessionRepository) List(ctx context.Context, f domain.ListFilter) ([]*domain.Session, int, error) {
	where, args := buildListWhere(f)
	offset := (f.Page - 1) * f.Limit

	var total int
	countQuery := "SELECT COUNT(*) FROM sessions" + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count sessions: %w", err)
	}

	// Append pagination args after the WHERE args.
	args = append(args, f.Limit, offset)
	limitPlaceholder := fmt.Sprintf("$%d", len(args)-1)
	offsetPlaceholder := fmt.Sprintf("$%d", len(args))

	query := fmt.Sprintf(`
		SELECT id, target, text, status, error_message, created_at, finished_at
		FROM sessions%s
		ORDER BY created_at DESC
		LIMIT %s OFFSET %s`, where, limitPlaceholder, offsetPlaceholder)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, err
		}
		sessions = append(sessions, s)
	}
	return sessions, total, rows.Err()
}

func (r *pgSessionRepository) UpdateStatus(ctx context.Context, id string, status domain.SessionStatus) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions SET status = $1 WHERE id = $2`, status, id)
	return err
}

func (r *pgSessionRepository) MarkFinished(ctx context.Context, id string, status domain.SessionStatus, errMsg string, finishedAt time.Time) error {
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	_, err := r.pool.Exec(ctx, `
		UPDATE sessions
		SET status = $1, error_message = $2, finished_at = $3
		WHERE id = $4`, status, msg, finishedAt, id)
	return err
}

// scanSession reads a single session row from any pgx row type.
func scanSession(row pgx.Row) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.Target, &s.Text, &s.Status,
		&s.ErrorMessage, &s.CreatedAt, &s.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// buildListWhere builds a parameterised WHERE clause from a ListFilter.
func buildListWhere(f domain.ListFilter) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(condition, len(args)))
	}

	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Target != nil {
		add("target = $%d", *f.Target)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}
