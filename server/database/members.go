package database

import (
	"context"
	"errors"
	"time"

	"github.com/ctolnik/work-eye/server/activity"
	"github.com/jackc/pgx/v5"
)

// MemberByEmail looks a member up case-insensitively. A missing row is
// activity.ErrUnverified.
func (s *Store) MemberByEmail(ctx context.Context, email string) (activity.Member, error) {
	const query = `SELECT id, email, full_name, is_active, status
        FROM members WHERE LOWER(email) = LOWER($1)`

	start := time.Now()
	var m activity.Member
	err := s.pool.QueryRow(ctx, query, email).Scan(&m.ID, &m.Email, &m.FullName, &m.IsActive, &m.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return activity.Member{}, activity.ErrUnverified
	}
	if err := observe(ctx, "select", "members", start, err); err != nil {
		return activity.Member{}, err
	}
	return m, nil
}

// CountActiveMembers counts members allowed to report.
func (s *Store) CountActiveMembers(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM members WHERE is_active AND status = 'active'`

	start := time.Now()
	var n int
	err := s.pool.QueryRow(ctx, query).Scan(&n)
	return n, observe(ctx, "select", "members", start, err)
}
