// Package ingest accepts device snapshots and fans them out to the store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/ctolnik/work-eye/server/activity"
)

// MemberLookup finds a member by lowercased email. A missing member is
// reported as activity.ErrUnverified.
type MemberLookup interface {
	MemberByEmail(ctx context.Context, email string) (activity.Member, error)
}

// Gate checks an email against the member allow-list.
type Gate struct {
	members MemberLookup
}

func NewGate(members MemberLookup) *Gate {
	return &Gate{members: members}
}

// Verify returns the member for email. ErrUnverified covers empty and unknown
// emails; ErrInactive covers members that exist but may not report.
func (g *Gate) Verify(ctx context.Context, email string) (activity.Member, error) {
	email = activity.NormalizeEmail(email)
	if email == "" {
		return activity.Member{}, activity.ErrUnverified
	}
	m, err := g.members.MemberByEmail(ctx, email)
	if errors.Is(err, activity.ErrUnverified) {
		return activity.Member{}, err
	}
	if err != nil {
		return activity.Member{}, fmt.Errorf("verify member: %w", err)
	}
	if !m.Eligible() {
		return activity.Member{}, activity.ErrInactive
	}
	return m, nil
}
