// Package org holds the organization entity consumed by permission
// resolution. An organization owns teams and resources and carries its own
// member list with organization-scope roles.
package org

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/huddlehq/huddle/pkg/authz"
)

// Member links a user to an organization with an organization-scope role.
type Member struct {
	UserID   string     `json:"user_id"`
	Role     authz.Role `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Organization is the aggregate consumed by the resolver's organization
// queries. The owner always has a corresponding owner membership.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	OwnerID   string    `json:"owner_id"`
	Members   []Member  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an organization and enrolls the owner as an owner-role member
// in the same operation; there is no intermediate state without an owner.
func New(name, ownerID string) (*Organization, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrNameRequired
	}
	if ownerID == "" {
		return nil, ErrOwnerRequired
	}

	now := time.Now().UTC()
	return &Organization{
		ID:      uuid.NewString(),
		Name:    name,
		Slug:    slugify(name),
		OwnerID: ownerID,
		Members: []Member{
			{UserID: ownerID, Role: authz.RoleOwner, JoinedAt: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Member returns the membership for userID, if any.
func (o *Organization) Member(userID string) (Member, bool) {
	for _, m := range o.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Member{}, false
}

// AddMember enrolls a user. Duplicate user IDs and invalid roles are
// rejected.
func (o *Organization) AddMember(userID string, role authz.Role, now time.Time) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if _, ok := o.Member(userID); ok {
		return ErrAlreadyMember
	}
	o.Members = append(o.Members, Member{UserID: userID, Role: role, JoinedAt: now.UTC()})
	o.UpdatedAt = now.UTC()
	return nil
}

// RemoveMember drops a user's membership. The owner cannot be removed.
func (o *Organization) RemoveMember(userID string, now time.Time) error {
	if userID == o.OwnerID {
		return ErrOwnerImmutable
	}
	for i, m := range o.Members {
		if m.UserID == userID {
			o.Members = append(o.Members[:i], o.Members[i+1:]...)
			o.UpdatedAt = now.UTC()
			return nil
		}
	}
	return ErrNotAMember
}

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '-', r == '_':
			return '-'
		}
		return -1
	}, s)
	return strings.Trim(s, "-")
}
