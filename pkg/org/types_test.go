package org

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huddlehq/huddle/pkg/authz"
)

func TestNewEnrollsOwner(t *testing.T) {
	o, err := New("Acme Corp", "u1")
	require.NoError(t, err)

	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "acme-corp", o.Slug)
	assert.Equal(t, "u1", o.OwnerID)

	m, ok := o.Member("u1")
	require.True(t, ok)
	assert.Equal(t, authz.RoleOwner, m.Role)
}

func TestNewValidation(t *testing.T) {
	_, err := New("  ", "u1")
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = New("Acme", "")
	assert.ErrorIs(t, err, ErrOwnerRequired)
}

func TestAddMember(t *testing.T) {
	o, err := New("Acme", "u1")
	require.NoError(t, err)

	require.NoError(t, o.AddMember("u2", authz.RoleAdmin, time.Now()))

	m, ok := o.Member("u2")
	require.True(t, ok)
	assert.Equal(t, authz.RoleAdmin, m.Role)

	assert.ErrorIs(t, o.AddMember("u2", authz.RoleMember, time.Now()), ErrAlreadyMember)
	assert.ErrorIs(t, o.AddMember("u3", authz.Role("wizard"), time.Now()), ErrInvalidRole)
}

func TestRemoveMember(t *testing.T) {
	o, err := New("Acme", "u1")
	require.NoError(t, err)
	require.NoError(t, o.AddMember("u2", authz.RoleMember, time.Now()))

	require.NoError(t, o.RemoveMember("u2", time.Now()))
	_, ok := o.Member("u2")
	assert.False(t, ok)

	assert.ErrorIs(t, o.RemoveMember("u2", time.Now()), ErrNotAMember)
	assert.ErrorIs(t, o.RemoveMember("u1", time.Now()), ErrOwnerImmutable)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Acme Corp":        "acme-corp",
		"  Spaced  ":       "spaced",
		"Ops_Team 2024":    "ops-team-2024",
		"Émoji & Symbols!": "moji--symbols",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), "slugify(%q)", in)
	}
}
