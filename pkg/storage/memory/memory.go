// Package memory provides mutex-guarded in-process implementations of the
// storage repositories. State is copied on the way in and out, so callers
// never share mutable aggregates with the store. Used by tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/huddlehq/huddle/pkg/org"
	"github.com/huddlehq/huddle/pkg/resource"
	"github.com/huddlehq/huddle/pkg/storage"
	"github.com/huddlehq/huddle/pkg/team"
)

// Store bundles the three in-memory repositories behind one construction
// point.
type Store struct {
	Teams         *TeamStore
	Organizations *OrganizationStore
	Resources     *ResourceStore
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		Teams:         NewTeamStore(),
		Organizations: NewOrganizationStore(),
		Resources:     NewResourceStore(),
	}
}

type teamRecord struct {
	orgID       string
	name        string
	ownerID     string
	members     []team.Membership
	invitations []team.Invitation
	createdAt   time.Time
	updatedAt   time.Time
}

// TeamStore implements storage.TeamRepository over a map.
type TeamStore struct {
	mu    sync.RWMutex
	teams map[string]teamRecord
}

// NewTeamStore creates an empty team store.
func NewTeamStore() *TeamStore {
	return &TeamStore{teams: make(map[string]teamRecord)}
}

func (s *TeamStore) FindByID(ctx context.Context, id string) (*team.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.teams[id]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", id, storage.ErrNotFound)
	}
	return rehydrate(id, rec), nil
}

func (s *TeamStore) FindByOrg(ctx context.Context, orgID string) ([]*team.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*team.Team
	for id, rec := range s.teams {
		if rec.orgID == orgID {
			out = append(out, rehydrate(id, rec))
		}
	}
	return out, nil
}

func (s *TeamStore) FindByUser(ctx context.Context, userID string) ([]*team.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*team.Team
	for id, rec := range s.teams {
		for _, m := range rec.members {
			if m.UserID == userID {
				out = append(out, rehydrate(id, rec))
				break
			}
		}
	}
	return out, nil
}

func (s *TeamStore) Save(ctx context.Context, t *team.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.teams[t.ID] = teamRecord{
		orgID:       t.OrgID,
		name:        t.Name,
		ownerID:     t.OwnerID,
		members:     t.Members(),
		invitations: t.Invitations(),
		createdAt:   t.CreatedAt,
		updatedAt:   t.UpdatedAt,
	}
	return nil
}

func (s *TeamStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.teams[id]; !ok {
		return fmt.Errorf("team %s: %w", id, storage.ErrNotFound)
	}
	delete(s.teams, id)
	return nil
}

func (s *TeamStore) PurgeExpiredInvitations(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	purged := 0
	for id, rec := range s.teams {
		kept := rec.invitations[:0]
		for _, inv := range rec.invitations {
			if inv.AcceptedAt == nil && !now.Before(inv.ExpiresAt) {
				purged++
				continue
			}
			kept = append(kept, inv)
		}
		rec.invitations = kept
		s.teams[id] = rec
	}
	return purged, nil
}

func rehydrate(id string, rec teamRecord) *team.Team {
	return team.Rehydrate(id, rec.orgID, rec.name, rec.ownerID,
		rec.members, rec.invitations, rec.createdAt, rec.updatedAt)
}

// OrganizationStore implements storage.OrganizationRepository over a map.
type OrganizationStore struct {
	mu   sync.RWMutex
	orgs map[string]org.Organization
}

// NewOrganizationStore creates an empty organization store.
func NewOrganizationStore() *OrganizationStore {
	return &OrganizationStore{orgs: make(map[string]org.Organization)}
}

func (s *OrganizationStore) FindByID(ctx context.Context, id string) (*org.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orgs[id]
	if !ok {
		return nil, fmt.Errorf("organization %s: %w", id, storage.ErrNotFound)
	}
	return copyOrg(o), nil
}

func (s *OrganizationStore) FindBySlug(ctx context.Context, slug string) (*org.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, o := range s.orgs {
		if o.Slug == slug {
			return copyOrg(o), nil
		}
	}
	return nil, fmt.Errorf("organization slug %s: %w", slug, storage.ErrNotFound)
}

func (s *OrganizationStore) Save(ctx context.Context, o *org.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.orgs[o.ID] = *copyOrg(*o)
	return nil
}

func (s *OrganizationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[id]; !ok {
		return fmt.Errorf("organization %s: %w", id, storage.ErrNotFound)
	}
	delete(s.orgs, id)
	return nil
}

func copyOrg(o org.Organization) *org.Organization {
	out := o
	out.Members = make([]org.Member, len(o.Members))
	copy(out.Members, o.Members)
	return &out
}

// ResourceStore implements storage.ResourceRepository over a map.
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[string]resource.Resource
}

// NewResourceStore creates an empty resource store.
func NewResourceStore() *ResourceStore {
	return &ResourceStore{resources: make(map[string]resource.Resource)}
}

func (s *ResourceStore) FindByID(ctx context.Context, id string) (*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.resources[id]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", id, storage.ErrNotFound)
	}
	return copyResource(r), nil
}

func (s *ResourceStore) FindByOrg(ctx context.Context, orgID string) ([]*resource.Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*resource.Resource
	for _, r := range s.resources {
		if r.OrgID == orgID {
			out = append(out, copyResource(r))
		}
	}
	return out, nil
}

func (s *ResourceStore) Save(ctx context.Context, r *resource.Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resources[r.ID] = *copyResource(*r)
	return nil
}

func (s *ResourceStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources[id]; !ok {
		return fmt.Errorf("resource %s: %w", id, storage.ErrNotFound)
	}
	delete(s.resources, id)
	return nil
}

func copyResource(r resource.Resource) *resource.Resource {
	out := r
	out.Assignments = make([]resource.PermissionAssignment, len(r.Assignments))
	copy(out.Assignments, r.Assignments)
	return &out
}
