// Package team implements the team membership aggregate for Huddle.
//
// # Overview
//
// A Team owns its member and invitation collections and is the only place
// membership may be mutated. The aggregate enforces two hard invariants no
// mutation path can violate:
//
//   - exactly one membership per team carries the owner role, and its user
//     ID equals the team's owner ID
//   - a team never holds two memberships for the same user
//
// The creation factory enrolls the owner atomically; no team ever exists
// without an owner membership.
//
// # Mutations and events
//
// AddMember, UpdateMemberRole, RemoveMember, Invite, AcceptInvitation and
// RevokeInvitation each validate against current state, mutate, and append
// exactly one domain event to the aggregate's pending buffer. Nothing is
// published until a caller drains the buffer:
//
//	if err := tm.AddMember(m); err != nil { ... }
//	if err := repo.Save(ctx, tm); err != nil {
//		tm.ClearEvents() // never publish events for unpersisted state
//		return err
//	}
//	for _, ev := range tm.Events() {
//		channel.Publish(ctx, ev)
//	}
//	tm.ClearEvents()
//
// Service wraps that sequence; events are published in append order and
// only after the mutation has been durably persisted.
//
// # Concurrency
//
// A Team instance is operated on by one command at a time; callers obtain
// exclusive access (a transaction or single-writer lock at the persistence
// boundary) before invoking mutations. The aggregate performs no locking.
// Read-only methods (HasPermission, HasMemberPermission, accessors) are
// pure over current state.
//
// # Related Packages
//
//   - pkg/authz: role vocabulary and static role tables
//   - pkg/access: cross-aggregate permission resolution
//   - pkg/events: channels that deliver drained events
package team
