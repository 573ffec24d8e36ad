// Package access resolves whether an actor may perform an action within an
// organization, a team, or on an individually owned resource.
//
// # Overview
//
// The Resolver is stateless. It composes three sources of truth, loaded
// through constructor-injected repository collaborators:
//
//   - the owner shortcut: the recorded owner of a team or resource passes
//     every check for that aggregate
//   - the static role tables in pkg/authz
//   - per-resource permission assignments from pkg/resource
//
// Denial is not an error. Every query returns (false, nil) when the actor
// simply lacks the permission; an error is returned only when the answer
// could not be determined (repository failure, missing aggregate). Callers
// in UI contexts should map "could not evaluate" to deny.
//
// # Resource evaluation
//
// Resource checks apply the owner shortcut first, then scan assignments in
// three tiers, short-circuiting on the first grant:
//
//  1. user-targeted assignments matching the caller
//  2. team-targeted assignments matching any team the caller belongs to
//  3. role-targeted assignments matching the caller's organization role
//
// A caller matched by several assignments is granted if any one of them
// grants the permission.
//
// # Concurrency
//
// The Resolver holds no mutable state and is safe for unlimited concurrent
// use, provided the repository collaborators are safe for concurrent
// reads. Cancellation and timeouts belong to the collaborators; the
// resolver propagates whatever they return without retrying.
package access
