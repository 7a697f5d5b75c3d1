// Package permission provides the closed role enumeration, a fixed-size role-set
// bitmask, and the pure allow/deny decisions used by authcore authorization checks.
//
// # Roles
//
// Exactly three roles exist: [RoleUser], [RoleModerator], and [RoleAdmin]. Each
// role owns one bit in a [RoleSet]; membership checks are a single AND.
//
// # Bootstrap assignment
//
// [InitialRole] grants admin to the first account ever created. It is only safe
// when the caller runs it inside the same serialized step as the insert itself;
// account stores do this with a transaction-scoped lock.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import authcore, jwt, or session.
//   - Accept roles outside the closed enumeration.
package permission
