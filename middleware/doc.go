// Package middleware adapts an authcore.Engine to net/http.
//
// [Guard] reads the bearer access token, resolves the account through
// Engine.CurrentAccount and stores it in the request context.
// [RequireRoles] runs behind Guard and rejects roles outside a RoleSet.
// [StatusCode] maps the authcore error taxonomy to HTTP status codes:
// authentication failures are 401, role denials 403, unknown accounts 404,
// duplicates 409, bad input 400 and throttling 429.
//
// Token parsing and authorization decisions stay in the Engine.
package middleware
