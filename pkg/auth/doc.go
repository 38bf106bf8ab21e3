/*
Package auth identifies API callers.

Members authenticate with HS256 JWTs whose subject is the member id,
sent as a bearer token or in the member cookie. Administrators log in
with email and password (bcrypt) and receive an opaque session token;
only its SHA-256 hash is stored, under /adminSessions. A background
janitor removes expired sessions.

Resolver applies the precedence bearer token, member cookie, admin
session cookie, and stores the result in the request context with
WithIdentity.
*/
package auth
