// Package auth checks HTTP basic-auth credentials against the catalog's
// users without a database round trip per request.
//
// [UserCache] keeps an immutable snapshot of all users behind an
// atomic.Pointer. Readers never lock; [UserCache.Refresh] builds a new
// snapshot and swaps it in, and must be called after users are added or
// removed.
package auth
