// Package state implements the scoped key-value store that handlers and
// pipeline stages use to communicate.
//
// A Store is the view of one session: its session and temp scopes live in
// process memory and die with the session, while the user scope is delegated
// to a UserBackend shared by every session of the same user. Two backends are
// provided: MemoryUserStore for a single process and RedisUserStore for
// deployments where several processes serve the same users.
//
// Reads never take a lock. Counters are updated with compare-and-swap (memory)
// or HINCRBY (Redis), so concurrent increments are never lost.
package state
