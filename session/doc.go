// Package session manages conversation sessions: creation on first request,
// lookup across turns, explicit end and idle timeout. Every session owns a
// state.Store; ending or expiring a session discards its session and temp
// scopes while the user scope lives on in the shared user backend.
package session
