// Package session guards the browser session record.
//
// Guard.Resolve loads the record named by the session cookie, or mints a new
// one, and enforces:
//
//   - idle timeout: now - LastActivityAt > IdleTimeout ends the session
//   - absolute timeout: now - CreatedAt > AbsoluteTimeout ends the session
//   - fingerprint binding: a changed User-Agent (and, when enabled, IP)
//     destroys the session as a possible hijack
//   - periodic id rotation every RegenerateInterval
//
// A record that fails any check is deleted and replaced with a fresh one.
// Resolution never fails because of client state; it fails only when the
// store cannot be read or written, and then the caller must reject the
// request.
//
// Session ids are always minted by the server. An id presented by the client
// that does not name a live record is discarded rather than adopted, so a
// planted id can never become a session.
//
// Each resolved Session holds a per-id lock until Close, which serializes
// concurrent requests of the same session inside the process. Stores also
// compare a version number on Save to detect writers in other processes.
package session
