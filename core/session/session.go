package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/logger"
	"github.com/dmitrymomot/sentinel/pkg/securetoken"
)

// Session is a request-scoped handle on a session record. It is not safe for
// concurrent use; the guard serializes requests of one session instead.
type Session struct {
	guard *Guard
	rec   Record
	// orig is the record as loaded, used to merge on version conflicts.
	orig Record

	fresh         bool
	rotated       bool
	dirty         bool
	destroyed     bool
	closed        bool
	previousID    string
	pendingDelete string
	reason        error
	events        []eventlog.Event
	release       func()
}

// ID returns the current session id.
func (s *Session) ID() string { return s.rec.ID }

// UserID returns the authenticated user id or an empty string.
func (s *Session) UserID() string { return s.rec.UserID }

// Authenticated reports whether a user is bound to the session.
func (s *Session) Authenticated() bool { return s.rec.UserID != "" }

// Fresh reports whether the session was created by this request.
func (s *Session) Fresh() bool { return s.fresh }

// Rotated reports whether the session id changed during this request.
func (s *Session) Rotated() bool { return s.rotated }

// PreviousID returns the id the client presented when it was replaced.
func (s *Session) PreviousID() string { return s.previousID }

// Reason returns why the presented session was terminated, if it was.
func (s *Session) Reason() error { return s.reason }

// Hijacked reports whether the presented session failed fingerprint checks.
func (s *Session) Hijacked() bool { return errors.Is(s.reason, ErrPossibleHijack) }

// Destroyed reports whether Guard.Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

// Events returns the security events produced while resolving the session.
func (s *Session) Events() []eventlog.Event {
	return append([]eventlog.Event(nil), s.events...)
}

// Record returns a copy of the underlying record.
func (s *Session) Record() Record { return s.rec.Clone() }

// Get returns a value from the session data.
func (s *Session) Get(key string) (string, bool) {
	v, ok := s.rec.Data[key]
	return v, ok
}

// Set stores a value in the session data.
func (s *Session) Set(key, value string) {
	if s.rec.Data == nil {
		s.rec.Data = make(map[string]string)
	}
	s.rec.Data[key] = value
	s.dirty = true
}

// Delete removes a value from the session data.
func (s *Session) Delete(key string) {
	if _, ok := s.rec.Data[key]; ok {
		delete(s.rec.Data, key)
		s.dirty = true
	}
}

// CSRFToken returns a copy of the stored anti-forgery token, or nil.
func (s *Session) CSRFToken() *securetoken.Token {
	if s.rec.CSRFToken == nil {
		return nil
	}
	tok := *s.rec.CSRFToken
	return &tok
}

// SetCSRFToken replaces the stored anti-forgery token.
func (s *Session) SetCSRFToken(tok securetoken.Token) {
	s.rec.CSRFToken = &tok
	s.dirty = true
}

// ClearCSRFToken removes the stored anti-forgery token.
func (s *Session) ClearCSRFToken() {
	if s.rec.CSRFToken != nil {
		s.rec.CSRFToken = nil
		s.dirty = true
	}
}

// rotate moves the record to a new id and locks it alongside the old one.
// The old record is deleted by the next successful Save.
func (s *Session) rotate(ctx context.Context, now time.Time) error {
	id, err := s.guard.vault.Generate()
	if err != nil {
		return errors.Join(ErrTokenGeneration, err)
	}
	release, err := s.guard.locks.Lock(ctx, id)
	if err != nil {
		return err
	}
	if prev := s.release; prev != nil {
		s.release = func() {
			release()
			prev()
		}
	} else {
		s.release = release
	}
	if !s.fresh && s.pendingDelete == "" {
		s.pendingDelete = s.rec.ID
		s.previousID = s.rec.ID
	}
	s.rec.ID = id
	s.rec.Version = 0
	s.rec.LastRegeneratedAt = now
	s.rotated = true
	s.dirty = true
	s.events = append(s.events, eventlog.New(eventlog.TypeSessionRegenerated, map[string]any{
		"ip":      s.rec.Fingerprint.IP,
		"user_id": s.rec.UserID,
	}))
	return nil
}

// Save persists pending changes. On a version conflict it merges this
// request's changes into the stored record and retries once.
func (s *Session) Save(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.destroyed || !s.dirty {
		return nil
	}
	g := s.guard
	ttl := g.cfg.storeTTL(s.rec, g.now())

	err := g.store.Save(ctx, &s.rec, ttl)
	if errors.Is(err, ErrVersionConflict) && s.rec.Version > 0 {
		cur, gerr := g.store.Get(ctx, s.rec.ID)
		if gerr != nil {
			err = errors.Join(err, gerr)
		} else {
			s.rec = merge(s.orig, s.rec, cur)
			err = g.store.Save(ctx, &s.rec, ttl)
		}
	}
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}

	if s.pendingDelete != "" {
		if err := g.store.Delete(ctx, s.pendingDelete); err != nil {
			g.logger.WarnContext(ctx, "failed to delete rotated session",
				logger.Component("session"),
				logger.SessionID(s.pendingDelete),
				logger.Error(err),
			)
		}
		s.pendingDelete = ""
	}
	s.orig = s.rec.Clone()
	s.dirty = false
	return nil
}

// Close releases the session lock. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.closed = true
	if s.release != nil {
		s.release()
	}
}

// merge applies the difference between orig and ours on top of cur.
func merge(orig, ours, cur Record) Record {
	out := cur.Clone()
	if ours.UserID != orig.UserID {
		out.UserID = ours.UserID
	}
	if ours.LastActivityAt.After(out.LastActivityAt) {
		out.LastActivityAt = ours.LastActivityAt
	}
	if !sameToken(ours.CSRFToken, orig.CSRFToken) {
		out.CSRFToken = nil
		if ours.CSRFToken != nil {
			tok := *ours.CSRFToken
			out.CSRFToken = &tok
		}
	}
	for k, v := range ours.Data {
		if ov, ok := orig.Data[k]; !ok || ov != v {
			if out.Data == nil {
				out.Data = make(map[string]string)
			}
			out.Data[k] = v
		}
	}
	for k := range orig.Data {
		if _, ok := ours.Data[k]; !ok {
			delete(out.Data, k)
		}
	}
	if len(out.Data) == 0 {
		out.Data = nil
	}
	return out
}

func sameToken(a, b *securetoken.Token) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Value == b.Value && a.IssuedAt.Equal(b.IssuedAt) && a.TTL == b.TTL
}

