package session

import (
	"maps"
	"time"

	"github.com/dmitrymomot/sentinel/pkg/fingerprint"
	"github.com/dmitrymomot/sentinel/pkg/securetoken"
)

// Record is the server-side state of one browser session.
type Record struct {
	ID                string                  `json:"id"`
	UserID            string                  `json:"user_id,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	LastRegeneratedAt time.Time               `json:"last_regenerated_at"`
	LastActivityAt    time.Time               `json:"last_activity_at"`
	Fingerprint       fingerprint.Fingerprint `json:"fingerprint"`
	CSRFToken         *securetoken.Token      `json:"csrf_token,omitempty"`
	Data              map[string]string       `json:"data,omitempty"`
	// Version is incremented by the store on every successful Save.
	Version int64 `json:"version"`
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	if r.CSRFToken != nil {
		tok := *r.CSRFToken
		r.CSRFToken = &tok
	}
	r.Data = maps.Clone(r.Data)
	return r
}

// IdleExpired reports whether the record has been idle longer than idle.
// A record idle for exactly idle is still valid.
func (r Record) IdleExpired(now time.Time, idle time.Duration) bool {
	return idle > 0 && now.Sub(r.LastActivityAt) > idle
}

// AbsoluteExpired reports whether the record is older than lifetime.
func (r Record) AbsoluteExpired(now time.Time, lifetime time.Duration) bool {
	return lifetime > 0 && now.Sub(r.CreatedAt) > lifetime
}
