package pathglob_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/sentinel/pkg/pathglob"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/*", "/admin/users", true},
		{"/admin/*", "/admin/users/5", true},
		{"/admin/*", "/admin/", true},
		{"/admin/*", "/administration", false},
		{"/admin/*", "/admin", false},
		{"/admin/*", "/Admin/users", false},
		{"*", "/anything/at/all", true},
		{"*", "", true},
		{"/login", "/login", true},
		{"/login", "/login/", false},
		{"/api/*/items", "/api/v1/items", true},
		{"/api/*/items", "/api/v1/things", false},
		{"/api/*/items/*", "/api/v1/items/9", true},
		{"*.php", "/index.php", true},
		{"*.php", "/index.php.bak", false},
		{"/a*b*c", "/abc", true},
		{"/a*b*c", "/acb", false},
		{"/ab*ba", "/aba", false},
		{"/webhooks/**", "/webhooks/stripe", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, pathglob.Match(tt.pattern, tt.path))
		})
	}
}

func TestMatchAny(t *testing.T) {
	t.Parallel()

	patterns := []string{"/login", "/auth/login"}
	assert.True(t, pathglob.MatchAny(patterns, "/auth/login"))
	assert.False(t, pathglob.MatchAny(patterns, "/logout"))
	assert.False(t, pathglob.MatchAny(nil, "/login"))
}
