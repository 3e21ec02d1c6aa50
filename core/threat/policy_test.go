package threat_test

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sentinel/core/eventlog"
	"github.com/dmitrymomot/sentinel/core/threat"
)

func TestPolicy_ShouldBlock(t *testing.T) {
	t.Parallel()

	allow, err := threat.ParseAllowList([]string{"127.0.0.1", "::1", "10.0.0.0/8"})
	require.NoError(t, err)

	flagged := threat.Report{Flagged: []eventlog.Type{eventlog.TypeSQLInjection}}

	tests := []struct {
		name       string
		production bool
		report     threat.Report
		ip         string
		want       bool
	}{
		{"production external", true, flagged, "203.0.113.9", true},
		{"production allow-listed", true, flagged, "127.0.0.1", false},
		{"production allow-listed prefix", true, flagged, "10.1.2.3", false},
		{"production mapped v4", true, flagged, "::ffff:10.1.2.3", false},
		{"development", false, flagged, "203.0.113.9", false},
		{"nothing flagged", true, threat.Report{}, "203.0.113.9", false},
		{"unparsable ip", true, flagged, "unknown", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := threat.Policy{Production: tt.production, AllowList: allow}
			assert.Equal(t, tt.want, p.ShouldBlock(tt.report, tt.ip))
		})
	}
}

func TestParseAllowList(t *testing.T) {
	t.Parallel()

	got, err := threat.ParseAllowList([]string{" 192.168.1.10 ", "", "2001:db8::/32", "10.1.2.3/8"})
	require.NoError(t, err)
	assert.Equal(t, []netip.Prefix{
		netip.MustParsePrefix("192.168.1.10/32"),
		netip.MustParsePrefix("2001:db8::/32"),
		netip.MustParsePrefix("10.0.0.0/8"),
	}, got)

	_, err = threat.ParseAllowList([]string{"not-an-ip"})
	assert.ErrorIs(t, err, threat.ErrInvalidAllowList)
}

func TestConfig(t *testing.T) {
	t.Parallel()

	cfg := threat.DefaultConfig()
	cfg.MaxURILength = 100
	cfg.ExpectProxyHeaders = true

	rules := cfg.Rules()
	assert.Equal(t, 100, rules.MaxURILength)
	assert.True(t, rules.ExpectProxyHeaders)
	assert.Len(t, rules.Families, 4)

	p, err := cfg.Policy(true)
	require.NoError(t, err)
	assert.True(t, p.Production)
	assert.True(t, p.Allowed("::1"))
}
