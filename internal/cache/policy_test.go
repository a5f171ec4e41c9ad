package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_TTLFor(t *testing.T) {
	policy := Policy{
		DefaultTTL: time.Minute,
		Rules: []Rule{
			{Pattern: "auth/**", TTL: 0},
			{Pattern: "2fa/**", TTL: 0},
			{Pattern: "settings/**", TTL: 30 * time.Minute},
			{Pattern: "courses/*/lessons", TTL: 5 * time.Minute},
			{Pattern: "courses/**", TTL: 2 * time.Minute},
		},
	}

	tests := []struct {
		name     string
		endpoint string
		want     time.Duration
	}{
		{name: "default", endpoint: "dashboard", want: time.Minute},
		{name: "auth route disabled", endpoint: "auth/me", want: 0},
		{name: "double star matches bare prefix", endpoint: "settings", want: 30 * time.Minute},
		{name: "double star matches deep suffix", endpoint: "settings/site/theme", want: 30 * time.Minute},
		{name: "single star matches one segment", endpoint: "courses/42/lessons", want: 5 * time.Minute},
		{name: "first match wins", endpoint: "courses/42/lessons/7", want: 2 * time.Minute},
		{name: "query ignored", endpoint: "settings?lang=en", want: 30 * time.Minute},
		{name: "leading slash ignored", endpoint: "/auth/login", want: 0},
		{name: "prefix of segment does not match", endpoint: "authors", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.TTLFor(tt.endpoint))
		})
	}
}

func TestPolicy_EmptyRules(t *testing.T) {
	assert.Equal(t, 15*time.Second, Policy{DefaultTTL: 15 * time.Second}.TTLFor("anything"))
	assert.Equal(t, time.Duration(0), Policy{}.TTLFor("anything"))
}
