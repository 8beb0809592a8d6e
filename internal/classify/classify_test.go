package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		label   string
		domain  Domain
		matched bool
	}{
		{"Servers", Servers, true},
		{"servers", Servers, true},
		{"VMware ESXi", Servers, true},
		{"Backups", Backups, true},
		{"Veeam", Backups, true},
		{"veeam jobs", Backups, true},
		{"Networking", Networking, true},
		{"Switches", Networking, true},
		{"Antenas PTP", Networking, true},
		{"Windows", Windows, true},
		{"Sucursales", Sucursales, true},
		{"  Sucursales  ", Sucursales, true},
		{"Misc", "", false},
		{"", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.label, func(t *testing.T) {
			domain, ok := Classify(tc.label)
			require.Equal(t, tc.matched, ok)
			assert.Equal(t, tc.domain, domain)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		domain, ok := Classify("Veeam")
		require.True(t, ok)
		assert.Equal(t, Backups, domain)
	}
}

func TestCanonicalOrder(t *testing.T) {
	assert.Equal(t, []Domain{Servers, Backups, Networking, Windows, Sucursales}, CanonicalOrder)
}

func TestValid(t *testing.T) {
	for _, d := range CanonicalOrder {
		assert.True(t, Valid(string(d)))
	}
	assert.False(t, Valid("storage"))
	assert.False(t, Valid(""))
}
