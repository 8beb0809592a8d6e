// Package classify routes raw sensor groups into dashboard domains.
//
// The monitoring backend organizes sensors in free-text group trees; only the
// leaf segment carries meaning for us. An ordered rule table maps that leaf
// to one of the five dashboard domains, first match wins, anything unmatched
// belongs to no dashboard at all.
package classify

import (
	"strings"

	"github.com/IGLOU-EU/go-wildcard/v2"
)

// Domain is one of the five dashboard categories.
type Domain string

const (
	Servers    Domain = "servers"
	Backups    Domain = "backups"
	Networking Domain = "networking"
	Windows    Domain = "windows"
	Sucursales Domain = "sucursales"
)

// CanonicalOrder is the fixed presentation order for available dashboards.
// The frontend relies on it; never return domains in discovery order.
var CanonicalOrder = []Domain{Servers, Backups, Networking, Windows, Sucursales}

// rule pairs a set of whole-string wildcard patterns with the domain they
// select. Patterns are matched case-insensitively against the trimmed leaf
// group label.
type rule struct {
	patterns []string
	domain   Domain
}

// Rule order matters: the first matching rule wins, so the more specific
// backup and branch labels sit above the generic networking ones.
var rules = []rule{
	{[]string{"servers", "servidores", "virtualizacion", "vmware*", "esx*", "hyper-v"}, Servers},
	{[]string{"backups", "respaldos", "veeam*", "acronis*", "qnap*"}, Backups},
	{[]string{"networking", "redes", "red", "switches", "antenas ptp", "ubiquiti*", "mikrotik*"}, Networking},
	{[]string{"windows", "windows servers", "servidores windows"}, Windows},
	{[]string{"sucursales", "branches", "sucursal*"}, Sucursales},
}

// Classify maps a leaf group label to its dashboard domain. The second
// return is false when no rule matches; such sensors appear on no dashboard.
func Classify(leafGroup string) (Domain, bool) {
	label := strings.ToLower(strings.TrimSpace(leafGroup))
	if label == "" {
		return "", false
	}
	for _, r := range rules {
		for _, pattern := range r.patterns {
			if wildcard.Match(pattern, label) {
				return r.domain, true
			}
		}
	}
	return "", false
}

// Valid reports whether s names a known dashboard domain.
func Valid(s string) bool {
	for _, d := range CanonicalOrder {
		if Domain(s) == d {
			return true
		}
	}
	return false
}
