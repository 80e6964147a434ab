// Package orderer sequences ready branches for integration using a fixed
// priority over agent role names.
package orderer

import (
	"sort"
	"strings"
)

// Orderer sorts branches by role priority. Priority lists role name
// substrings from first-merged to last-merged; branches matching no entry
// sort after everything else, keeping their relative input order.
type Orderer struct {
	Priority []string
}

// New returns an Orderer with the given priority list.
func New(priority []string) *Orderer {
	return &Orderer{Priority: priority}
}

// Order returns branches in integration order. The sort is stable: equal
// priorities preserve input order.
func (o *Orderer) Order(branches []string) []string {
	out := append([]string(nil), branches...)
	sort.SliceStable(out, func(i, j int) bool {
		return o.rank(out[i]) < o.rank(out[j])
	})
	return out
}

func (o *Orderer) rank(branch string) int {
	lower := strings.ToLower(branch)
	for i, role := range o.Priority {
		if strings.Contains(lower, strings.ToLower(role)) {
			return i
		}
	}
	return len(o.Priority)
}
