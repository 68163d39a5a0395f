// Package strings holds small string-slice helpers shared by configuration
// and the audit wiring.
package strings

import (
	"strings"
)

// MergeNames joins the given lists into one, trimming and lowercasing each
// element and dropping empties and repeats. Order of first appearance is kept.
//
//	MergeNames([]string{"fecha_actualizacion"}, []string{" Version ", "", "fecha_actualizacion"})
//	// []string{"fecha_actualizacion", "version"}
func MergeNames(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, v := range list {
			name := strings.ToLower(strings.TrimSpace(v))
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
