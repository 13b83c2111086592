// Package region maps short region codes to backend domains.
package region

import (
	"sort"
	"strings"

	"dsymup/internal/apperr"
)

// DefaultCode is used when no region is configured.
const DefaultCode = "cn"

var defaultDomains = map[string]string{
	"cn": "api.leancloud.cn",
	"us": "api.avoscloud.us",
}

// Table is an immutable region code to domain mapping.
type Table struct {
	domains     map[string]string
	defaultCode string
}

// DefaultTable returns the built-in region table.
func DefaultTable() Table {
	return Table{domains: defaultDomains, defaultCode: DefaultCode}
}

// Merge returns a new table with extra entries layered over t.
// Existing codes may be redirected to another domain.
func (t Table) Merge(extra map[string]string) Table {
	if len(extra) == 0 {
		return t
	}
	domains := make(map[string]string, len(t.domains)+len(extra))
	for code, domain := range t.domains {
		domains[code] = domain
	}
	for code, domain := range extra {
		code = normalize(code)
		domain = strings.TrimSpace(domain)
		if code == "" || domain == "" {
			continue
		}
		domains[code] = domain
	}
	return Table{domains: domains, defaultCode: t.defaultCode}
}

// Resolve returns the domain for code. Codes match exactly, so "US" is not
// "us". An empty code selects the default region.
func (t Table) Resolve(code string) (string, error) {
	code = normalize(code)
	if code == "" {
		code = t.defaultCode
	}
	domain, ok := t.domains[code]
	if !ok {
		return "", apperr.Validationf("region", "unsupported server region %q", code)
	}
	return domain, nil
}

// Codes returns the known region codes in sorted order.
func (t Table) Codes() []string {
	codes := make([]string, 0, len(t.domains))
	for code := range t.domains {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Default returns the default region code.
func (t Table) Default() string {
	return t.defaultCode
}

func normalize(code string) string {
	return strings.TrimSpace(code)
}
