// Package secrets detects secret-looking patterns in source text before an
// integration is pushed. Rules follow common gitleaks-style patterns.
package secrets

import (
	"regexp"
	"strings"
)

// Rule is one secret detection pattern.
type Rule struct {
	ID          string
	Description string
	pattern     *regexp.Regexp
}

// Finding is one matched secret location.
type Finding struct {
	RuleID string
	File   string
	Line   int
}

// Scanner checks content against a rule set.
type Scanner struct {
	rules []Rule
}

// NewScanner returns a Scanner with the default rules.
func NewScanner() *Scanner {
	return &Scanner{rules: defaultRules()}
}

// Scan returns findings for all rule matches in content, attributed to file.
func (s *Scanner) Scan(file, content string) []Finding {
	var findings []Finding
	for _, rule := range s.rules {
		for _, match := range rule.pattern.FindAllStringIndex(content, -1) {
			findings = append(findings, Finding{
				RuleID: rule.ID,
				File:   file,
				Line:   strings.Count(content[:match[0]], "\n") + 1,
			})
		}
	}
	return findings
}

func defaultRules() []Rule {
	return []Rule{
		{
			ID:          "aws-access-key-id",
			Description: "AWS Access Key ID",
			pattern:     regexp.MustCompile(`(A3T[A-Z0-9]|AKIA|AGPA|AIDA|AROA|ASIA)[A-Z0-9]{16}`),
		},
		{
			ID:          "private-key",
			Description: "Private key block",
			pattern:     regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`),
		},
		{
			ID:          "generic-api-key",
			Description: "Generic API key assignment",
			pattern:     regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)\s*[:=]\s*['"][A-Za-z0-9_\-]{16,64}['"]`),
		},
		{
			ID:          "generic-secret",
			Description: "Generic secret or password assignment",
			pattern:     regexp.MustCompile(`(?i)(?:secret|password|passwd)\s*[:=]\s*['"][^\s'"]{8,}['"]`),
		},
		{
			ID:          "github-token",
			Description: "GitHub token",
			pattern:     regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}`),
		},
	}
}
