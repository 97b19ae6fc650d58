package exec

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"deckhand/internal/domain"
)

// RuleKind selects how a denylist rule matches the raw command string.
type RuleKind string

const (
	// RuleToken denies any command containing the value as a substring.
	// Substring (not word) matching is the conservative reading: a token
	// smuggled into a longer word still denies.
	RuleToken RuleKind = "token"
	// RulePrefix denies any command starting with the value.
	RulePrefix RuleKind = "prefix"
	// RulePattern denies any command matching the RE2 expression.
	RulePattern RuleKind = "pattern"
)

// RuleSpec is one denylist rule as supplied by configuration.
type RuleSpec struct {
	Kind  RuleKind
	Value string
}

// Policy decides whether a raw command string may reach a container.
// A nil return allows; a *domain.PolicyViolation denies. Implementations are
// immutable after construction and safe for concurrent use.
type Policy interface {
	Evaluate(command string) error
}

type compiledRule struct {
	kind    RuleKind
	value   string
	pattern *regexp.Regexp
}

// DenylistPolicy rejects commands matching any configured rule. Structural
// checks run before the rules and fail closed: an empty, non-UTF-8 or
// control-byte-carrying command is denied without consulting the denylist.
type DenylistPolicy struct {
	rules []compiledRule
}

// NewDenylistPolicy compiles the rule set. Pattern rules that do not compile
// fail construction; policy loading happens once at startup.
func NewDenylistPolicy(specs []RuleSpec) (*DenylistPolicy, error) {
	rules := make([]compiledRule, 0, len(specs))
	for _, spec := range specs {
		if spec.Value == "" {
			return nil, fmt.Errorf("policy rule with empty value")
		}
		rule := compiledRule{kind: spec.Kind, value: spec.Value}
		switch spec.Kind {
		case RuleToken, RulePrefix:
		case RulePattern:
			re, err := regexp.Compile(spec.Value)
			if err != nil {
				return nil, fmt.Errorf("policy pattern %q: %w", spec.Value, err)
			}
			rule.pattern = re
		default:
			return nil, fmt.Errorf("unknown policy rule kind %q", spec.Kind)
		}
		rules = append(rules, rule)
	}
	return &DenylistPolicy{rules: rules}, nil
}

// Evaluate checks the raw command string. Matching is deliberately strict:
// when the command cannot be classified with confidence it is denied.
func (p *DenylistPolicy) Evaluate(command string) error {
	if v := structuralCheck(command); v != nil {
		return v
	}

	trimmed := strings.TrimSpace(command)
	for _, rule := range p.rules {
		switch rule.kind {
		case RuleToken:
			if strings.Contains(trimmed, rule.value) {
				return &domain.PolicyViolation{
					Rule:   string(RuleToken),
					Reason: fmt.Sprintf("denylisted token: %s", rule.value),
				}
			}
		case RulePrefix:
			if strings.HasPrefix(trimmed, rule.value) {
				return &domain.PolicyViolation{
					Rule:   string(RulePrefix),
					Reason: fmt.Sprintf("denylisted prefix: %s", rule.value),
				}
			}
		case RulePattern:
			if rule.pattern.MatchString(trimmed) {
				return &domain.PolicyViolation{
					Rule:   string(RulePattern),
					Reason: fmt.Sprintf("denylisted pattern: %s", rule.value),
				}
			}
		}
	}
	return nil
}

// structuralCheck applies the fail-closed baseline that holds regardless of
// the configured rule set.
func structuralCheck(command string) *domain.PolicyViolation {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return &domain.PolicyViolation{Rule: "structural", Reason: "empty command"}
	}
	if !utf8.ValidString(command) {
		return &domain.PolicyViolation{Rule: "structural", Reason: "command is not valid UTF-8"}
	}
	for _, r := range command {
		// Tabs and newlines are legitimate in shell input; every other
		// control character is an injection vector we cannot classify.
		if unicode.IsControl(r) && r != '\t' && r != '\n' {
			return &domain.PolicyViolation{Rule: "structural", Reason: "command contains control characters"}
		}
	}
	return nil
}
