package guardrail

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var defaultPolicy []byte

// Policy holds the phrase lists and thresholds used by the gates.
type Policy struct {
	Input      InputPolicy      `yaml:"input"`
	Provenance ProvenancePolicy `yaml:"provenance"`
	Output     OutputPolicy     `yaml:"output"`
}

// InputPolicy configures the input content gate.
type InputPolicy struct {
	LengthSeverity Severity      `yaml:"length_severity"`
	HarmfulIntent  PatternPolicy `yaml:"harmful_intent"`
	PII            []PIIPattern  `yaml:"pii"`
	Spam           SpamPolicy    `yaml:"spam"`
	MinLength      int           `yaml:"min_length"`
	MaxLength      int           `yaml:"max_length"`
}

// PatternPolicy is a severity with a list of case-insensitive regexes.
type PatternPolicy struct {
	Severity Severity         `yaml:"severity"`
	Patterns []string         `yaml:"patterns"`
	compiled []*regexp.Regexp `yaml:"-"`
}

// PIIPattern detects one kind of personally identifiable information.
type PIIPattern struct {
	compiled *regexp.Regexp `yaml:"-"`
	ID       string         `yaml:"id"`
	Regex    string         `yaml:"regex"`
}

// SpamPolicy configures repetition and keyboard-smash detection.
type SpamPolicy struct {
	Severity       Severity         `yaml:"severity"`
	Runs           []string         `yaml:"runs"`
	compiledRuns   []*regexp.Regexp `yaml:"-"`
	MinWords       int              `yaml:"min_words"`
	MinUniqueRatio float64          `yaml:"min_unique_ratio"`
}

// ProvenancePolicy lists phrases that suggest unethically sourced data.
type ProvenancePolicy struct {
	Severity Severity `yaml:"severity"`
	Phrases  []string `yaml:"phrases"`
}

// OutputPolicy configures the output gate.
type OutputPolicy struct {
	ForbiddenFocus              TermPolicy `yaml:"forbidden_focus"`
	InconsistentUrgencySeverity Severity   `yaml:"inconsistent_urgency_severity"`
	HostileWords                []string   `yaml:"hostile_words"`
}

// TermPolicy is a severity with a list of literal terms.
type TermPolicy struct {
	Severity Severity `yaml:"severity"`
	Terms    []string `yaml:"terms"`
}

// DefaultPolicy parses the embedded policy.
func DefaultPolicy() (*Policy, error) {
	return ParsePolicy(defaultPolicy)
}

// ParsePolicy parses and compiles a policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse guardrail policy: %w", err)
	}
	if p.Input.MinLength <= 0 || p.Input.MaxLength < p.Input.MinLength {
		return nil, fmt.Errorf("invalid input length bounds: %d..%d", p.Input.MinLength, p.Input.MaxLength)
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) compile() error {
	harmful := &p.Input.HarmfulIntent
	harmful.compiled = harmful.compiled[:0]
	for _, pattern := range harmful.Patterns {
		re, err := regexp.Compile("(?i)" + pattern)
		if err != nil {
			return fmt.Errorf("failed to compile harmful pattern %s: %w", pattern, err)
		}
		harmful.compiled = append(harmful.compiled, re)
	}

	for i := range p.Input.PII {
		re, err := regexp.Compile(p.Input.PII[i].Regex)
		if err != nil {
			return fmt.Errorf("failed to compile PII pattern %s: %w", p.Input.PII[i].ID, err)
		}
		p.Input.PII[i].compiled = re
	}

	spam := &p.Input.Spam
	spam.compiledRuns = spam.compiledRuns[:0]
	for _, run := range spam.Runs {
		re, err := regexp.Compile(run)
		if err != nil {
			return fmt.Errorf("failed to compile spam run %s: %w", run, err)
		}
		spam.compiledRuns = append(spam.compiledRuns, re)
	}

	for i, phrase := range p.Provenance.Phrases {
		p.Provenance.Phrases[i] = strings.ToLower(phrase)
	}
	for i, term := range p.Output.ForbiddenFocus.Terms {
		p.Output.ForbiddenFocus.Terms[i] = strings.ToLower(term)
	}
	for i, word := range p.Output.HostileWords {
		p.Output.HostileWords[i] = strings.ToLower(word)
	}
	return nil
}
