package transcript

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

//go:embed rules.schema.json
var rulesSchemaJSON []byte

var (
	digitDash = regexp.MustCompile(`(\d)-(\d)`)
	acronym   = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
)

// Correction is one entry of the pronunciation table.
type Correction struct {
	Pattern string `yaml:"pattern" json:"pattern"`
	Replace string `yaml:"replace" json:"replace"`
	Regex   bool   `yaml:"regex,omitempty" json:"regex,omitempty"`

	re *regexp.Regexp
}

// Rules rewrites narration so the speech service reads it the way a teacher
// would: ordered corrections, then digit ranges, then acronym spelling, then
// a character filter.
type Rules struct {
	Corrections    []Correction `yaml:"corrections" json:"corrections"`
	DigitSeparator string       `yaml:"digit_separator" json:"digit_separator"`
	Punctuation    string       `yaml:"punctuation" json:"punctuation"`
	SpellAcronyms  bool         `yaml:"spell_acronyms" json:"spell_acronyms"`

	filter *regexp.Regexp
	hash   string
}

// DefaultRules returns the embedded correction table.
func DefaultRules() *Rules {
	r, err := ParseRules(defaultRulesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded pronunciation rules invalid: %v", err))
	}
	return r
}

// LoadRules reads a correction table from a YAML file. An empty path
// returns the embedded defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules validates YAML rules against the rules schema and compiles them.
func ParseRules(data []byte) (*Rules, error) {
	if err := validateRules(data); err != nil {
		return nil, err
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse rules: %w", err)
	}
	if err := r.compile(); err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)
	r.hash = hex.EncodeToString(sum[:])
	return &r, nil
}

func validateRules(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse rules: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("rules are not representable as JSON: %w", err)
	}
	var doc any
	if err := json.Unmarshal(asJSON, &doc); err != nil {
		return fmt.Errorf("failed to decode rules for validation: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(rulesSchemaJSON)); err != nil {
		return fmt.Errorf("failed to load rules schema: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("failed to compile rules schema: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid rules: %w", err)
	}
	return nil
}

func (r *Rules) compile() error {
	for i := range r.Corrections {
		c := &r.Corrections[i]
		if !c.Regex {
			continue
		}
		re, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Errorf("correction %d: invalid pattern %q: %w", i, c.Pattern, err)
		}
		c.re = re
	}

	var class strings.Builder
	class.WriteString(`[^\p{L}\p{N}_ `)
	for _, ch := range r.Punctuation {
		if ch < 0x80 && !isWordASCII(ch) {
			class.WriteByte('\\')
		}
		class.WriteRune(ch)
	}
	class.WriteByte(']')
	filter, err := regexp.Compile(class.String())
	if err != nil {
		return fmt.Errorf("invalid punctuation set %q: %w", r.Punctuation, err)
	}
	r.filter = filter
	return nil
}

func isWordASCII(ch rune) bool {
	return ch == '_' || ch == ' ' || (ch >= '0' && ch <= '9') || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

// Hash identifies the table contents; packets built with different tables
// never share a cache entry.
func (r *Rules) Hash() string {
	return r.hash
}

// Apply rewrites text for speech. The steps run in a fixed order because
// later steps delete characters earlier ones match on.
func (r *Rules) Apply(text string) string {
	for _, c := range r.Corrections {
		if c.re != nil {
			text = c.re.ReplaceAllString(text, c.Replace)
		} else {
			text = strings.ReplaceAll(text, c.Pattern, c.Replace)
		}
	}

	if r.DigitSeparator != "" {
		// Matches overlap in 1-2-3, so repeat until nothing changes.
		repl := "${1}" + r.DigitSeparator + "${2}"
		for {
			next := digitDash.ReplaceAllString(text, repl)
			if next == text {
				break
			}
			text = next
		}
	}

	if r.SpellAcronyms {
		text = acronym.ReplaceAllStringFunc(text, func(m string) string {
			return strings.Join(strings.Split(m, ""), " ")
		})
	}

	if r.filter != nil {
		text = r.filter.ReplaceAllString(text, "")
	}
	return strings.TrimSpace(text)
}
