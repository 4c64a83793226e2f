package telegram

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoRules is returned when no forwarding rule has been configured.
var ErrNoRules = errors.New("no forwarding rules configured")

// Rule forwards captions containing Trigger to Destination.
type Rule struct {
	Trigger     string `yaml:"trigger" json:"trigger"`
	Destination int64  `yaml:"destination" json:"destination"`
}

// RuleTable is an ordered list of rules. The first rule whose trigger
// appears in a caption wins.
type RuleTable struct {
	rules []Rule
	lower []string
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// NewRuleTable validates rules and keeps their declared order.
func NewRuleTable(rules []Rule) (*RuleTable, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	t := &RuleTable{
		rules: make([]Rule, 0, len(rules)),
		lower: make([]string, 0, len(rules)),
	}
	seen := make(map[string]bool, len(rules))
	for i, r := range rules {
		trigger := strings.TrimSpace(r.Trigger)
		if trigger == "" {
			return nil, fmt.Errorf("rule %d: empty trigger", i)
		}
		if r.Destination == 0 {
			return nil, fmt.Errorf("rule %d (%s): missing destination", i, trigger)
		}
		key := strings.ToLower(trigger)
		if seen[key] {
			return nil, fmt.Errorf("rule %d: duplicate trigger %q", i, trigger)
		}
		seen[key] = true

		t.rules = append(t.rules, Rule{Trigger: trigger, Destination: r.Destination})
		t.lower = append(t.lower, key)
	}
	return t, nil
}

// Match returns the first rule whose trigger is contained in caption,
// ignoring case.
func (t *RuleTable) Match(caption string) (Rule, bool) {
	if t == nil || caption == "" {
		return Rule{}, false
	}
	text := strings.ToLower(caption)
	for i, trigger := range t.lower {
		if strings.Contains(text, trigger) {
			return t.rules[i], true
		}
	}
	return Rule{}, false
}

// Rules returns a copy of the table in declared order.
func (t *RuleTable) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// ParseRules parses the RULES format: comma-separated trigger=destination
// pairs, e.g. "#news=-1001234,#memes=-1005678".
func ParseRules(raw string) ([]Rule, error) {
	var rules []Rule
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		// the destination never contains '=', the trigger might
		idx := strings.LastIndex(pair, "=")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid rule %q: expected trigger=destination", pair)
		}
		dest, err := strconv.ParseInt(strings.TrimSpace(pair[idx+1:]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid destination in rule %q: %w", pair, err)
		}
		rules = append(rules, Rule{Trigger: strings.TrimSpace(pair[:idx]), Destination: dest})
	}
	return rules, nil
}

// LoadRulesFile reads rules from a YAML document of the form
//
//	rules:
//	  - trigger: "#news"
//	    destination: -1001234
func LoadRulesFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return f.Rules, nil
}
