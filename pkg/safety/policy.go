package safety

import (
	_ "embed"
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed policies.yaml
var embeddedPolicies []byte

type Rule struct {
	Id          string `yaml:"id"`
	Description string `yaml:"description"`
	Regex       string `yaml:"regex"`
	Replacement string `yaml:"replacement"`

	compiled *regexp.Regexp
}

type PolicyFile struct {
	InputGuards            []Rule `yaml:"input_guards"`
	OutputGuards           []Rule `yaml:"output_guards"`
	OutputGuardReplacement string `yaml:"output_guard_replacement"`
	Redactions             []Rule `yaml:"redactions"`
}

func compileRules(section string, rules []Rule) error {
	for i := range rules {
		re, err := regexp.Compile(rules[i].Regex)
		if err != nil {
			return fmt.Errorf("%s rule %q: %w", section, rules[i].Id, err)
		}
		rules[i].compiled = re
	}
	return nil
}

// ParsePolicy unmarshals and compiles a policy document.
func ParsePolicy(data []byte) (*PolicyFile, error) {
	var p PolicyFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal policy file: %w", err)
	}
	if err := compileRules("input_guards", p.InputGuards); err != nil {
		return nil, err
	}
	if err := compileRules("output_guards", p.OutputGuards); err != nil {
		return nil, err
	}
	if err := compileRules("redactions", p.Redactions); err != nil {
		return nil, err
	}
	if len(p.OutputGuards) > 0 && p.OutputGuardReplacement == "" {
		return nil, fmt.Errorf("output_guard_replacement is required when output_guards are defined")
	}
	return &p, nil
}

// LoadPolicy parses the policy compiled into the binary.
func LoadPolicy() (*PolicyFile, error) {
	return ParsePolicy(embeddedPolicies)
}
