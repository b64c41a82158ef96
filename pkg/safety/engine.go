package safety

// Finding describes which rule matched and what it matched.
type Finding struct {
	RuleId      string `json:"rule_id"`
	Description string `json:"description"`
	Match       string `json:"match"`
}

// Engine applies a policy at the three safety checkpoints of a request:
// the raw user query, the generator output and each streamed chunk.
type Engine struct {
	policy *PolicyFile
}

func NewEngine(policy *PolicyFile) *Engine {
	return &Engine{policy: policy}
}

// NewDefaultEngine builds an engine from the embedded policy file.
func NewDefaultEngine() (*Engine, error) {
	p, err := LoadPolicy()
	if err != nil {
		return nil, err
	}
	return NewEngine(p), nil
}

// DetectMalicious checks a raw user query against the input guards.
func (e *Engine) DetectMalicious(query string) (*Finding, bool) {
	for _, rule := range e.policy.InputGuards {
		if m := rule.compiled.FindString(query); m != "" {
			return &Finding{RuleId: rule.Id, Description: rule.Description, Match: m}, true
		}
	}
	return nil, false
}

// DetectSensitive inspects generator output. When a guard matches, the whole
// content is replaced and the second return value is true.
func (e *Engine) DetectSensitive(content string) (string, bool) {
	for _, rule := range e.policy.OutputGuards {
		if rule.compiled.MatchString(content) {
			return e.policy.OutputGuardReplacement, true
		}
	}
	return content, false
}

// Sanitize redacts one chunk. It keeps no state between calls.
func (e *Engine) Sanitize(chunk string) string {
	out := chunk
	for _, rule := range e.policy.Redactions {
		out = rule.compiled.ReplaceAllLiteralString(out, rule.Replacement)
	}
	return out
}
