// Package fusion deduplicates, scores and ranks evidence from all source
// adapters into a bounded, deterministic FusedEvidenceSet.
package fusion

import (
	_ "embed"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/meetingintel/internal/model"
)

//go:embed weights.yaml
var defaultPolicyYAML []byte

// Policy holds the per-source trust weights and scoring increments.
type Policy struct {
	DefaultWeight       float64            `yaml:"default_weight"`
	HighTrustWeight     float64            `yaml:"high_trust_weight"`
	MaxItems            int                `yaml:"max_items"`
	PrefixRunes         int                `yaml:"prefix_runes"`
	MentionBonus        float64            `yaml:"mention_bonus"`
	ShortSnippetRunes   int                `yaml:"short_snippet_runes"`
	ShortSnippetPenalty float64            `yaml:"short_snippet_penalty"`
	AggregatorPenalty   float64            `yaml:"aggregator_penalty"`
	Weights             map[string]float64 `yaml:"weights"`
	Aggregators         []string           `yaml:"aggregators"`
}

var defaultPolicy = sync.OnceValues(func() (Policy, error) {
	return ParsePolicy(defaultPolicyYAML)
})

// DefaultPolicy returns the embedded policy.
func DefaultPolicy() Policy {
	p, err := defaultPolicy()
	if err != nil {
		panic(eris.Wrap(err, "fusion: embedded policy"))
	}
	return p.clone()
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, eris.Wrap(err, "fusion: parse policy")
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// LoadPolicyFile reads a YAML policy from disk.
func LoadPolicyFile(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, eris.Wrapf(err, "fusion: read policy %s", path)
	}
	return ParsePolicy(data)
}

// Validate checks ranges and that every weighted tag is in the vocabulary.
func (p Policy) Validate() error {
	if p.MaxItems <= 0 {
		return eris.New("fusion: max_items must be positive")
	}
	if p.PrefixRunes <= 0 {
		return eris.New("fusion: prefix_runes must be positive")
	}
	if !unit(p.DefaultWeight) || !unit(p.HighTrustWeight) {
		return eris.New("fusion: default_weight and high_trust_weight must be within [0,1]")
	}
	for tag, w := range p.Weights {
		if _, err := model.ParseSource(tag); err != nil {
			return eris.Wrap(err, "fusion: weights")
		}
		if !unit(w) {
			return eris.Errorf("fusion: weight for %s out of range: %v", tag, w)
		}
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }

func (p Policy) clone() Policy {
	out := p
	out.Weights = make(map[string]float64, len(p.Weights))
	for k, v := range p.Weights {
		out.Weights[k] = v
	}
	out.Aggregators = append([]string(nil), p.Aggregators...)
	return out
}

// weightTable is the frozen per-source view of a Policy.
type weightTable struct {
	weights     map[model.Source]float64
	fallback    float64
	aggregators []string
}

func newWeightTable(p Policy) weightTable {
	t := weightTable{
		weights:  make(map[model.Source]float64, len(p.Weights)),
		fallback: p.DefaultWeight,
	}
	for tag, w := range p.Weights {
		t.weights[model.Source(strings.ToLower(tag))] = w
	}
	for _, a := range p.Aggregators {
		a = strings.ToLower(strings.TrimSpace(a))
		if a != "" {
			t.aggregators = append(t.aggregators, a)
		}
	}
	sort.Strings(t.aggregators)
	return t
}

// weight returns the table weight, or the minimum default for unknown tags.
func (t weightTable) weight(s model.Source) float64 {
	if w, ok := t.weights[s]; ok {
		return w
	}
	return t.fallback
}

// isAggregator reports whether host is, or is a subdomain of, a denylisted site.
func (t weightTable) isAggregator(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, a := range t.aggregators {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}
