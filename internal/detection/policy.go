package detection

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/azrilxx/tradenestkgsb-sub000/internal/domain"
)

// Tier maps a minimum magnitude to a severity. Tiers are inclusive: |v| >= Min.
type Tier struct {
	Severity domain.Severity `yaml:"severity" json:"severity"`
	Min      float64         `yaml:"min" json:"min"`
}

// Policy classifies a detector's two measures independently and keeps the
// higher severity. Tiers are ordered from most to least severe.
type Policy struct {
	Statistic []Tier `yaml:"statistic" json:"statistic"`
	Change    []Tier `yaml:"change" json:"change"`
}

// Policies holds one Policy per detector.
type Policies struct {
	Price   Policy `yaml:"price" json:"price"`
	Tariff  Policy `yaml:"tariff" json:"tariff"`
	Freight Policy `yaml:"freight" json:"freight"`
	FX      Policy `yaml:"fx" json:"fx"`
}

// DefaultPolicies returns the built-in severity table.
//
//	price    z 4/3/2.5          change 100/50/25/10
//	tariff   rate delta 10/5/2  change 50/25/15/10
//	freight  z 4/3/2.5          change 50/35/25/15
//	fx       volatility 10/7/5/2.5  change 15/10/5
func DefaultPolicies() Policies {
	return Policies{
		Price: Policy{
			Statistic: tiers(4.0, 3.0, 2.5),
			Change:    tiers(100, 50, 25, 10),
		},
		Tariff: Policy{
			Statistic: tiers(10, 5, 2),
			Change:    tiers(50, 25, 15, 10),
		},
		Freight: Policy{
			Statistic: tiers(4.0, 3.0, 2.5),
			Change:    tiers(50, 35, 25, 15),
		},
		FX: Policy{
			Statistic: tiers(10, 7, 5, 2.5),
			Change:    tiers(15, 10, 5),
		},
	}
}

// tiers builds critical, high, medium, low tiers from as many cutoffs as given.
func tiers(cutoffs ...float64) []Tier {
	order := []domain.Severity{
		domain.SeverityCritical,
		domain.SeverityHigh,
		domain.SeverityMedium,
		domain.SeverityLow,
	}
	out := make([]Tier, 0, len(cutoffs))
	for i, c := range cutoffs {
		out = append(out, Tier{Severity: order[i], Min: c})
	}
	return out
}

// LoadPolicies reads a YAML file over the defaults. Detectors or measures
// missing from the file keep their default tiers.
func LoadPolicies(path string) (Policies, error) {
	p := DefaultPolicies()
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Policies{}, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policies{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policies{}, err
	}
	return p, nil
}

// Validate checks every policy.
func (p Policies) Validate() error {
	for name, policy := range map[string]Policy{
		"price":   p.Price,
		"tariff":  p.Tariff,
		"freight": p.Freight,
		"fx":      p.FX,
	} {
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("%s policy: %w", name, err)
		}
	}
	return nil
}

// Validate checks that tiers use known severities and strictly descend in
// both cutoff and severity.
func (p Policy) Validate() error {
	if len(p.Statistic) == 0 && len(p.Change) == 0 {
		return errors.New("no tiers")
	}
	for _, ts := range [][]Tier{p.Statistic, p.Change} {
		for i, t := range ts {
			if !t.Severity.IsValid() {
				return fmt.Errorf("unknown severity %q", t.Severity)
			}
			if t.Min < 0 || math.IsNaN(t.Min) || math.IsInf(t.Min, 0) {
				return fmt.Errorf("invalid cutoff %v", t.Min)
			}
			if i == 0 {
				continue
			}
			prev := ts[i-1]
			if t.Min >= prev.Min || t.Severity.Rank() >= prev.Severity.Rank() {
				return fmt.Errorf("tiers must strictly descend: %s@%v after %s@%v", t.Severity, t.Min, prev.Severity, prev.Min)
			}
		}
	}
	return nil
}

// Classify returns the higher of the statistic and change classifications.
// ok is false when neither measure reaches any tier.
func (p Policy) Classify(stat, change float64) (domain.Severity, bool) {
	s, sok := classify(p.Statistic, stat)
	c, cok := classify(p.Change, change)
	switch {
	case sok && cok:
		return domain.MaxSeverity(s, c), true
	case sok:
		return s, true
	case cok:
		return c, true
	default:
		return "", false
	}
}

// ClassifyOrLow is Classify with low as the floor for detected anomalies.
func (p Policy) ClassifyOrLow(stat, change float64) domain.Severity {
	if sev, ok := p.Classify(stat, change); ok {
		return sev
	}
	return domain.SeverityLow
}

// LowestChange returns the smallest change cutoff, or +Inf when the policy has no change tiers.
func (p Policy) LowestChange() float64 {
	if len(p.Change) == 0 {
		return math.Inf(1)
	}
	return p.Change[len(p.Change)-1].Min
}

func classify(ts []Tier, v float64) (domain.Severity, bool) {
	if math.IsNaN(v) {
		return "", false
	}
	v = math.Abs(v)
	for _, t := range ts {
		if v >= t.Min {
			return t.Severity, true
		}
	}
	return "", false
}
