// Package plans holds the fixed membership tiers offered at checkout.
package plans

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultTable []byte

type Plan struct {
	Tier        string          `yaml:"tier"         json:"tier"`
	DisplayName string          `yaml:"display_name" json:"display_name"`
	Description string          `yaml:"description"  json:"description"`
	RawPrice    string          `yaml:"price"        json:"-"`
	Price       decimal.Decimal `yaml:"-"            json:"price"`
}

type Table struct {
	Currency string `yaml:"currency"`
	Plans    []Plan `yaml:"plans"`
}

func Parse(data []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse plans: %w", err)
	}
	if len(t.Plans) == 0 {
		return nil, fmt.Errorf("parse plans: no plans defined")
	}

	seen := map[string]struct{}{}
	for i := range t.Plans {
		p := &t.Plans[i]
		if p.Tier == "" {
			return nil, fmt.Errorf("parse plans: plan %d has no tier", i)
		}
		price, err := decimal.NewFromString(p.RawPrice)
		if err != nil {
			return nil, fmt.Errorf("parse plans: %s price %q: %w", p.Tier, p.RawPrice, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("parse plans: %s price is negative", p.Tier)
		}
		p.Price = price

		for _, key := range []string{p.Tier, p.DisplayName} {
			if key == "" {
				continue
			}
			k := strings.ToLower(key)
			if _, dup := seen[k]; dup {
				return nil, fmt.Errorf("parse plans: duplicate name %q", key)
			}
			seen[k] = struct{}{}
		}
	}
	if t.Currency == "" {
		t.Currency = "usd"
	}
	return &t, nil
}

// Default returns the table compiled into the binary.
func Default() (*Table, error) {
	return Parse(defaultTable)
}

func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Resolve finds a plan by tier or marketing name, ignoring case.
func (t *Table) Resolve(name string) (Plan, bool) {
	name = strings.TrimSpace(name)
	for _, p := range t.Plans {
		if strings.EqualFold(p.Tier, name) || strings.EqualFold(p.DisplayName, name) {
			return p, true
		}
	}
	return Plan{}, false
}

func (t *Table) Tiers() []string {
	out := make([]string, 0, len(t.Plans))
	for _, p := range t.Plans {
		out = append(out, p.Tier)
	}
	return out
}
