package analytics

import (
	"errors"
	"fmt"

	"fintrack/internal/core"
)

type Strategy string

const (
	// Weighted applies fixed per-category weights to total income.
	Weighted Strategy = "weighted"
	// Proportional splits income by each category's share of historical
	// expense, or evenly across expense categories when there is none.
	Proportional Strategy = "proportional"
)

// basisPoints is the denominator of every weight: 10000 = 100%.
const basisPoints = 10_000

// DefaultWeights sum to 90% of income, leaving the rest unallocated as savings.
var DefaultWeights = map[core.Category]int64{
	core.Rent:          3000,
	core.Food:          1500,
	core.Shopping:      1000,
	core.Travel:        1000,
	core.Health:        1000,
	core.Other:         1000,
	core.Entertainment: 500,
	core.Salary:        0,
}

// Policy parameterizes allocation and anomaly detection.
type Policy struct {
	Strategy Strategy
	// Weights in basis points, used by the Weighted strategy.
	Weights map[core.Category]int64
	// AnomalyThreshold is the fraction above allocation that is tolerated.
	// 1.0 flags spend above twice the suggested amount.
	AnomalyThreshold float64
}

func DefaultPolicy() Policy {
	return Policy{
		Strategy:         Weighted,
		Weights:          DefaultWeights,
		AnomalyThreshold: 1.0,
	}
}

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case Weighted, Proportional:
		return st, nil
	}
	return "", fmt.Errorf("unknown budget strategy %q (must be %q or %q)", s, Weighted, Proportional)
}

// Validate rejects policies that could suggest more than total income.
func (p Policy) Validate() error {
	var errs []error
	if _, err := ParseStrategy(string(p.Strategy)); err != nil {
		errs = append(errs, err)
	}
	if p.AnomalyThreshold < 0 {
		errs = append(errs, fmt.Errorf("anomaly threshold must not be negative, got %v", p.AnomalyThreshold))
	}
	var sum int64
	for c, w := range p.Weights {
		if !c.Valid() {
			errs = append(errs, fmt.Errorf("weight for unknown category %q", c))
		}
		if w < 0 {
			errs = append(errs, fmt.Errorf("weight for %s must not be negative", c))
		}
		sum += w
	}
	if sum > basisPoints {
		errs = append(errs, fmt.Errorf("weights sum to %d basis points, more than %d", sum, basisPoints))
	}
	return errors.Join(errs...)
}
