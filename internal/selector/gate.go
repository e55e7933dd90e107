package selector

import (
	"strings"

	"github.com/bits-and-blooms/bloom/v3"

	"github.com/concord-hq/concord/internal/agent"
	"github.com/concord-hq/concord/internal/model"
)

// defaultGateFPRate applies when the configured rate is unset. A false
// positive only adds one agent to the ranking stage, so a modest rate
// keeps the filters tiny.
const defaultGateFPRate = 0.01

// gate passes the members whose keyword set shares at least one term
// with the demand. Each member gets its own Bloom filter over its
// keywords and capabilities; demand terms are probed against it. Bloom
// semantics admit false positives but never false negatives, so a
// genuinely overlapping member always survives.
func gate(demand model.Demand, members []agent.Profile, fpRate float64) []agent.Profile {
	terms := demandTerms(demand)
	if len(terms) == 0 {
		return nil
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = defaultGateFPRate
	}

	var survivors []agent.Profile
	for _, p := range members {
		if memberFilter(p, fpRate).hit(terms) {
			survivors = append(survivors, p)
		}
	}
	return survivors
}

type keywordFilter struct {
	bf *bloom.BloomFilter
}

func memberFilter(p agent.Profile, fpRate float64) keywordFilter {
	n := len(p.Keywords) + len(p.Capabilities)
	if n == 0 {
		n = 1
	}
	bf := bloom.NewWithEstimates(uint(n), fpRate)
	for _, kw := range p.Keywords {
		bf.AddString(strings.ToLower(kw))
	}
	for _, c := range p.Capabilities {
		bf.AddString(strings.ToLower(c))
	}
	return keywordFilter{bf: bf}
}

func (f keywordFilter) hit(terms []string) bool {
	for _, t := range terms {
		if f.bf.TestString(t) {
			return true
		}
	}
	return false
}

func demandTerms(demand model.Demand) []string {
	terms := make([]string, 0, len(demand.Keywords)+len(demand.CapabilityTags))
	for _, kw := range demand.Keywords {
		terms = append(terms, strings.ToLower(kw))
	}
	for _, tag := range demand.CapabilityTags {
		terms = append(terms, strings.ToLower(tag))
	}
	return terms
}
