package replacer

import (
	"fmt"
	"strings"

	"github.com/sushant-115/pagesim/core/memory/memerr"
)

// PolicyType is the tag selecting one of the eviction policies.
type PolicyType string

const (
	FIFO         PolicyType = "FIFO" // First in, first out
	Optimal      PolicyType = "OPT"  // Belady's optimal, needs a lookahead
	MRU          PolicyType = "MRU"  // Most recently used is evicted
	Random       PolicyType = "RND"  // Uniform random victim
	SecondChance PolicyType = "SC"   // FIFO with reference bits
)

// AllPolicies lists every supported policy tag in display order.
var AllPolicies = []PolicyType{FIFO, Optimal, MRU, Random, SecondChance}

// ParsePolicyType maps a tag such as "fifo" or "SC" to its PolicyType.
func ParsePolicyType(s string) (PolicyType, error) {
	tag := PolicyType(strings.ToUpper(strings.TrimSpace(s)))
	for _, p := range AllPolicies {
		if p == tag {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", memerr.ErrUnknownPolicy, s)
}

func (t PolicyType) String() string { return string(t) }
