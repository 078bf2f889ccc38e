package contentblock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"slices"
)

var (
	// ErrEmptyTable is returned when compiling a table with no rules.
	ErrEmptyTable = errors.New("contentblock: empty rule table")
	// ErrInvalidRule wraps every per-rule validation failure.
	ErrInvalidRule = errors.New("contentblock: invalid rule")
)

// RuleSet is a compiled, immutable rule table. It is shared read-only by all
// sessions once compilation succeeds.
type RuleSet struct {
	id       string
	rules    RuleTable
	filters  []*regexp.Regexp
	encoded  []byte
	thirdPty int
}

// Identifier returns the name the rule list was compiled under.
func (s *RuleSet) Identifier() string { return s.id }

// Len returns the number of compiled rules.
func (s *RuleSet) Len() int { return len(s.rules) }

// Rules returns a copy of the compiled rules in table order.
func (s *RuleSet) Rules() RuleTable { return s.rules.Clone() }

// Encoded returns the JSON form handed to engines that accept the rule list
// format natively.
func (s *RuleSet) Encoded() []byte { return slices.Clone(s.encoded) }

// Filter returns the compiled url-filter of rule i.
func (s *RuleSet) Filter(i int) *regexp.Regexp { return s.filters[i] }

// ThirdPartyRules returns how many rules only apply to third-party loads.
func (s *RuleSet) ThirdPartyRules() int { return s.thirdPty }

// Compile validates table and produces a RuleSet named id. It checks every
// url-filter compiles, every load-type is known and every action is a block.
// The context is checked between rules so a very large table can be abandoned.
func Compile(ctx context.Context, id string, table RuleTable) (*RuleSet, error) {
	if len(table) == 0 {
		return nil, ErrEmptyTable
	}

	set := &RuleSet{
		id:      id,
		rules:   table.Clone(),
		filters: make([]*regexp.Regexp, len(table)),
	}

	for i, r := range set.rules {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("contentblock: compile: %w", err)
		}

		re, err := compileRule(r)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrInvalidRule, i, err)
		}
		set.filters[i] = re

		if r.Trigger.ThirdPartyOnly() {
			set.thirdPty++
		}
	}

	encoded, err := json.Marshal(set.rules)
	if err != nil {
		return nil, fmt.Errorf("contentblock: encode: %w", err)
	}
	set.encoded = encoded

	return set, nil
}

func compileRule(r Rule) (*regexp.Regexp, error) {
	if r.Trigger.URLFilter == "" {
		return nil, errors.New("url-filter is required")
	}

	for _, lt := range r.Trigger.LoadType {
		if lt != LoadTypeFirstParty && lt != LoadTypeThirdParty {
			return nil, fmt.Errorf("unknown load-type %q", lt)
		}
	}

	if r.Action.Type != ActionBlock {
		return nil, fmt.Errorf("unsupported action %q", r.Action.Type)
	}

	re, err := regexp.Compile(r.Trigger.URLFilter)
	if err != nil {
		return nil, fmt.Errorf("url-filter: %w", err)
	}

	return re, nil
}
