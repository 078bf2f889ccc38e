package contentblock

import (
	"encoding/json"
	"fmt"
	"slices"
)

// LoadType constrains a trigger to first- or third-party loads.
type LoadType string

const (
	LoadTypeFirstParty LoadType = "first-party"
	LoadTypeThirdParty LoadType = "third-party"
)

// ActionType is what the engine does when a trigger matches.
type ActionType string

// ActionBlock prevents the matching load.
const ActionBlock ActionType = "block"

// Trigger selects the loads a rule applies to.
type Trigger struct {
	URLFilter string     `json:"url-filter"`
	LoadType  []LoadType `json:"load-type,omitempty"`
}

// ThirdPartyOnly reports whether the trigger is restricted to third-party loads.
func (t Trigger) ThirdPartyOnly() bool {
	return len(t.LoadType) == 1 && t.LoadType[0] == LoadTypeThirdParty
}

// Action is applied to loads selected by the trigger.
type Action struct {
	Type ActionType `json:"type"`
}

// Rule pairs a trigger with an action.
type Rule struct {
	Trigger Trigger `json:"trigger"`
	Action  Action  `json:"action"`
}

// RuleTable is an ordered list of rules. Order is preserved through
// compilation because engines evaluate rules in sequence.
type RuleTable []Rule

// ParseTable decodes a JSON rule table.
func ParseTable(data []byte) (RuleTable, error) {
	var table RuleTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("contentblock: parse table: %w", err)
	}
	return table, nil
}

// Clone returns a deep copy of the table.
func (t RuleTable) Clone() RuleTable {
	out := make(RuleTable, len(t))
	for i, r := range t {
		r.Trigger.LoadType = slices.Clone(r.Trigger.LoadType)
		out[i] = r
	}
	return out
}

// DefaultIdentifier names the built-in rule list.
const DefaultIdentifier = "BrimBlockList"

// DefaultTable returns the built-in table blocking common analytics and
// ad-tech endpoints. A fresh copy is returned on each call.
func DefaultTable() RuleTable {
	return RuleTable{
		{
			Trigger: Trigger{
				URLFilter: `.*google-analytics\.com/.*`,
				LoadType:  []LoadType{LoadTypeThirdParty},
			},
			Action: Action{Type: ActionBlock},
		},
		{
			Trigger: Trigger{URLFilter: `.*doubleclick\.net/.*`},
			Action:  Action{Type: ActionBlock},
		},
		{
			Trigger: Trigger{URLFilter: `.*adservice\.google\..*/.*`},
			Action:  Action{Type: ActionBlock},
		},
		{
			Trigger: Trigger{URLFilter: `.*facebook\.com/tr/.*`},
			Action:  Action{Type: ActionBlock},
		},
		{
			Trigger: Trigger{URLFilter: `.*googletagmanager\.com/.*`},
			Action:  Action{Type: ActionBlock},
		},
	}
}
