package contentblock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable(t *testing.T) {
	table := DefaultTable()
	require.Len(t, table, 5)

	for _, r := range table {
		assert.Equal(t, ActionBlock, r.Action.Type)
		assert.NotEmpty(t, r.Trigger.URLFilter)
	}

	assert.True(t, table[0].Trigger.ThirdPartyOnly())
	assert.False(t, table[1].Trigger.ThirdPartyOnly())
}

func TestDefaultTable_FreshCopy(t *testing.T) {
	a := DefaultTable()
	a[0].Trigger.LoadType[0] = LoadTypeFirstParty

	b := DefaultTable()
	assert.Equal(t, LoadTypeThirdParty, b[0].Trigger.LoadType[0])
}

func TestParseTable(t *testing.T) {
	data := []byte(`[
		{"trigger": {"url-filter": ".*ads\\.example/.*", "load-type": ["third-party"]}, "action": {"type": "block"}},
		{"trigger": {"url-filter": "tracker"}, "action": {"type": "block"}}
	]`)

	table, err := ParseTable(data)
	require.NoError(t, err)
	require.Len(t, table, 2)

	assert.Equal(t, `.*ads\.example/.*`, table[0].Trigger.URLFilter)
	assert.Equal(t, []LoadType{LoadTypeThirdParty}, table[0].Trigger.LoadType)
	assert.Nil(t, table[1].Trigger.LoadType)
}

func TestParseTable_Invalid(t *testing.T) {
	_, err := ParseTable([]byte(`{"trigger":`))
	assert.Error(t, err)
}

func TestRuleTable_Clone(t *testing.T) {
	orig := DefaultTable()
	clone := orig.Clone()
	clone[0].Trigger.URLFilter = "changed"
	clone[0].Trigger.LoadType[0] = LoadTypeFirstParty

	assert.NotEqual(t, "changed", orig[0].Trigger.URLFilter)
	assert.Equal(t, LoadTypeThirdParty, orig[0].Trigger.LoadType[0])
}
