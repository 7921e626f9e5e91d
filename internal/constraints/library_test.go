package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/lineplan/pkg/scheduler/constraint/builtin"
)

func TestLibraryMatchesManager(t *testing.T) {
	registered := builtin.NewDefaultManager().GetAll()
	library := GetLibrary()
	require.Len(t, library, len(registered))

	for i, c := range registered {
		assert.Equal(t, c.Type(), library[i].Name, "第 %d 个约束", i+1)
		assert.Equal(t, c.Category(), library[i].Type)
	}
}

func TestFind(t *testing.T) {
	d, ok := Find("portion")
	require.True(t, ok)
	assert.Len(t, d.Params, 2)

	_, ok = Find("max_hours_per_day")
	assert.False(t, ok)
}
