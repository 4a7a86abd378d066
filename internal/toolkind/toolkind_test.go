package toolkind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	k, err := Parse(" NLP_to_SQL ")
	require.NoError(t, err)
	assert.Equal(t, NLPToSQL, k)

	_, err = Parse("rag_kendra")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEveryKindHasTemplateAndLabel(t *testing.T) {
	for _, k := range All() {
		t.Run(k.String(), func(t *testing.T) {
			assert.Contains(t, k.Template(), "def process(")
			assert.NotEmpty(t, k.ProcessLabel())
		})
	}
	assert.Empty(t, Kind("other").Template())
}
