package exam

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswers(t *testing.T) {
	sheet, err := ParseAnswers(json.RawMessage(`{
		"1": [0, 2],
		"2": 1,
		"3": [],
		"4": null,
		"5": ["a"],
		"6": [1.5],
		"7": {"selected": 1},
		"abc": [0]
	}`))
	require.NoError(t, err)

	assert.Equal(t, Selection{Indices: []int{0, 2}}, sheet[1])
	assert.Equal(t, Selection{Indices: []int{1}}, sheet[2])
	assert.Empty(t, sheet[3].Indices)
	assert.False(t, sheet[3].Malformed)
	assert.Equal(t, Selection{}, sheet[4])
	assert.True(t, sheet[5].Malformed)
	assert.True(t, sheet[6].Malformed)
	assert.True(t, sheet[7].Malformed)
	assert.Len(t, sheet, 7)
}

func TestParseAnswersRejectsNonObject(t *testing.T) {
	for _, raw := range []string{``, `null`, `[1,2]`, `"x"`, `{"1":`} {
		_, err := ParseAnswers(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrInvalidInput, "payload %q", raw)
	}
}

func TestParseAnswersEmptyObject(t *testing.T) {
	sheet, err := ParseAnswers(json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, sheet)
	assert.Empty(t, sheet)
}

func TestParseAnswersIgnoresNonCanonicalIDs(t *testing.T) {
	raw := json.RawMessage(`{"1":[0],"01":[1],"+1":[1]," 1":[1],"2":[1],"002":[0]}`)
	for i := 0; i < 20; i++ {
		sheet, err := ParseAnswers(raw)
		require.NoError(t, err)
		require.Len(t, sheet, 2)
		assert.Equal(t, []int{0}, sheet[1].Indices)
		assert.Equal(t, []int{1}, sheet[2].Indices)
	}
}
