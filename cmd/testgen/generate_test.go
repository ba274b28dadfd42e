package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategoryFlags(t *testing.T) {
	got, err := parseCategoryFlags([]string{"Physics|||=1", " Mathematics|1|| = 2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Physics|||": 1, "Mathematics|1||": 2}, got)

	for _, bad := range []string{"Physics|||", "Physics|||=x"} {
		_, err := parseCategoryFlags([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestGenerateInMemoryDryRun(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"--memory", "generate",
		"--category", "Physics|||=1",
		"--category", "Mathematics|1||=1",
		"--variants", "3",
		"--seed", "11",
	})
	require.NoError(t, rootCmd.Execute())

	var variants []struct {
		Number    int `json:"variant_number"`
		Questions []struct {
			Specialty string `json:"specialty"`
		} `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &variants))
	require.Len(t, variants, 3)
	for i, v := range variants {
		assert.Equal(t, i+1, v.Number)
		require.Len(t, v.Questions, 2)
		assert.ElementsMatch(t, []string{"Physics", "Mathematics"},
			[]string{v.Questions[0].Specialty, v.Questions[1].Specialty})
	}
}
