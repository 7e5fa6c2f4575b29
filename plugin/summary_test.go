package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarizeSingleSentenceIsDeterministic(t *testing.T) {
	lines := []string{"the quick fox", "the quick fox"}
	out := Summarize(lines, 1)
	assert.Equal(t, []string{"the quick fox"}, out)
}

func TestSummarizeSkipsLinesShorterThanChainLength(t *testing.T) {
	lines := []string{"too short", "also short", "x y"}
	out := Summarize(lines, 3)
	assert.Nil(t, out)
}

func TestSummarizeSizeNonPositiveReturnsNil(t *testing.T) {
	assert.Nil(t, Summarize([]string{"the quick fox jumps"}, 0))
	assert.Nil(t, Summarize([]string{"the quick fox jumps"}, -1))
}

func TestSummarizeEmptyInputReturnsNil(t *testing.T) {
	assert.Nil(t, Summarize(nil, 5))
}

func TestSummarizeCapsToAvailableDistinctSentences(t *testing.T) {
	lines := []string{
		"alpha bravo charlie",
		"delta echo foxtrot",
	}
	out := Summarize(lines, 10)
	assert.ElementsMatch(t, []string{"alpha bravo charlie", "delta echo foxtrot"}, out)
}

func TestSummarizeNeverDuplicatesWithinOneCall(t *testing.T) {
	lines := []string{
		"one two three",
		"four five six",
		"seven eight nine",
	}
	out := Summarize(lines, 3)
	seen := make(map[string]bool, len(out))
	for _, s := range out {
		assert.False(t, seen[s], "summary must not repeat a sentence")
		seen[s] = true
	}
}
