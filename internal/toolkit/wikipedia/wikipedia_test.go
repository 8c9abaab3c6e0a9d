package wikipedia

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanWikitextStripsLinksAndFiles(t *testing.T) {
	text := "See [[File:Example.png|thumb]] for reference.\nThe [[Albert Einstein|physicist]] was born in 1879.\n==References==\nstuff"
	cleaned := cleanWikitext(text)
	assert.Contains(t, cleaned, "physicist")
	assert.NotContains(t, cleaned, "==References==")
}

func TestContains(t *testing.T) {
	assert.True(t, contains([]string{"a", "b"}, "b"))
	assert.False(t, contains([]string{"a", "b"}, "c"))
}
