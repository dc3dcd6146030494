package updater

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewer(t *testing.T) {
	t.Run("lexicographic by design", func(t *testing.T) {
		assert.True(t, Newer("1.9.0", "1.10.0"), "preserved compatibility wart: '1.9.0' > '1.10.0' lexicographically")
		assert.True(t, Newer("1.0.1", "1.0.0"))
		assert.False(t, Newer("1.0.0", "1.0.0"))
		assert.False(t, Newer("1.0.0", "1.0.1"))
	})
}

func TestCompareNumeric(t *testing.T) {
	assert.Equal(t, -1, CompareNumeric("1.9.0", "1.10.0"))
	assert.Equal(t, 1, CompareNumeric("1.10.0", "1.9.0"))
	assert.Equal(t, 0, CompareNumeric("1.0.0", "1.0.0"))
	assert.Equal(t, -1, CompareNumeric("0.0.0", "0.0.1"))
}

func TestSplitTriple(t *testing.T) {
	assert.Equal(t, [3]int{1, 2, 3}, splitTriple("1.2.3"))
	assert.Equal(t, [3]int{1, 0, 0}, splitTriple("1"))
	assert.Equal(t, [3]int{0, 0, 0}, splitTriple("rc1"))
}
