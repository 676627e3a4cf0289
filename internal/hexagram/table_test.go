package hexagram

import (
	"testing"

	"github.com/herohuhu666/wanwu/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTableIsComplete(t *testing.T) {
	table := Default()
	require.Equal(t, 64, table.Len())

	for id := 1; id <= 64; id++ {
		h, ok := table.ByID(id)
		require.True(t, ok, "missing hexagram %d", id)
		require.Len(t, h.Lines, 6)
		assert.True(t, h.Element.Valid(), "hexagram %d has element %q", id, h.Element)

		back, ok := table.ByLines(h.Lines)
		require.True(t, ok)
		assert.Equal(t, id, back.ID)
	}
}

func TestKnownLinePatterns(t *testing.T) {
	table := Default()

	cases := map[string]string{
		"111111": "乾",
		"000000": "坤",
		"100010": "屯",
		"101010": "既济",
		"010101": "未济",
	}
	for key, name := range cases {
		h, ok := table.ByLines(key)
		require.True(t, ok, key)
		assert.Equal(t, name, h.Name, key)
	}
}

func TestLinesKey(t *testing.T) {
	key := LinesKey([]domain.Yao{domain.Yang, domain.Yin, domain.Yang, domain.Yang, domain.Yin, domain.Yin})
	assert.Equal(t, "101100", key)
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Hexagram{
		{ID: 1, Name: "乾", Lines: "111111"},
		{ID: 2, Name: "坤", Lines: "111111"},
	})
	require.Error(t, err)

	_, err = NewTable([]Hexagram{{ID: 1, Lines: "11x111"}})
	require.Error(t, err)
}

func TestLineCommentary(t *testing.T) {
	h, ok := Default().ByID(3)
	require.True(t, ok)

	lines := h.LineCommentary()
	require.Len(t, lines, 6)
	assert.Equal(t, "初九", lines[0].Label)
	assert.Equal(t, "六二", lines[1].Label)
	assert.Equal(t, "九五", lines[4].Label)
	assert.Equal(t, "上六", lines[5].Label)
	assert.True(t, lines[0].Yang)
	assert.False(t, lines[5].Yang)
}
