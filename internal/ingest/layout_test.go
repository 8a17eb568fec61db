package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frag(text string, x, y, w float64) Fragment {
	return Fragment{Text: text, X: x, Y: y, W: w, H: 10, Page: 1}
}

func TestBuildRowsGroupsByVerticalProximity(t *testing.T) {
	rows := BuildRows([]Fragment{
		frag("Date", 0, 100, 30),
		frag("Merchant", 100, 102, 60), // within tolerance of the first
		frag("Amount", 300, 101.5, 40),
		frag("12/08", 0, 120, 30), // clearly a new row
	})

	require.Len(t, rows, 2)
	assert.Equal(t, TableRow{"Date", "Merchant", "Amount"}, rows[0])
	assert.Equal(t, TableRow{"12/08"}, rows[1])
}

func TestBuildRowsOrdersRowsTopDown(t *testing.T) {
	rows := BuildRows([]Fragment{
		frag("second", 0, 50, 30),
		frag("first", 0, 10, 30),
		frag("third", 0, 90, 30),
	})

	require.Len(t, rows, 3)
	assert.Equal(t, "first", rows[0][0])
	assert.Equal(t, "second", rows[1][0])
	assert.Equal(t, "third", rows[2][0])
}

func TestColumnBreakThreshold(t *testing.T) {
	// A 31-unit gap splits cells, a 29-unit gap does not.
	split := BuildRows([]Fragment{
		frag("left", 0, 10, 10),
		frag("right", 41, 10, 10), // gap of 31 from the end of "left"
	})
	require.Len(t, split, 1)
	assert.Equal(t, TableRow{"left", "right"}, split[0])

	joined := BuildRows([]Fragment{
		frag("left", 0, 10, 10),
		frag("right", 39, 10, 10), // gap of 29
	})
	require.Len(t, joined, 1)
	require.Len(t, joined[0], 1)
	assert.Equal(t, "left  right", joined[0][0])
}

func TestSmallGapsJoinWithinCell(t *testing.T) {
	rows := BuildRows([]Fragment{
		frag("STAR", 0, 10, 20),
		frag("BUCKS", 20.5, 10, 25), // sub-2-unit gap, no space
		frag("COFFEE", 50, 10, 30),  // 4.5-unit gap, single space
	})

	require.Len(t, rows, 1)
	require.Len(t, rows[0], 1)
	assert.Equal(t, "STARBUCKS COFFEE", rows[0][0])
}

func TestBuildRowsDropsWhitespaceFragments(t *testing.T) {
	rows := BuildRows([]Fragment{
		frag("  ", 0, 10, 5),
		frag("\t", 0, 30, 5),
	})
	assert.Empty(t, rows)
}
