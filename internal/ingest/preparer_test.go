package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareGridsNumbersAcrossPages(t *testing.T) {
	doc := PrepareGrids([]PageGrid{
		{Page: 1, Rows: []TableRow{{"Date", "Merchant"}, {"12/08", "Starbucks"}}},
		{Page: 2, Rows: []TableRow{{"13/08", "Amazon"}}},
	})

	require.Len(t, doc.Pages, 2)
	assert.Equal(t, 3, doc.TotalLines)
	assert.Equal(t, 1, doc.Pages[0].Lines[0].Index)
	assert.Equal(t, 2, doc.Pages[0].Lines[1].Index)
	assert.Equal(t, 3, doc.Pages[1].Lines[0].Index)
	assert.Equal(t, "Date Merchant", doc.Pages[0].Lines[0].Text)
}

func TestPrepareGridsSkipsBlankRowsBeforeNumbering(t *testing.T) {
	doc := PrepareGrids([]PageGrid{
		{Page: 1, Rows: []TableRow{{"first"}, {"   ", "\t"}, {"second"}}},
	})

	require.Len(t, doc.Pages[0].Lines, 2)
	assert.Equal(t, 1, doc.Pages[0].Lines[0].Index)
	assert.Equal(t, 2, doc.Pages[0].Lines[1].Index)
}

func TestPrepareTextCollapsesWhitespace(t *testing.T) {
	doc := PrepareText("  12/08   Starbucks\t\t4.50  \n\n13/08 Amazon 20.00\n")

	require.Len(t, doc.Pages, 1)
	require.Len(t, doc.Pages[0].Lines, 2)
	assert.Equal(t, "12/08 Starbucks 4.50", doc.Pages[0].Lines[0].Text)
	assert.Equal(t, "13/08 Amazon 20.00", doc.Pages[0].Lines[1].Text)
}

func TestCollapseIsIdempotent(t *testing.T) {
	once := collapse("  a   b\tc  ")
	assert.Equal(t, once, collapse(once))
}

func TestCorpusRendering(t *testing.T) {
	doc := PrepareText("first line\nsecond line")
	assert.Equal(t, "1. first line\n2. second line", doc.Pages[0].Corpus())
}
