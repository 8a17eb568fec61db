package ingest

import (
	"sort"
	"strings"
)

// Row/column reconstruction thresholds, in PDF text-space units.
// The gap heuristic is what lets a downstream consumer tell
// "date | merchant | amount" columns apart without an explicit grid.
const (
	rowTolerance = 3.0  // fragments within this y distance share a row
	cellBreakGap = 30.0 // horizontal gap beyond this starts a new cell
	wideGap      = 10.0 // gap beyond this renders as a double space
	narrowGap    = 2.0  // gap beyond this renders as a single space
)

// BuildRows groups positioned fragments into ordered table rows. Rows are
// ordered by ascending y (top of page first), cells within a row by
// ascending x. Rows with no non-empty cell are dropped.
func BuildRows(frags []Fragment) []TableRow {
	if len(frags) == 0 {
		return nil
	}

	type bucket struct {
		yMin, yMax float64
		frags      []Fragment
	}

	var buckets []bucket
	for _, f := range frags {
		if strings.TrimSpace(f.Text) == "" {
			continue
		}
		placed := false
		for i := range buckets {
			if f.Y >= buckets[i].yMin-rowTolerance && f.Y <= buckets[i].yMax+rowTolerance {
				buckets[i].frags = append(buckets[i].frags, f)
				if f.Y < buckets[i].yMin {
					buckets[i].yMin = f.Y
				}
				if f.Y > buckets[i].yMax {
					buckets[i].yMax = f.Y
				}
				placed = true
				break
			}
		}
		if !placed {
			buckets = append(buckets, bucket{yMin: f.Y, yMax: f.Y, frags: []Fragment{f}})
		}
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].yMin < buckets[j].yMin
	})

	var rows []TableRow
	for _, b := range buckets {
		row := assembleCells(b.frags)
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// assembleCells merges x-sorted fragments of one row into cells, inserting a
// cell break when the horizontal gap between consecutive fragments exceeds
// cellBreakGap and narrowing to double/single spaces below that.
func assembleCells(frags []Fragment) TableRow {
	sort.SliceStable(frags, func(i, j int) bool {
		return frags[i].X < frags[j].X
	})

	var row TableRow
	var cell strings.Builder
	prevEnd := 0.0

	flush := func() {
		if s := strings.TrimSpace(cell.String()); s != "" {
			row = append(row, s)
		}
		cell.Reset()
	}

	for i, f := range frags {
		if i > 0 {
			gap := f.X - prevEnd
			switch {
			case gap > cellBreakGap:
				flush()
			case gap > wideGap:
				cell.WriteString("  ")
			case gap > narrowGap:
				cell.WriteString(" ")
			}
		}
		cell.WriteString(f.Text)
		if end := f.X + f.W; end > prevEnd {
			prevEnd = end
		}
	}
	flush()

	return row
}

// rowText renders one row as a single line, cells separated by a space.
func rowText(row TableRow) string {
	return strings.Join(row, " ")
}
