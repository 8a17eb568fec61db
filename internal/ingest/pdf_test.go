package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyOpenError(t *testing.T) {
	encrypted := errors.New("encrypted PDF: invalid password")

	assert.Equal(t, ErrPasswordRequired, classifyOpenError(encrypted, "").Code)
	assert.Equal(t, ErrIncorrectPassword, classifyOpenError(encrypted, "hunter2").Code)
	assert.Equal(t, ErrEngineUnavailable, classifyOpenError(errors.New("malformed PDF"), "").Code)
}

func TestCountPagesHeuristic(t *testing.T) {
	doc := "%PDF-1.4 /Type /Pages /Type /Page x /Type /Page y"
	assert.Equal(t, 2, countPagesHeuristic([]byte(doc)))
	assert.Equal(t, 1, countPagesHeuristic([]byte("no markers")), "floor of one page")
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n")))
	assert.False(t, IsPDF([]byte("PK\x03\x04")))
	assert.False(t, IsPDF(nil))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, formatPDF, detectFormat([]byte("%PDF-1.7"), "renamed.csv"), "magic bytes win over extension")
	assert.Equal(t, formatXLSX, detectFormat([]byte("PK\x03\x04rest"), "book.xlsx"))
	assert.Equal(t, formatXLS, detectFormat([]byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, "book.xls"))
	assert.Equal(t, formatCSV, detectFormat([]byte("a,b,c"), "rows.csv"))
	assert.Equal(t, formatText, detectFormat([]byte("plain"), "notes.txt"))
	assert.Equal(t, formatUnknown, detectFormat([]byte("\x89PNG"), "photo.png"))
}
