package ingest

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const maxPlainTextBytes = 100 * 1024 // cap for flat text extraction

// PDFTextExtractor is the capability interface for text-layer extraction
// from PDF statements. One concrete implementation is selected at build
// time; callers never probe for engine variants at runtime.
type PDFTextExtractor interface {
	// PlainText returns the document's flat text stream (fast path, no
	// column awareness).
	PlainText(data []byte, password string) (string, error)
	// PageGrids returns per-page row/column grids reconstructed from
	// positioned text fragments (structure-preserving path).
	PageGrids(data []byte, password string) ([]PageGrid, error)
	// PageCount reports the number of pages, falling back to 1 when the
	// document cannot be opened.
	PageCount(data []byte) int
}

type pdfEngine struct{}

// NewPDFTextExtractor returns the text-layer extraction engine.
func NewPDFTextExtractor() PDFTextExtractor {
	return &pdfEngine{}
}

// open decrypts the document if a password was supplied and hands the
// resulting bytes to the text-layer reader. Password failures surface as
// distinct conditions; an encrypted document is never silently returned as
// empty text.
func (e *pdfEngine) open(data []byte, password string) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r = nil
			err = newError(ErrEngineUnavailable, "PDF engine failed to open document", fmt.Errorf("panic: %v", rec))
		}
	}()

	if password != "" {
		decrypted, derr := decryptPDF(data, password)
		if derr != nil {
			return nil, derr
		}
		data = decrypted
	}

	r, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if rerr != nil {
		return nil, classifyOpenError(rerr, password)
	}
	return r, nil
}

// decryptPDF removes encryption using the supplied user password. A
// password supplied for an unencrypted document is ignored.
func decryptPDF(data []byte, password string) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.UserPW = password
	conf.OwnerPW = password

	var buf bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &buf, conf); err != nil {
		if strings.Contains(err.Error(), "not encrypted") {
			return data, nil
		}
		return nil, newError(ErrIncorrectPassword, "the supplied statement password is incorrect", err)
	}
	return buf.Bytes(), nil
}

// classifyOpenError maps reader failures to the ingestion taxonomy.
func classifyOpenError(err error, password string) *IngestError {
	if strings.Contains(err.Error(), "encrypted") {
		if password == "" {
			return newError(ErrPasswordRequired, "the statement is password protected", err)
		}
		return newError(ErrIncorrectPassword, "the supplied statement password is incorrect", err)
	}
	return newError(ErrEngineUnavailable, "PDF engine could not read document", err)
}

func (e *pdfEngine) PlainText(data []byte, password string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = newError(ErrEngineUnavailable, "PDF engine failed during text extraction", fmt.Errorf("panic: %v", rec))
		}
	}()

	r, err := e.open(data, password)
	if err != nil {
		return "", err
	}

	stream, err := r.GetPlainText()
	if err != nil {
		return "", newError(ErrEngineUnavailable, "PDF engine failed during text extraction", err)
	}
	raw, err := io.ReadAll(io.LimitReader(stream, maxPlainTextBytes))
	if err != nil {
		return "", newError(ErrEngineUnavailable, "PDF engine failed during text extraction", err)
	}

	text = string(raw)
	if strings.TrimSpace(text) == "" {
		return "", newError(ErrNoExtractableText, "the document has no extractable text layer", nil)
	}
	return text, nil
}

func (e *pdfEngine) PageGrids(data []byte, password string) (grids []PageGrid, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			grids = nil
			err = newError(ErrEngineUnavailable, "PDF engine failed during layout extraction", fmt.Errorf("panic: %v", rec))
		}
	}()

	r, err := e.open(data, password)
	if err != nil {
		return nil, err
	}

	hasText := false
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		frags := pageFragments(page, pageNum)
		rows := BuildRows(frags)
		if len(rows) > 0 {
			hasText = true
		}
		grids = append(grids, PageGrid{Page: pageNum, Rows: rows})
	}

	if !hasText {
		return nil, newError(ErrNoExtractableText, "the document has no extractable text layer", nil)
	}
	return grids, nil
}

// pageFragments converts the page's glyph runs into fragments with y
// normalized to grow downward from the top of the page. The text layer
// reports y up from the bottom edge, which would otherwise invert row order.
func pageFragments(page pdf.Page, pageNum int) []Fragment {
	content := page.Content()
	if len(content.Text) == 0 {
		return nil
	}

	maxY := content.Text[0].Y
	for _, t := range content.Text[1:] {
		if t.Y > maxY {
			maxY = t.Y
		}
	}

	frags := make([]Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		frags = append(frags, Fragment{
			Text: t.S,
			X:    t.X,
			Y:    maxY - t.Y,
			W:    t.W,
			H:    t.FontSize,
			Page: pageNum,
		})
	}
	return frags
}

func (e *pdfEngine) PageCount(data []byte) (n int) {
	defer func() {
		if rec := recover(); rec != nil {
			n = countPagesHeuristic(data)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return countPagesHeuristic(data)
	}
	if n = r.NumPage(); n > 0 {
		return n
	}
	return 1
}

// countPagesHeuristic counts "/Type /Page" occurrences (excluding /Pages)
// when the document cannot be opened properly.
func countPagesHeuristic(data []byte) int {
	content := string(data)
	count := 0
	idx := 0
	for {
		pos := strings.Index(content[idx:], "/Type /Page")
		if pos == -1 {
			break
		}
		absPos := idx + pos
		afterPage := absPos + len("/Type /Page")
		if afterPage >= len(content) || content[afterPage] != 's' {
			count++
		}
		idx = absPos + 1
	}
	if count == 0 {
		count = 1
	}
	return count
}

// IsPDF reports whether the data starts with the PDF magic bytes.
func IsPDF(data []byte) bool {
	return len(data) >= 4 && string(data[:4]) == "%PDF"
}
