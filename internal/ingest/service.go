package ingest

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// Service ties together document reading, line preparation, masking,
// extraction and post-processing. It is the only entry point handlers use.
type Service struct {
	pdf       PDFTextExtractor
	llm       *LLMClient
	sanitizer *Sanitizer
	heuristic *HeuristicParser
	jobs      *JobStore
	log       *slog.Logger
}

// NewService wires an extraction service. llm may be nil, in which case
// every request takes the local heuristic path.
func NewService(pdf PDFTextExtractor, llm *LLMClient, sanitizer *Sanitizer, jobs *JobStore, log *slog.Logger) *Service {
	return &Service{
		pdf:       pdf,
		llm:       llm,
		sanitizer: sanitizer,
		heuristic: NewHeuristicParser(),
		jobs:      jobs,
		log:       log,
	}
}

// ExtractRequest describes one statement extraction.
type ExtractRequest struct {
	Data     []byte // raw file bytes; empty when Text is set
	Filename string
	Text     string // pasted statement text, used when no file is given
	Password string // PDF user password, if any
	Mask     bool   // mask PII before any text leaves the process
	Preview  bool   // stop after preparation and return the corpus
	UseAI    bool   // call the model; otherwise parse locally
}

// ExtractResult is what a finished extraction returns. Warnings report
// skipped chunks and other partial failures that did not abort the run.
type ExtractResult struct {
	Success     bool               `json:"success"`
	Expenses    []CandidateExpense `json:"expenses"`
	Warnings    []string           `json:"warnings,omitempty"`
	Pages       int                `json:"pages"`
	Lines       int                `json:"lines"`
	PreviewText string             `json:"preview_text,omitempty"`
}

// Extract runs the full pipeline synchronously.
func (s *Service) Extract(ctx context.Context, req ExtractRequest) (*ExtractResult, error) {
	doc, err := s.prepare(req)
	if err != nil {
		return nil, err
	}

	if req.Mask {
		s.sanitizer.MaskLines(&doc)
	}

	result := &ExtractResult{Success: true, Pages: len(doc.Pages), Lines: doc.TotalLines}
	if req.Preview {
		var b strings.Builder
		for i, page := range doc.Pages {
			if i > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(page.Corpus())
		}
		result.PreviewText = b.String()
		return result, nil
	}

	var expenses []CandidateExpense
	if req.UseAI && s.llm != nil {
		for _, page := range doc.Pages {
			pageExpenses, warnings := s.llm.ExtractPage(ctx, page)
			expenses = append(expenses, pageExpenses...)
			result.Warnings = append(result.Warnings, warnings...)
		}
	} else {
		expenses = s.heuristic.Parse(doc)
	}

	for i := range expenses {
		Normalize(&expenses[i])
	}
	expenses = Deduplicate(expenses)
	for i := range expenses {
		// Correlation fields served dedup; they mean nothing to callers.
		expenses[i].LineIndex = 0
		expenses[i].SourceChunk = 0
		expenses[i].Direction = ""
	}

	result.Expenses = expenses
	s.log.Info("extraction finished",
		"filename", req.Filename,
		"pages", result.Pages,
		"lines", result.Lines,
		"expenses", len(expenses),
		"warnings", len(result.Warnings),
		"used_ai", req.UseAI && s.llm != nil)
	return result, nil
}

// prepare turns the request's input into a numbered-line document.
func (s *Service) prepare(req ExtractRequest) (PreparedDocument, error) {
	if len(req.Data) == 0 {
		if strings.TrimSpace(req.Text) == "" {
			return PreparedDocument{}, newError(ErrInputRejected, "no file or text supplied", nil)
		}
		return PrepareText(req.Text), nil
	}

	switch detectFormat(req.Data, req.Filename) {
	case formatPDF:
		grids, err := s.pdf.PageGrids(req.Data, req.Password)
		if err != nil {
			if CodeOf(err) != ErrEngineUnavailable {
				return PreparedDocument{}, err
			}
			// Layout reconstruction failed on this document; the flat
			// text stream may still be readable.
			text, terr := s.pdf.PlainText(req.Data, req.Password)
			if terr != nil {
				return PreparedDocument{}, err
			}
			s.log.Warn("falling back to flat text extraction", "filename", req.Filename)
			return PrepareText(text), nil
		}
		return PrepareGrids(grids), nil
	case formatXLSX:
		grids, err := XLSXGrids(req.Data)
		if err != nil {
			return PreparedDocument{}, err
		}
		return PrepareGrids(grids), nil
	case formatXLS:
		grids, err := XLSGrids(req.Data)
		if err != nil {
			return PreparedDocument{}, err
		}
		return PrepareGrids(grids), nil
	case formatCSV:
		grids, err := CSVGrids(req.Data)
		if err != nil {
			return PreparedDocument{}, err
		}
		return PrepareGrids(grids), nil
	case formatText:
		return PrepareText(string(req.Data)), nil
	default:
		return PreparedDocument{}, newError(ErrInputRejected,
			"unsupported file type; upload a PDF, XLSX, XLS, CSV or text statement", nil)
	}
}

type fileFormat int

const (
	formatUnknown fileFormat = iota
	formatPDF
	formatXLSX
	formatXLS
	formatCSV
	formatText
)

// detectFormat sniffs magic bytes first and falls back to the filename
// extension, so a renamed file still routes correctly.
func detectFormat(data []byte, filename string) fileFormat {
	if IsPDF(data) {
		return formatPDF
	}
	if len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4b { // zip container
		return formatXLSX
	}
	if len(data) >= 8 && data[0] == 0xd0 && data[1] == 0xcf { // OLE compound file
		return formatXLS
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return formatPDF
	case ".xlsx":
		return formatXLSX
	case ".xls":
		return formatXLS
	case ".csv":
		return formatCSV
	case ".txt", ".text":
		return formatText
	}
	return formatUnknown
}

// asyncThresholdPages is the page count above which a PDF should be
// processed asynchronously rather than inside the request.
const asyncThresholdPages = 5

// ShouldProcessAsync reports whether a statement is large enough that the
// caller should prefer the job flow.
func (s *Service) ShouldProcessAsync(data []byte, filename string) bool {
	if detectFormat(data, filename) != formatPDF {
		return false
	}
	return s.pdf.PageCount(data) > asyncThresholdPages
}

// StartAsync registers a job and runs the extraction in the background.
// The job carries its own deadline; the request context ends with the
// HTTP request and must not cancel the work.
func (s *Service) StartAsync(req ExtractRequest) *Job {
	job := s.jobs.Create(req.Filename)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		s.jobs.SetRunning(job.ID)
		result, err := s.Extract(ctx, req)
		if err != nil {
			s.log.Error("async extraction failed", "job", job.ID, "error", err)
			s.jobs.Fail(job.ID, err)
			return
		}
		s.jobs.Complete(job.ID, result)
	}()
	return job
}

// Job returns the job with the given id.
func (s *Service) Job(id string) (*Job, bool) {
	return s.jobs.Get(id)
}
