package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"car-assist-rag/internal/logger"
)

// maxFileSize caps in-memory extraction.
const maxFileSize = 200 << 20

// ExtractionResult contains the result of PDF text extraction.
type ExtractionResult struct {
	Text           string
	Pages          int
	QualityScore   float64
	WordCount      int
	ProcessingTime time.Duration
}

// Extractor reads PDF files into plain text with page markers.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractFile extracts all text from the PDF at filePath. Pages that
// fail to decode are skipped, not fatal; a document where no page
// yields text is an error.
func (e *Extractor) ExtractFile(ctx context.Context, filePath string) (*ExtractionResult, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > maxFileSize {
		return nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}
	return e.Extract(ctx, content)
}

// Extract extracts text from raw PDF bytes.
func (e *Extractor) Extract(ctx context.Context, content []byte) (*ExtractionResult, error) {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	var textBuilder strings.Builder
	pages := reader.NumPage()

	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract text from page", "page", i, "error", err)
			continue
		}

		textBuilder.WriteString(fmt.Sprintf("\n\n--- PAGE %d ---\n", i))
		textBuilder.WriteString(text)
	}

	extracted := textBuilder.String()
	if strings.TrimSpace(extracted) == "" {
		return nil, fmt.Errorf("no text extracted from pdf")
	}

	result := &ExtractionResult{
		Text:           extracted,
		Pages:          pages,
		QualityScore:   evaluateTextQuality(extracted),
		WordCount:      len(strings.Fields(extracted)),
		ProcessingTime: time.Since(start),
	}
	return result, nil
}

// evaluateTextQuality scores extracted text between 0 and 1. Low scores
// indicate garbled extraction (encrypted fonts, scanned images).
func evaluateTextQuality(text string) float64 {
	text = strings.TrimSpace(text)
	if len(text) < 10 {
		return 0.1
	}

	var alphanumeric, printable, corrupted int
	for _, r := range text {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			alphanumeric++
			printable++
		case r == ' ' || r == '\n' || r == '\t':
			printable++
		case r == '�':
			corrupted++
		case r >= 32 && r <= 126:
			printable++
		default:
			if r > 127 {
				corrupted++
			} else {
				printable++
			}
		}
	}

	total := len([]rune(text))
	score := float64(printable) / float64(total) * 0.4
	alphaRatio := float64(alphanumeric) / float64(total)
	if alphaRatio >= 0.3 {
		score += 0.3
	} else {
		score += alphaRatio
	}
	score -= float64(corrupted) / float64(total) * 2.0
	if len(text) > 100 {
		score += 0.1
	}
	if hasGoodPatterns(text) {
		score += 0.2
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}

var goodPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][a-z]+\b`),
	regexp.MustCompile(`\b\d{1,3}[,.]?\d{3}\b`),
	regexp.MustCompile(`[.!?]\s+[A-Z]`),
	regexp.MustCompile(`\b(the|and|or|of|to|in|for|with|on|at|by|from)\b`),
}

func hasGoodPatterns(text string) bool {
	matched := 0
	for _, p := range goodPatterns {
		if p.MatchString(text) {
			matched++
		}
	}
	return matched >= 3
}

var modelNamePattern = regexp.MustCompile(`(?i)^[a-z0-9]+_([a-z0-9]+(?:_[a-z0-9]+)*?)_specifications?\.pdf$`)

// ExtractModelName derives a vehicle model name from a spec filename
// such as "Toyota_Camry_Specifications.pdf". Filenames that do not
// match the convention return the base name without extension.
func ExtractModelName(filename string) string {
	base := filename
	if idx := strings.LastIndexAny(base, "/\\"); idx >= 0 {
		base = base[idx+1:]
	}

	if m := modelNamePattern.FindStringSubmatch(base); m != nil {
		return strings.ReplaceAll(m[1], "_", " ")
	}

	name := strings.TrimSuffix(base, ".pdf")
	name = strings.TrimSuffix(name, ".PDF")
	return name
}
