package dispatch

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/tsawler/tabula"
)

// ExtractPDFText extracts the text layer of a PDF with tabula.
// Repeated page headers and footers are dropped and wrapped lines are
// joined into paragraphs. Images are ignored.
func ExtractPDFText(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "docrag-*.pdf")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	text, warnings, err := tabula.Open(tmp.Name()).
		ExcludeHeadersAndFooters().
		JoinParagraphs().
		Text()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}
	if len(warnings) > 0 {
		log.Printf("PDF extraction produced %d warnings: %v", len(warnings), warnings)
	}
	return text, nil
}
