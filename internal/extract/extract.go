// Package extract turns raw document content into plain text, with one
// extraction strategy per source type. The dispatch is a closed switch
// over domain.SourceType; adding a source type means adding a case here.
package extract

import (
	"fmt"

	"github.com/planweave/planweave/internal/domain"
)

// Extractor converts raw source bytes into plain text ready for chunking.
type Extractor interface {
	Extract(raw []byte) (string, error)
}

// ForType selects the extraction strategy for a source type.
func ForType(t domain.SourceType) (Extractor, error) {
	switch t {
	case domain.SourcePDF:
		return pdfExtractor{}, nil
	case domain.SourceText:
		return textExtractor{}, nil
	case domain.SourceWeb:
		return webExtractor{}, nil
	case domain.SourceNote:
		return noteExtractor{}, nil
	default:
		return nil, fmt.Errorf("no extractor for source type %q", t)
	}
}
