package extract

import (
	"fmt"
	"unicode/utf8"
)

// textExtractor passes plain text through after validating encoding.
type textExtractor struct{}

func (textExtractor) Extract(raw []byte) (string, error) {
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("text content is not valid UTF-8")
	}
	return string(raw), nil
}
