package extract

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.abhg.dev/goldmark/toc"
)

// noteExtractor flattens markdown notes into plain text sections. Each
// H1/H2 section keeps its header hierarchy ("# Title > ## Section") as a
// leading line, so retrieval over a chunk still sees where in the note it
// came from. Notes without headers pass through unchanged.
type noteExtractor struct{}

func (noteExtractor) Extract(raw []byte) (string, error) {
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAutoHeadingID()))
	reader := text.NewReader(raw)
	doc := md.Parser().Parse(reader)

	tree, err := toc.Inspect(doc, raw,
		toc.MinDepth(1),
		toc.MaxDepth(2),
		toc.Compact(true),
	)
	if err != nil {
		return "", fmt.Errorf("inspect note structure: %w", err)
	}

	if len(tree.Items) == 0 {
		return strings.TrimSpace(string(raw)), nil
	}

	var sections []string
	collectSections(doc, raw, tree.Items, nil, &sections)
	return strings.Join(sections, "\n\n"), nil
}

// collectSections walks the TOC tree in document order and slices the
// source at section boundaries, prefixing each slice with its header path.
func collectSections(doc ast.Node, source []byte, items toc.Items, ancestors []string, sections *[]string) {
	for i, item := range items {
		path := append(ancestors, string(item.Title))

		headerNode := headingByID(doc, string(item.ID))
		if headerNode == nil {
			continue
		}

		start := headerNode.Lines().At(0)
		var end text.Segment
		if i+1 < len(items) {
			if next := headingByID(doc, string(items[i+1].ID)); next != nil {
				end = next.Lines().At(0)
			}
		} else {
			end = nextBoundary(doc, headerNode, headerNode.(*ast.Heading).Level)
		}

		body := sectionBody(source, start, end)
		if body != "" {
			*sections = append(*sections, headerPath(path)+"\n"+body)
		}

		if len(item.Items) > 0 {
			collectSections(doc, source, item.Items, path, sections)
		}
	}
}

// headerPath renders a hierarchy like ["Title", "Section"] as
// "# Title > ## Section".
func headerPath(path []string) string {
	parts := make([]string, len(path))
	for i, segment := range path {
		parts[i] = strings.Repeat("#", i+1) + " " + segment
	}
	return strings.Join(parts, " > ")
}

// headingByID locates a heading node by its auto-generated ID.
func headingByID(node ast.Node, id string) ast.Node {
	var found ast.Node
	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering && n.Kind() == ast.KindHeading {
			if headingID, ok := n.AttributeString("id"); ok && string(headingID.([]byte)) == id {
				found = n
				return ast.WalkStop, nil
			}
		}
		return ast.WalkContinue, nil
	})
	return found
}

// nextBoundary finds the next heading at the same or higher level after
// current, returning a zero segment when the section runs to EOF.
func nextBoundary(root ast.Node, current ast.Node, level int) text.Segment {
	var boundary ast.Node
	passedCurrent := false

	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindHeading {
			return ast.WalkContinue, nil
		}
		if !passedCurrent {
			if n == current {
				passedCurrent = true
			}
			return ast.WalkContinue, nil
		}
		if n.(*ast.Heading).Level <= level {
			boundary = n
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	if boundary != nil {
		return boundary.Lines().At(0)
	}
	return text.Segment{}
}

// sectionBody extracts the text between a section's heading line and the
// next boundary, dropping the heading markup itself.
func sectionBody(source []byte, start, end text.Segment) string {
	var slice []byte
	if end.Start == 0 && end.Stop == 0 {
		slice = source[start.Start:]
	} else {
		slice = source[start.Start:end.Start]
	}

	body := strings.TrimSpace(string(slice))
	// Drop the heading's own line; the header path already carries it.
	if idx := strings.IndexByte(body, '\n'); idx >= 0 {
		body = strings.TrimSpace(body[idx+1:])
	} else {
		body = ""
	}
	return body
}
