package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"housingprep/internal/config"
	"housingprep/internal/dataset"
)

// HTML loads the first <table> matching options.selector (default "table").
// The first row is the header; <th> and <td> cells are both accepted.
//
// Options: selector, header_map, encoding, skip_bad_rows.
type HTML struct {
	Path    string
	Schema  dataset.Schema
	Options config.Options

	OnSkip func(line int, err error)
	Client *http.Client
}

func (h *HTML) Load(ctx context.Context) (*dataset.Dataset, error) {
	src, err := opener{client: h.Client}.open(ctx, h.Path)
	if err != nil {
		return nil, fmt.Errorf("html source: %w", err)
	}
	defer src.Close()

	r, err := decoding(src, h.Options.String("encoding", ""))
	if err != nil {
		return nil, fmt.Errorf("html source: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("html source: parse html: %w", err)
	}

	selector := h.Options.String("selector", "table")
	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("html source %s: no element matches %q", h.Path, selector)
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return nil, fmt.Errorf("html source %s: table has no rows", h.Path)
	}

	ix, err := columnIndex(cellTexts(trs.First()), h.Schema, h.Options.StringMap("header_map"))
	if err != nil {
		return nil, fmt.Errorf("html source %s: %w", h.Path, err)
	}

	skip := h.Options.Bool("skip_bad_rows", false)
	b := dataset.NewBuilder(h.Schema)
	cells := make([]string, h.Schema.Len())

	var loadErr error
	trs.Slice(1, trs.Length()).EachWithBreak(func(i int, tr *goquery.Selection) bool {
		if err := ctx.Err(); err != nil {
			loadErr = err
			return false
		}
		rec := cellTexts(tr)
		if len(rec) == 0 {
			return true
		}
		align(cells, rec, ix, true)
		if err := b.AppendRaw(cells); err != nil {
			// Row numbers are 1-based and count the header row.
			if skip {
				if h.OnSkip != nil {
					h.OnSkip(i+2, err)
				}
				return true
			}
			loadErr = fmt.Errorf("row %d: %w", i+2, err)
			return false
		}
		return true
	})
	if loadErr != nil {
		return nil, fmt.Errorf("html source %s: %w", h.Path, loadErr)
	}
	return b.Build(), nil
}

func cellTexts(tr *goquery.Selection) []string {
	var out []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}
