package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"uring-crawler/internal/config"
	"uring-crawler/internal/normalize"
	"uring-crawler/internal/sitemap"
)

// Extractor turns a board page into notices. It is safe for concurrent use.
type Extractor struct {
	cleaner   *normalize.Cleaner
	selectors *selectorCache
}

func NewExtractor(rules config.CleaningConfig) *Extractor {
	return &Extractor{
		cleaner:   normalize.NewCleaner(rules),
		selectors: newSelectorCache(),
	}
}

type boardSelectors struct {
	row   cascadia.Selector
	title cascadia.Selector
	date  cascadia.Selector
	link  cascadia.Selector // nil when the board has no link selector
}

func (e *Extractor) compile(board sitemap.Board) (*boardSelectors, error) {
	var (
		bs  boardSelectors
		err error
	)
	if bs.row, err = e.selectors.compile(board.RowSelector); err != nil {
		return nil, err
	}
	if bs.title, err = e.selectors.compile(board.TitleSelector); err != nil {
		return nil, err
	}
	if bs.date, err = e.selectors.compile(board.DateSelector); err != nil {
		return nil, err
	}
	if board.LinkSelector != "" {
		if bs.link, err = e.selectors.compile(board.LinkSelector); err != nil {
			return nil, err
		}
	}
	return &bs, nil
}

// Extract returns the notices found on one board page, in document order.
// Rows without a title or date element, and rows whose cleaned title is
// empty, are skipped. A bad selector yields *SelectorError and a bad board
// URL yields *normalize.URLError.
func (e *Extractor) Extract(page string, task Task) ([]Notice, error) {
	sels, err := e.compile(task.Board)
	if err != nil {
		return nil, err
	}

	base, err := normalize.ParseBase(task.Board.URL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	attr := task.Board.LinkAttr()
	var notices []Notice

	doc.FindMatcher(sels.row).Each(func(_ int, row *goquery.Selection) {
		titleEl := row.FindMatcher(sels.title).First()
		dateEl := row.FindMatcher(sels.date).First()
		if titleEl.Length() == 0 || dateEl.Length() == 0 {
			return
		}

		title := e.cleaner.Title(joinText(titleEl))
		if title == "" {
			return
		}
		date := e.cleaner.Date(joinText(dateEl))

		linkEl := titleEl
		if sels.link != nil {
			if found := row.FindMatcher(sels.link).First(); found.Length() > 0 {
				linkEl = found
			}
		}
		rawLink, _ := linkEl.Attr(attr)

		notices = append(notices, Notice{
			Campus:         task.Campus,
			College:        task.College,
			DepartmentID:   task.DepartmentID,
			DepartmentName: task.DepartmentName,
			BoardID:        task.Board.ID,
			BoardName:      task.Board.Name,
			Title:          title,
			Date:           date,
			Link:           normalize.Resolve(base, rawLink),
		})
	})

	return notices, nil
}

// joinText joins every text node under the selection with a single space.
// goquery's Text() concatenates without a separator, which glues words
// split across inline elements.
func joinText(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			parts = append(parts, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}
