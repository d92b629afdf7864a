package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"uring-crawler/internal/config"
	"uring-crawler/internal/crawler"
	"uring-crawler/internal/scraper"
	"uring-crawler/internal/sitemap"
)

// FormatNotice fills {dept_name}, {board_name}, {title}, {date} and {link}.
func FormatNotice(format string, n scraper.Notice) string {
	return strings.NewReplacer(
		"{dept_name}", n.DepartmentName,
		"{board_name}", n.BoardName,
		"{title}", n.Title,
		"{date}", n.Date,
		"{link}", n.Link,
	).Replace(format)
}

// Console prints progress and results for people watching the run.
type Console struct {
	out      io.Writer
	cfg      config.OutputConfig
	progress bool
}

func NewConsole(out io.Writer, cfg *config.Config) *Console {
	return &Console{out: out, cfg: cfg.Output, progress: cfg.Logging.ShowProgress}
}

func (c *Console) Starting(campuses []sitemap.Campus) {
	if !c.progress {
		return
	}
	fmt.Fprintln(c.out, "uRing Crawler starting...")
	fmt.Fprintf(c.out, "Loaded %d department(s) with %d board(s)\n",
		sitemap.CountDepartments(campuses), sitemap.CountBoards(campuses))
}

// Notices prints every notice with the configured format.
func (c *Console) Notices(notices []scraper.Notice) {
	if !c.cfg.ConsoleEnabled {
		return
	}
	fmt.Fprintf(c.out, "\nTotal notices fetched: %d\n", len(notices))
	fmt.Fprintln(c.out, strings.Repeat("=", 80))
	for _, n := range notices {
		fmt.Fprintln(c.out, FormatNotice(c.cfg.NoticeFormat, n))
		fmt.Fprintln(c.out, strings.Repeat("-", 80))
	}
}

// Summary renders one line per board with its notice count or error.
func (c *Console) Summary(res *crawler.Result) {
	if !c.progress {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Campus", "Department", "Board", "Notices", "Error"})
	for _, b := range res.Boards {
		errText := ""
		if b.Err != nil {
			errText = b.Err.Error()
		}
		t.AppendRow(table.Row{b.Task.Campus, b.Task.DepartmentName, b.Task.Board.Name, b.Notices, errText})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(res.Notices), fmt.Sprintf("%d failed", len(res.Failures))})
	t.Render()
}

func (c *Console) Saved(path string) {
	if !c.progress {
		return
	}
	fmt.Fprintf(c.out, "\nSaved notices to %s\n", path)
}

// Boards renders the configured boards, for the boards command.
func Boards(out io.Writer, campuses []sitemap.Campus) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Campus", "College", "Department", "Board", "URL"})
	for _, task := range crawler.Tasks(campuses) {
		t.AppendRow(table.Row{task.Campus, task.College, task.DepartmentName, task.Board.Name, task.Board.URL})
	}
	t.Render()
}
