package scraper

import "uring-crawler/internal/sitemap"

// Notice is one extracted announcement with its organizational context.
type Notice struct {
	Campus         string `json:"campus"`
	College        string `json:"college"`
	DepartmentID   string `json:"department_id"`
	DepartmentName string `json:"department_name"`
	BoardID        string `json:"board_id"`
	BoardName      string `json:"board_name"`
	Title          string `json:"title"`
	Date           string `json:"date"`
	Link           string `json:"link"`
}

// Task is one board to crawl, together with where it sits in the site map.
type Task struct {
	Campus         string
	College        string
	DepartmentID   string
	DepartmentName string
	Board          sitemap.Board
}
