package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"uring-crawler/internal/scraper"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// NoticeHash returns the SHA-256 hex digest of
// campus|department_id|board_id|link|title|date.
func (g *Generator) NoticeHash(n scraper.Notice) string {
	content := strings.Join([]string{
		n.Campus,
		n.DepartmentID,
		n.BoardID,
		n.Link,
		n.Title,
		n.Date,
	}, "|")

	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// VerifyNoticeHash reports whether expected matches the notice's hash.
func (g *Generator) VerifyNoticeHash(expected string, n scraper.Notice) bool {
	return g.NoticeHash(n) == expected
}
