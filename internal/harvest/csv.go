package harvest

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
)

// csvColumns is the fixed artifact column order.
var csvColumns = []string{
	"title", "authors", "publication_info", "link",
	"pdf_link", "cited_by", "type", "snippet",
}

// fallbackSlug is used when a query contains no alphanumeric characters at all.
const fallbackSlug = "scholar_results"

// maxSlugLength caps the query-derived part of an artifact filename.
const maxSlugLength = 50

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// EncodeCSV serializes the records as CSV text with the header row first.
// A field is quoted, with internal double quotes doubled, only when it
// contains a comma, a double quote, or a newline. Rows are joined with "\n".
// Encoding the same sequence twice yields byte-identical output.
func EncodeCSV(records []domain.Paper) string {
	var sb strings.Builder
	sb.WriteString(strings.Join(csvColumns, ","))

	for _, p := range records {
		fields := []string{
			p.Title,
			p.Authors,
			p.PublicationInfo,
			p.Link,
			p.PDFLink,
			strconv.Itoa(p.CitedBy),
			p.Type,
			p.Snippet,
		}
		sb.WriteByte('\n')
		for i, f := range fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(escapeField(f))
		}
	}

	return sb.String()
}

// escapeField applies the quote-iff-needed CSV escaping rule.
func escapeField(value string) string {
	if !strings.ContainsAny(value, ",\"\n") {
		return value
	}
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}

// DeriveFilename builds the artifact filename for a query: the query is
// lower-cased, every run of non-alphanumeric characters collapses to a single
// underscore, leading and trailing underscores are trimmed, the slug is
// truncated to 50 characters, and the harvest date plus a .csv extension are
// appended.
func DeriveFilename(query string, now time.Time) string {
	slug := strings.ToLower(query)
	slug = nonAlphanumeric.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	if slug == "" {
		slug = fallbackSlug
	}
	return slug + "_" + now.Format("2006-01-02") + ".csv"
}
