package harvest

import (
	"strings"

	"github.com/scholarcsv/scholar-harvest-service/internal/domain"
	"github.com/scholarcsv/scholar-harvest-service/internal/scholar"
)

// NormalizePaper maps one upstream result item into a canonical Paper record.
// It is a total function: when the upstream omits a field, the corresponding
// record field keeps its zero value. Normalization never fails.
func NormalizePaper(item scholar.OrganicResult) domain.Paper {
	paper := domain.Paper{
		Title:   item.Title,
		Link:    item.Link,
		Type:    item.Type,
		Snippet: item.Snippet,
	}

	if item.PublicationInfo != nil {
		paper.PublicationInfo = item.PublicationInfo.Summary
		paper.Authors = joinAuthors(item.PublicationInfo.Authors)
	}

	if item.InlineLinks != nil && item.InlineLinks.CitedBy != nil {
		paper.CitedBy = item.InlineLinks.CitedBy.Total
	}

	if len(item.Resources) > 0 {
		paper.PDFLink = item.Resources[0].Link
	}

	return paper
}

// NormalizePage normalizes every item of one upstream page, preserving
// upstream order.
func NormalizePage(items []scholar.OrganicResult) []domain.Paper {
	papers := make([]domain.Paper, 0, len(items))
	for _, item := range items {
		papers = append(papers, NormalizePaper(item))
	}
	return papers
}

// joinAuthors joins structured author names with "; ". An empty author list
// yields the empty string.
func joinAuthors(authors []scholar.Author) string {
	if len(authors) == 0 {
		return ""
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
	}
	return strings.Join(names, "; ")
}
