package scholar

// SearchResponse is the JSON shape returned by a SerpAPI Google Scholar
// search. Every field the service reads is optional upstream, so parsing must
// tolerate any of them being absent.
type SearchResponse struct {
	OrganicResults []OrganicResult `json:"organic_results"`

	// Error is SerpAPI's logical error field: set in an otherwise-successful
	// (HTTP 200) response when the query could not be served.
	Error string `json:"error"`
}

// OrganicResult is one loosely-typed search result item.
type OrganicResult struct {
	Title           string           `json:"title"`
	Link            string           `json:"link"`
	Snippet         string           `json:"snippet"`
	Type            string           `json:"type"`
	PublicationInfo *PublicationInfo `json:"publication_info"`
	InlineLinks     *InlineLinks     `json:"inline_links"`
	Resources       []Resource       `json:"resources"`
}

// PublicationInfo carries the human-readable publication summary and the
// structured author list.
type PublicationInfo struct {
	Summary string   `json:"summary"`
	Authors []Author `json:"authors"`
}

// Author is one entry of the structured author list.
type Author struct {
	Name string `json:"name"`
}

// InlineLinks holds the citation metadata attached to a result.
type InlineLinks struct {
	CitedBy *CitedBy `json:"cited_by"`
}

// CitedBy holds the citation count for a result.
type CitedBy struct {
	Total int `json:"total"`
}

// Resource is one attached resource (typically the full-text PDF).
type Resource struct {
	Link string `json:"link"`
}
