package search

// Result is a single report hit returned to the clinician dashboard.
type Result struct {
	PatientID string   `json:"patientId"`
	Summary   string   `json:"summary"`
	Sentiment string   `json:"sentiment"`
	Themes    []string `json:"themes,omitempty"`
}

// Query describes a search request over stored reports.
type Query struct {
	Text  string
	Limit int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// ReportRecord is the data we index for a report.
type ReportRecord struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Summary   string   `json:"summary"`
	Sentiment string   `json:"sentiment"`
	Themes    []string `json:"themes"`
}

// Searcher can execute a full-text search over reports.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}
