package models

// Document is the structured body of an assessment: the principle and
// criterion tree filled in by the owner. The engine stores it as a JSON
// column and does not interpret metric results beyond well-formedness.
type Document struct {
	Name         string       `json:"name"`
	Actor        Actor        `json:"actor"`
	Organisation Organisation `json:"organisation"`
	Subject      Subject      `json:"subject"`
	Principles   []Principle  `json:"principles,omitempty"`
}

// Actor names the role the assessment is performed under.
type Actor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Organisation names the organisation the assessment belongs to.
type Organisation struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Subject identifies the thing being assessed.
type Subject struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

// Principle groups the criteria evaluated under one heading.
type Principle struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Criteria    []Criterion `json:"criteria,omitempty"`
}

// Criterion is one evaluated requirement together with its metric.
type Criterion struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Imperative string `json:"imperative,omitempty"`
	Metric     Metric `json:"metric"`
}

// Metric holds a criterion's measurement. Result stays nil until the owner
// records an outcome.
type Metric struct {
	Type      string   `json:"type"`
	Algorithm string   `json:"algorithm,omitempty"`
	Benchmark any      `json:"benchmark,omitempty"`
	Result    *float64 `json:"result"`
	Tests     []Test   `json:"tests,omitempty"`
}

// Test is a single check contributing to a metric result.
type Test struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Text   string `json:"text,omitempty"`
	Result *int   `json:"result"`
	Value  string `json:"value,omitempty"`
}
