package model

import "time"

// RunStatus represents the current state of a lead-generation run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusResolving RunStatus = "resolving"
	RunStatusScraping  RunStatus = "scraping"
	RunStatusFiltering RunStatus = "filtering"
	RunStatusContacts  RunStatus = "contacts"
	RunStatusEnriching RunStatus = "enriching"
	RunStatusCrawling  RunStatus = "crawling"
	RunStatusReporting RunStatus = "reporting"
	RunStatusComplete  RunStatus = "complete"
	RunStatusNoLeads   RunStatus = "no_leads"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a single lead-generation run.
type Run struct {
	ID           string    `json:"id"`
	BusinessType string    `json:"business_type"`
	Location     string    `json:"location"`
	Status       RunStatus `json:"status"`
	Outcome      *Outcome  `json:"outcome,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OutcomeKind distinguishes the three caller-visible results of a run.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeNoLeads OutcomeKind = "no_leads"
	OutcomeFailure OutcomeKind = "failure"
)

// Outcome is the caller-visible result of a run. Message is a short
// human-readable status; internal error detail never leaks into it.
type Outcome struct {
	Kind      OutcomeKind `json:"kind"`
	Message   string      `json:"message"`
	LeadCount int         `json:"lead_count"`
	Report    *ReportMeta `json:"report,omitempty"`
}

// ReportMeta is the small metadata record persisted alongside a report
// artifact, consumed by the download surface.
type ReportMeta struct {
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"file_size_in_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
