package models

import "time"

// PortfolioAnalysis is a cached AI-written review of a portfolio.
type PortfolioAnalysis struct {
	Portfolio   string    `json:"portfolio"`
	Model       string    `json:"model"`
	Analysis    string    `json:"analysis"`
	GeneratedAt time.Time `json:"generated_at"`
	Cached      bool      `json:"cached"`
}

// PortfolioReport is a rendered snapshot report.
type PortfolioReport struct {
	Portfolio   string             `json:"portfolio"`
	GeneratedAt time.Time          `json:"generated_at"`
	Markdown    string             `json:"markdown"`
	HTML        string             `json:"html,omitempty"`
	Snapshot    *PortfolioSnapshot `json:"snapshot"`
}
