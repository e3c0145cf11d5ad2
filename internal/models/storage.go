package models

import "time"

// UserRecord is a generic document record for all user domain data.
// Subject groups records by kind (portfolio, twr_cache, analysis, settings).
type UserRecord struct {
	UserID   string    `json:"user_id"`
	Subject  string    `json:"subject"`
	Key      string    `json:"key"`
	Value    string    `json:"value"`
	Version  int       `json:"version"`
	DateTime time.Time `json:"datetime"`
}

// Record subjects used in the user store.
const (
	SubjectPortfolio = "portfolio"
	SubjectTWRCache  = "twr_cache"
	SubjectAnalysis  = "analysis"
)
