package models

import "time"

// UserStats is computed on demand from a user's email checks and never stored.
type UserStats struct {
	TotalChecks      int64      `bson:"totalChecks" json:"totalChecks"`
	BreachedCount    int64      `bson:"breachedCount" json:"breachedCount"`
	SafeCount        int64      `bson:"safeCount" json:"safeCount"`
	TotalBreaches    int64      `bson:"totalBreaches" json:"totalBreaches"`
	LastCheck        *time.Time `bson:"lastCheck" json:"lastCheck"`
	UniqueEmailCount int64      `bson:"uniqueEmailCount" json:"uniqueEmailCount"`
}

// WindowStats is the subset of UserStats reported per analytics window.
type WindowStats struct {
	TotalChecks   int64 `json:"totalChecks"`
	BreachedCount int64 `json:"breachedCount"`
	SafeCount     int64 `json:"safeCount"`
}

func (s UserStats) Window() WindowStats {
	return WindowStats{TotalChecks: s.TotalChecks, BreachedCount: s.BreachedCount, SafeCount: s.SafeCount}
}

type Analytics struct {
	Last7Days  WindowStats `json:"last7Days"`
	Last30Days WindowStats `json:"last30Days"`
	Last90Days WindowStats `json:"last90Days"`
}

type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalRecords int64 `json:"totalRecords"`
	HasNext      bool  `json:"hasNext"`
	HasPrev      bool  `json:"hasPrev"`
}

type SecurityScore struct {
	Score           int      `json:"score"`
	Rating          string   `json:"rating"`
	Recommendations []string `json:"recommendations"`
}
