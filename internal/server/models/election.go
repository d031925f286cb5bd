// Package models holds the domain records shared by the store, the
// persistence layer and the ingestion client.
package models

import "time"

type Election struct {
	ID   string
	Name string
	Date string
	Type string
	// TypeCode is the election kind code from the open-data catalogue.
	TypeCode int
}

type Candidate struct {
	ID          string
	Name        string
	Party       string
	Number      int
	ElectionID  string
	PledgeCount int
}

type Pledge struct {
	ID           string
	CandidateID  string
	Title        string
	Content      string
	Category     string
	LikeCount    int
	DislikeCount int
	CreatedAt    time.Time
}

// TotalVotes is LikeCount + DislikeCount.
func (p *Pledge) TotalVotes() int {
	return p.LikeCount + p.DislikeCount
}

// ApprovalRate is the share of likes in percent, 0 when nobody voted.
func (p *Pledge) ApprovalRate() float64 {
	total := p.TotalVotes()
	if total == 0 {
		return 0
	}
	return float64(p.LikeCount) / float64(total) * 100
}
