package model

import "time"

// Match is a confirmed pairing of two socks
type Match struct {
	ID        int64     `json:"id"`
	Sock1ID   int64     `json:"sock1_id"`
	Sock2ID   int64     `json:"sock2_id"`
	MatchedAt time.Time `json:"matched_at"`
	Sock1     *Sock     `json:"sock1,omitempty"`
	Sock2     *Sock     `json:"sock2,omitempty"`
}

// NewMatchRequest is the body of POST /matches
type NewMatchRequest struct {
	Sock1ID int64 `json:"sock1_id" validate:"required,gt=0"`
	Sock2ID int64 `json:"sock2_id" validate:"required,gt=0,nefield=Sock1ID"`
}

// Contains reports whether sockID is one of the pair
func (m *Match) Contains(sockID int64) bool {
	return m.Sock1ID == sockID || m.Sock2ID == sockID
}

// Partner returns the other sock of the pair, or 0 if sockID is not in it
func (m *Match) Partner(sockID int64) int64 {
	switch sockID {
	case m.Sock1ID:
		return m.Sock2ID
	case m.Sock2ID:
		return m.Sock1ID
	}
	return 0
}
