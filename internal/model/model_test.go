package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSockMatchPercent(t *testing.T) {
	tests := []struct {
		similarity float64
		want       int
	}{
		{0.92, 92},
		{0.926, 93},
		{0, 0},
		{1, 100},
		{1.3, 100},
		{-0.2, 0},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SockMatch{SockID: 7, Similarity: tt.similarity}.Percent())
	}
}

func TestMatchPartner(t *testing.T) {
	m := Match{ID: 5, Sock1ID: 1, Sock2ID: 2}
	assert.Equal(t, int64(2), m.Partner(1))
	assert.Equal(t, int64(1), m.Partner(2))
	assert.Equal(t, int64(0), m.Partner(3))
	assert.True(t, m.Contains(2))
	assert.False(t, m.Contains(9))
}

func TestUserTermsAndDisplayName(t *testing.T) {
	now := time.Now()
	u := User{ID: 1, Email: "alice@example.com"}
	assert.Equal(t, "alice@example.com", u.DisplayName())
	assert.False(t, u.HasAcceptedTerms())

	u.Username = "alice"
	u.TermsAcceptedAt = &now
	u.PrivacyAcceptedAt = &now
	assert.Equal(t, "alice", u.DisplayName())
	assert.True(t, u.HasAcceptedTerms())
}
