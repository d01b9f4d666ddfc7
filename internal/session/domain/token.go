package domain

import "time"

// TokenSet is the credential bundle issued by the identity provider on
// sign-in or refresh. A refresh overwrites the whole set.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	IDToken      string    `json:"id_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	StoredAt     time.Time `json:"stored_at"`
}

// RefreshFailureRecord tracks consecutive refresh failures for backoff.
// FailureCount is zero exactly when LastFailureAt is nil.
type RefreshFailureRecord struct {
	LastFailureAt *time.Time `json:"last_failure_at"`
	FailureCount  uint       `json:"failure_count"`
}

// IsZero reports whether no failure has been recorded since the last reset.
func (r RefreshFailureRecord) IsZero() bool {
	return r.FailureCount == 0 && r.LastFailureAt == nil
}
