package domain

import "time"

// AuthError describes why the last authentication check failed.
type AuthError struct {
	Message     string `json:"message"`
	Code        string `json:"code"`
	Recoverable bool   `json:"recoverable"`
}

// SessionInfo carries the activity timestamps of the current session.
type SessionInfo struct {
	StartedAt      time.Time  `json:"started_at"`
	LastActivityAt time.Time  `json:"last_activity_at"`
	BackgroundedAt *time.Time `json:"backgrounded_at,omitempty"`
	ForegroundedAt *time.Time `json:"foregrounded_at,omitempty"`
}

// CachedAuthState is the authentication snapshot owned by the session cache.
type CachedAuthState struct {
	IsAuthenticated bool         `json:"is_authenticated"`
	UserID          *string      `json:"user_id"`
	LastCheckedAt   time.Time    `json:"last_checked_at"`
	Error           *AuthError   `json:"error"`
	SessionInfo     *SessionInfo `json:"session_info,omitempty"`
}

// Clone returns a deep copy so callers can never mutate the cached value.
func (s CachedAuthState) Clone() CachedAuthState {
	out := s
	if s.UserID != nil {
		id := *s.UserID
		out.UserID = &id
	}
	if s.Error != nil {
		e := *s.Error
		out.Error = &e
	}
	if s.SessionInfo != nil {
		info := *s.SessionInfo
		info.BackgroundedAt = cloneTime(s.SessionInfo.BackgroundedAt)
		info.ForegroundedAt = cloneTime(s.SessionInfo.ForegroundedAt)
		out.SessionInfo = &info
	}
	return out
}

// CacheMetadata is stored alongside a snapshot.
type CacheMetadata struct {
	Reason         string            `json:"reason,omitempty"`
	CachedAt       time.Time         `json:"cached_at"`
	BackgroundedAt *time.Time        `json:"backgrounded_at,omitempty"`
	Labels         map[string]string `json:"labels,omitempty"`
}

// Clone returns a deep copy.
func (m CacheMetadata) Clone() CacheMetadata {
	out := m
	out.BackgroundedAt = cloneTime(m.BackgroundedAt)
	if m.Labels != nil {
		out.Labels = make(map[string]string, len(m.Labels))
		for k, v := range m.Labels {
			out.Labels[k] = v
		}
	}
	return out
}

// Source identifies which cache tier served a read.
type Source string

const (
	SourceMemory  Source = "memory"
	SourceStorage Source = "storage"
)

// CachedEntry is a copy of the cached snapshot annotated with where it came
// from and how old it is.
type CachedEntry struct {
	State    CachedAuthState `json:"state"`
	Metadata CacheMetadata   `json:"metadata"`
	Source   Source          `json:"source"`
	Age      time.Duration   `json:"age"`
	CachedAt time.Time       `json:"cached_at"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
