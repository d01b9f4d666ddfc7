package domain

import "time"

// AppState is the signal delivered by the host's lifecycle notifier.
type AppState string

const (
	AppStateActive     AppState = "active"
	AppStateInactive   AppState = "inactive"
	AppStateBackground AppState = "background"
)

// ParseAppState validates a lifecycle signal.
func ParseAppState(s string) (AppState, bool) {
	switch AppState(s) {
	case AppStateActive, AppStateInactive, AppStateBackground:
		return AppState(s), true
	}
	return "", false
}

// Phase is the coarse lifecycle phase tracked by the service.
type Phase string

const (
	PhaseActive     Phase = "active"
	PhaseBackground Phase = "background"
)

// LifecycleRecord is the durable breadcrumb written on every transition so a
// process killed while backgrounded can still compute its background duration.
type LifecycleRecord struct {
	Phase          Phase      `json:"phase"`
	BackgroundedAt *time.Time `json:"backgrounded_at,omitempty"`
	ForegroundedAt *time.Time `json:"foregrounded_at,omitempty"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// RecoveryStrategy is chosen from the elapsed background duration.
type RecoveryStrategy string

const (
	StrategyUseCache           RecoveryStrategy = "use_cache"
	StrategyValidateAndRefresh RecoveryStrategy = "validate_and_refresh"
	StrategyForceReauth        RecoveryStrategy = "force_reauth"

	// StrategyUndetermined is reported when no background time is known,
	// so the duration could not be measured.
	StrategyUndetermined RecoveryStrategy = "undetermined"
)

// RecommendedAction tells the caller what to do after foregrounding.
type RecommendedAction string

const (
	ActionUseCachedState         RecommendedAction = "use_cached_state"
	ActionValidateAndRefresh     RecommendedAction = "validate_and_refresh_tokens"
	ActionForceReauthentication  RecommendedAction = "force_reauthentication"
	ActionValidateAuthentication RecommendedAction = "validate_authentication"
)

// RecoveryResult is returned (and published) by every foreground transition.
type RecoveryResult struct {
	Strategy            RecoveryStrategy  `json:"strategy"`
	BackgroundDuration  time.Duration     `json:"background_duration"`
	StateRecovered      bool              `json:"state_recovered"`
	AuthenticationValid bool              `json:"authentication_valid"`
	RecommendedAction   RecommendedAction `json:"recommended_action"`
	State               *CachedAuthState  `json:"state,omitempty"`
	Error               string            `json:"error,omitempty"`
}
