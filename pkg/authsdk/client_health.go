package authsdk

import (
	"context"
	"fmt"
	"net/http"
)

// GetReadiness asks the identity provider whether it can serve grants.
// A non-200 answer comes back as an OAuth2Error; a 200 whose status is not
// "ok" is reported as an error too.
func (c *Client) GetReadiness(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if err := c.send(ctx, http.MethodGet, orDefault(c.ReadinessPath, DefaultReadinessPath), nil, http.StatusOK, &health); err != nil {
		return nil, err
	}
	if health.Status != "ok" {
		return &health, fmt.Errorf("identity provider reports %q", health.Status)
	}

	return &health, nil
}
