package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// IdempotencyKey is a durable claim on one side-effecting unit of work. A row
// without a result is an in-flight (or crashed) execution; a row with a result
// means the work is done and the cached result should be replayed instead of
// re-running side effects.
type IdempotencyKey struct {
	Key         string          `json:"key"`
	Stage       string          `json:"stage"`
	CampaignID  string          `json:"campaign_id"`
	LeadID      *string         `json:"lead_id,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// Completed reports whether the claim carries a committed result.
func (k *IdempotencyKey) Completed() bool {
	return len(k.Result) > 0
}

// Key builders. Keys identify the side-effecting unit, not the queue job:
// re-running the same logical step from any job id must hit the same key.

// EmailKey identifies one email step for a lead.
func EmailKey(leadID string, step int) string {
	return fmt.Sprintf("email:%s:step:%d", leadID, step)
}

// CallKey identifies one call attempt for a lead.
func CallKey(leadID string, attempt int) string {
	return fmt.Sprintf("call:%s:attempt:%d", leadID, attempt)
}

// DeployKey identifies the deploy of a lead's demo site.
func DeployKey(leadID string) string {
	return fmt.Sprintf("deploy:%s", leadID)
}
