package sdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"finquest/catalog"
	"finquest/core"
)

// ActionResult mirrors the response of POST /users/{id}/actions.
type ActionResult struct {
	Changed  bool       `json:"changed"`
	Rejected string     `json:"rejected,omitempty"`
	State    core.State `json:"state"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string                 `json:"status"`
	Checks map[string]interface{} `json:"checks"`
}

// Catalog mirrors GET /catalog.
type Catalog struct {
	Lessons    []catalog.Lesson        `json:"lessons"`
	Challenges []catalog.Challenge     `json:"challenges"`
	Quests     []catalog.QuestTemplate `json:"quests"`
	Categories []catalog.Category      `json:"categories"`
	Rewards    []catalog.RewardItem    `json:"rewards"`
}

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed: status %d", e.Status)
	}
	return fmt.Sprintf("request failed: status %d: %s: %s", e.Status, e.Code, e.Message)
}

// decodeJSON decodes a 2xx body into target. Error bodies become *APIError;
// when target can also hold the error body (as for /healthz) it is decoded too.
func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode < http.StatusBadRequest {
		if target == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(target)
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	apiErr := &APIError{Status: resp.StatusCode}
	_ = json.Unmarshal(raw, apiErr)
	if target != nil && len(bytes.TrimSpace(raw)) > 0 {
		_ = json.Unmarshal(raw, target)
	}
	return apiErr
}

// ErrEmptyUserID is returned when user id is empty.
var ErrEmptyUserID = errors.New("user id is required")
