// Package dav is the client for the dav backend: session validation,
// the table-object subscription registry and notification emission.
package dav

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dav-apps/storyline-api/domain"
)

// Plans of the dav subscription model.
const (
	PlanFree = 0
	PlanPlus = 1
	PlanPro  = 2
)

const sessionExpiredCode = "SESSION_EXPIRED"

// User is the dav user record attached to an authenticated request.
type User struct {
	ID   int64 `json:"id"`
	Plan int   `json:"plan"`
}

// OnPaidPlan reports whether the user pays for dav Plus or Pro.
func (u *User) OnPaidPlan() bool {
	return u != nil && u.Plan != PlanFree
}

// TableObject is a record in the dav table-object registry.
type TableObject struct {
	UUID       string            `json:"uuid"`
	UserID     int64             `json:"user_id"`
	Properties map[string]string `json:"properties"`
}

// TableObjectList is one page of registry records plus the total count.
type TableObjectList struct {
	Total int64         `json:"total"`
	Items []TableObject `json:"items"`
}

// ListTableObjectsParams parameterizes the paged list-by-property query.
type ListTableObjectsParams struct {
	AppID         int64
	TableName     string
	PropertyName  string
	PropertyValue string
	ExactMatch    bool
	Limit         int
	Offset        int
}

// CreateNotificationParams describes a one-shot push notification.
// Interval 0 means no repetition.
type CreateNotificationParams struct {
	UserID   int64  `json:"user_id"`
	AppID    int64  `json:"app_id"`
	Time     int64  `json:"time"`
	Interval int    `json:"interval"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Icon     string `json:"icon,omitempty"`
	Image    string `json:"image,omitempty"`
	Href     string `json:"href,omitempty"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

type errorsResponse struct {
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// RetrieveUser resolves the session behind the access token. An expired
// session surfaces as domain.ErrSessionExpired; any other failure yields an
// anonymous caller (nil user, nil error), matching the API's behavior of
// treating unverifiable sessions as unauthenticated.
func (c *Client) RetrieveUser(ctx context.Context, accessToken string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user request: %w", err)
	}

	req.Header.Set("Authorization", accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read user response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var user User
		if err := json.Unmarshal(body, &user); err != nil {
			return nil, fmt.Errorf("failed to decode user response: %w", err)
		}

		return &user, nil
	}

	var errResp errorsResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		for _, apiErr := range errResp.Errors {
			if apiErr.Code == sessionExpiredCode {
				return nil, domain.ErrSessionExpired
			}
		}
	}

	c.logger.WarnContext(ctx, "user retrieval failed, treating caller as anonymous",
		"status", resp.StatusCode)

	return nil, nil
}

// ListTableObjectsByProperty queries the registry for records whose
// property matches the given value.
func (c *Client) ListTableObjectsByProperty(ctx context.Context, params ListTableObjectsParams) (*TableObjectList, error) {
	query := url.Values{}
	query.Set("app_id", strconv.FormatInt(params.AppID, 10))
	query.Set("property_name", params.PropertyName)
	query.Set("property_value", params.PropertyValue)
	query.Set("exact", strconv.FormatBool(params.ExactMatch))
	query.Set("limit", strconv.Itoa(params.Limit))
	query.Set("offset", strconv.Itoa(params.Offset))

	if params.TableName != "" {
		query.Set("table_name", params.TableName)
	}

	endpoint := c.baseURL + "/v1/table_objects?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build table objects request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list table objects: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("table objects request returned status %d", resp.StatusCode)
	}

	var list TableObjectList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to decode table objects response: %w", err)
	}

	return &list, nil
}

// CreateNotification schedules a push notification for the user.
func (c *Client) CreateNotification(ctx context.Context, params CreateNotificationParams) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/notification", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification request returned status %d", resp.StatusCode)
	}

	return nil
}
