package dav

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dav-apps/storyline-api/domain"
)

func TestRetrieveUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/user", r.URL.Path)
		assert.Equal(t, "access-token", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(map[string]any{"id": 42, "plan": 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	user, err := client.RetrieveUser(context.Background(), "access-token")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, int64(42), user.ID)
	assert.True(t, user.OnPaidPlan())
}

func TestRetrieveUserSessionExpired(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errors":[{"code":"SESSION_EXPIRED","message":"Session has expired"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	user, err := client.RetrieveUser(context.Background(), "stale-token")
	assert.ErrorIs(t, err, domain.ErrSessionExpired)
	assert.Nil(t, user)
}

func TestRetrieveUserTreatsOtherFailuresAsAnonymous(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"errors":[{"code":"SESSION_DOES_NOT_EXIST","message":"Session does not exist"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	user, err := client.RetrieveUser(context.Background(), "bad-token")
	require.NoError(t, err)
	assert.Nil(t, user)
}

func TestOnPaidPlan(t *testing.T) {
	assert.False(t, (*User)(nil).OnPaidPlan())
	assert.False(t, (&User{Plan: PlanFree}).OnPaidPlan())
	assert.True(t, (&User{Plan: PlanPlus}).OnPaidPlan())
	assert.True(t, (&User{Plan: PlanPro}).OnPaidPlan())
}

func TestListTableObjectsByProperty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/table_objects", r.URL.Path)

		query := r.URL.Query()
		assert.Equal(t, "7", query.Get("app_id"))
		assert.Equal(t, "Follow", query.Get("table_name"))
		assert.Equal(t, "publisher", query.Get("property_name"))
		assert.Equal(t, "pub-uuid", query.Get("property_value"))
		assert.Equal(t, "true", query.Get("exact"))
		assert.Equal(t, "1000000", query.Get("limit"))

		_, _ = w.Write([]byte(`{
			"total": 1,
			"items": [
				{"uuid": "obj-1", "user_id": 11, "properties": {"publisher": "pub-uuid"}}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	list, err := client.ListTableObjectsByProperty(context.Background(), ListTableObjectsParams{
		AppID:         7,
		TableName:     "Follow",
		PropertyName:  "publisher",
		PropertyValue: "pub-uuid",
		ExactMatch:    true,
		Limit:         1_000_000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Items, 1)
	assert.Equal(t, int64(11), list.Items[0].UserID)
	assert.Equal(t, "pub-uuid", list.Items[0].Properties["publisher"])
}

func TestCreateNotification(t *testing.T) {
	var received CreateNotificationParams

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/notification", r.URL.Path)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	err := client.CreateNotification(context.Background(), CreateNotificationParams{
		UserID: 11,
		AppID:  7,
		Time:   1700000000,
		Title:  "New article",
		Body:   "Something happened",
		Href:   "https://storyline.press/article/slug",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(11), received.UserID)
	assert.Equal(t, "New article", received.Title)
}

func TestCreateNotificationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, nil)

	err := client.CreateNotification(context.Background(), CreateNotificationParams{UserID: 11})
	assert.Error(t, err)
}
