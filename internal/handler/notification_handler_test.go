package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/logger"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/models"
	"github.com/asgharomair/Customer-Feerback-v2-sub001/internal/service"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubNotificationService struct {
	notifications []models.AlertNotification
	markReadErr   error
	ackErr        error
}

func (s *stubNotificationService) GetByTenant(_ context.Context, tenantID string, unreadOnly bool, limit, offset int) ([]models.AlertNotification, error) {
	return s.notifications, nil
}

func (s *stubNotificationService) UnreadCount(_ context.Context, tenantID string) (int, error) {
	return len(s.notifications), nil
}

func (s *stubNotificationService) UnreadStats(_ context.Context, tenantID string) (map[string]int, error) {
	return map[string]int{models.SeverityCritical: len(s.notifications)}, nil
}

func (s *stubNotificationService) MarkRead(_ context.Context, id string) (*models.AlertNotification, error) {
	if s.markReadErr != nil {
		return nil, s.markReadErr
	}
	return &models.AlertNotification{ID: id, IsRead: true}, nil
}

func (s *stubNotificationService) Acknowledge(_ context.Context, id, userID string) (*models.AlertNotification, error) {
	if s.ackErr != nil {
		return nil, s.ackErr
	}
	return &models.AlertNotification{ID: id, IsAcknowledged: true, AcknowledgedBy: &userID}, nil
}

func notificationRouter(t *testing.T, svc service.INotificationService) *mux.Router {
	t.Helper()
	log, err := logger.New(logger.Config{Level: logger.ERROR})
	require.NoError(t, err)

	r := mux.NewRouter()
	NewNotificationHandler(svc, log).RegisterRoutes(r)
	return r
}

func TestGetNotifications(t *testing.T) {
	svc := &stubNotificationService{notifications: []models.AlertNotification{
		{ID: "n-1", TenantID: "tenant-1", Severity: models.SeverityCritical},
	}}
	router := notificationRouter(t, svc)

	req := httptest.NewRequest("GET", "/tenants/tenant-1/notifications?unread=true", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var items []models.AlertNotification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "n-1", items[0].ID)
}

func TestUnreadCount(t *testing.T) {
	svc := &stubNotificationService{notifications: []models.AlertNotification{{ID: "n-1"}, {ID: "n-2"}}}
	router := notificationRouter(t, svc)

	req := httptest.NewRequest("GET", "/tenants/tenant-1/notifications/unread-count", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count      int            `json:"count"`
		BySeverity map[string]int `json:"bySeverity"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, 2, body.BySeverity[models.SeverityCritical])
}

func TestMarkReadStatusCodes(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		router := notificationRouter(t, &stubNotificationService{})
		req := httptest.NewRequest("PUT", "/notifications/n-1/read", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		router := notificationRouter(t, &stubNotificationService{markReadErr: service.ErrNotificationNotFound})
		req := httptest.NewRequest("PUT", "/notifications/missing/read", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAcknowledgeStatusCodes(t *testing.T) {
	ackReq := func(router *mux.Router, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("PUT", "/notifications/n-1/acknowledge", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("ok", func(t *testing.T) {
		rec := ackReq(notificationRouter(t, &stubNotificationService{}), `{"userId": "alice"}`)
		assert.Equal(t, http.StatusOK, rec.Code)

		var n models.AlertNotification
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &n))
		assert.True(t, n.IsAcknowledged)
	})

	t.Run("missing user", func(t *testing.T) {
		rec := ackReq(notificationRouter(t, &stubNotificationService{ackErr: service.ErrMissingUser}), `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		rec := ackReq(notificationRouter(t, &stubNotificationService{ackErr: service.ErrNotificationNotFound}), `{"userId": "alice"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("conflict", func(t *testing.T) {
		rec := ackReq(notificationRouter(t, &stubNotificationService{ackErr: service.ErrAlreadyAcknowledged}), `{"userId": "bob"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad body", func(t *testing.T) {
		rec := ackReq(notificationRouter(t, &stubNotificationService{}), `{"userId"`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
