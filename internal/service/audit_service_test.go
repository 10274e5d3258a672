package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kintai-dev/kintai-api/internal/models"
	"github.com/kintai-dev/kintai-api/pkg/config"
)

type auditStoreStub struct {
	mu      sync.Mutex
	entries []*models.AuditLog
}

func (s *auditStoreStub) Create(ctx context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *auditStoreStub) ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AuditLog, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out, nil
}

func (s *auditStoreStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func TestAuditServiceRecordsAsynchronously(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, config.AuditConfig{Workers: 2, BufferSize: 8}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	userID := "emp-1"
	for i := 0; i < 5; i++ {
		svc.Record(context.Background(), &models.AuditLog{
			UserID:     &userID,
			Action:     models.AuditActionCorrectionCreate,
			EntityType: "correction_request",
		})
	}

	require.Eventually(t, func() bool {
		return store.count() == 5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAuditServiceRecordBeforeStartDoesNotPanic(t *testing.T) {
	store := &auditStoreStub{}
	svc := NewAuditService(store, config.AuditConfig{}, nil)

	userID := "emp-1"
	svc.Record(context.Background(), &models.AuditLog{UserID: &userID, Action: models.AuditActionLogin})
	require.Zero(t, store.count())
}
