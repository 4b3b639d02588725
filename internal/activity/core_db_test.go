package activity

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/evo-uds/wafmon/internal/model"
)

// mockDB implements the DB interface for testing.
type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

func TestCoreDB_GetMonitoringConfigByID(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"cfg-1"}).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			*dest[0].(*string) = "cfg-1"
			*dest[1].(*string) = "tenant-1"
			*dest[2].(*string) = "111122223333"
			*dest[3].(*string) = "arn:aws:wafv2:us-east-1:111122223333:regional/webacl/shop-acl/abc-123"
			*dest[4].(*string) = "shop-acl"
			*dest[5].(*string) = "aws-waf-logs-shop-acl"
			*dest[6].(*string) = model.FilterModeBlockOnly
			*dest[7].(**string) = nil
			*dest[8].(*string) = model.StatusProvisioning
			*dest[9].(**string) = nil
			*dest[10].(*bool) = false
			*dest[11].(*time.Time) = time.Now()
			*dest[12].(*time.Time) = time.Now()
			return nil
		},
	})

	cfg, err := a.GetMonitoringConfigByID(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", cfg.ID)
	assert.Equal(t, model.StatusProvisioning, cfg.Status)
}

func TestCoreDB_UpdateMonitoringStatus(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	filter := "evo-waf-log-filter"
	db.On("Exec", ctx, mock.AnythingOfType("string"),
		[]any{model.StatusActive, (*string)(nil), &filter, true, "cfg-1"},
	).Return(pgconn.CommandTag{}, nil)

	err := a.UpdateMonitoringStatus(ctx, UpdateMonitoringStatusParams{
		ID:         "cfg-1",
		Status:     model.StatusActive,
		FilterName: &filter,
		IsActive:   true,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}
