package core

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	wafv2svc "github.com/aws/aws-sdk-go-v2/service/wafv2"
	waftypes "github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/awsx/awsxtest"
	"github.com/evo-uds/wafmon/internal/model"
)

const (
	testTenantID  = "tenant-1"
	testAccountID = "111122223333"
	testACLArn    = "arn:aws:wafv2:us-east-1:111122223333:regional/webacl/shop-acl/abc-123"
)

// staticResolver hands back empty configs; the client factory ignores them
// and returns fakes.
type staticResolver struct {
	err error
}

func (r *staticResolver) CustomerConfig(_ context.Context, _, _ string) (aws.Config, error) {
	return aws.Config{}, r.err
}

func (r *staticResolver) CentralConfig(_ context.Context, _ string) (aws.Config, error) {
	return aws.Config{}, r.err
}

func fixedClients(cs *awsx.ClientSet) awsx.ClientFactory {
	return func(aws.Config) *awsx.ClientSet { return cs }
}

func newMonitoringService(db DB, tc *temporalmocks.Client, cs *awsx.ClientSet) *MonitoringService {
	return NewMonitoringService(db, tc, &staticResolver{}, fixedClients(cs), nil,
		[]string{"us-east-1", "eu-west-1"}, zerolog.Nop())
}

func foundWAF(t *testing.T) *awsxtest.FakeWAF {
	t.Helper()
	return &awsxtest.FakeWAF{
		GetWebACLFunc: func(_ context.Context, params *wafv2svc.GetWebACLInput) (*wafv2svc.GetWebACLOutput, error) {
			assert.Equal(t, "shop-acl", aws.ToString(params.Name))
			return &wafv2svc.GetWebACLOutput{}, nil
		},
	}
}

// ---------- Enable ----------

func TestMonitoringService_Enable_Success(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := newMonitoringService(db, tc, awsxtest.NewClientSet(foundWAF(t), nil, nil, nil))
	ctx := context.Background()

	now := time.Now()
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			*dest[0].(*string) = "cfg-1"
			*dest[1].(*time.Time) = now
			*dest[2].(*time.Time) = now
			return nil
		},
	})

	wfRun := &temporalmocks.WorkflowRun{}
	tc.On("SignalWithStartWorkflow", mock.Anything, "tenant-"+testTenantID, model.ProvisionSignalName,
		mock.Anything, mock.Anything, "TenantProvisionWorkflow").Return(wfRun, nil)

	cfg, err := svc.Enable(ctx, EnableParams{
		TenantID:  testTenantID,
		AccountID: testAccountID,
		WebACLArn: testACLArn,
	})
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", cfg.ID)
	assert.Equal(t, model.StatusProvisioning, cfg.Status)
	assert.Equal(t, model.FilterModeBlockOnly, cfg.FilterMode)
	assert.Equal(t, "aws-waf-logs-shop-acl", cfg.LogGroupName)
	assert.Equal(t, "shop-acl", cfg.ResourceName)
	db.AssertExpectations(t)
	tc.AssertExpectations(t)
}

func TestMonitoringService_Enable_InvalidFilterMode(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := newMonitoringService(db, tc, awsxtest.NewClientSet(nil, nil, nil, nil))

	_, err := svc.Enable(context.Background(), EnableParams{
		TenantID:   testTenantID,
		AccountID:  testAccountID,
		WebACLArn:  testACLArn,
		FilterMode: "everything",
	})
	require.ErrorIs(t, err, ErrInvalidFilterMode)
	// Validation failures never touch the database or dispatch work.
	db.AssertNotCalled(t, "QueryRow")
	tc.AssertNotCalled(t, "SignalWithStartWorkflow")
}

func TestMonitoringService_Enable_InvalidArn(t *testing.T) {
	svc := newMonitoringService(&mockDB{}, &temporalmocks.Client{}, awsxtest.NewClientSet(nil, nil, nil, nil))

	_, err := svc.Enable(context.Background(), EnableParams{
		TenantID:  testTenantID,
		AccountID: testAccountID,
		WebACLArn: "arn:aws:lambda:us-east-1:1:function:nope",
	})
	require.ErrorIs(t, err, ErrInvalidWebACLArn)
}

func TestMonitoringService_Enable_ACLMissing(t *testing.T) {
	waf := &awsxtest.FakeWAF{
		GetWebACLFunc: func(_ context.Context, _ *wafv2svc.GetWebACLInput) (*wafv2svc.GetWebACLOutput, error) {
			return nil, awsxtest.APIError("WAFNonexistentItemException", "gone")
		},
	}
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := newMonitoringService(db, tc, awsxtest.NewClientSet(waf, nil, nil, nil))

	_, err := svc.Enable(context.Background(), EnableParams{
		TenantID:  testTenantID,
		AccountID: testAccountID,
		WebACLArn: testACLArn,
	})
	require.ErrorIs(t, err, ErrWebACLNotFound)
	db.AssertNotCalled(t, "QueryRow")
	tc.AssertNotCalled(t, "SignalWithStartWorkflow")
}

func TestMonitoringService_Enable_WorkflowError(t *testing.T) {
	db := &mockDB{}
	tc := &temporalmocks.Client{}
	svc := newMonitoringService(db, tc, awsxtest.NewClientSet(foundWAF(t), nil, nil, nil))
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			*dest[0].(*string) = "cfg-1"
			*dest[1].(*time.Time) = time.Now()
			*dest[2].(*time.Time) = time.Now()
			return nil
		},
	})
	tc.On("SignalWithStartWorkflow", mock.Anything, mock.Anything, mock.Anything,
		mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("temporal down"))

	_, err := svc.Enable(ctx, EnableParams{
		TenantID:  testTenantID,
		AccountID: testAccountID,
		WebACLArn: testACLArn,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start EnableWafMonitoringWorkflow")
}

// ---------- GetByID / ListByTenant ----------

func configScan(id string, status string) func(dest ...any) error {
	return func(dest ...any) error {
		*dest[0].(*string) = id
		*dest[1].(*string) = testTenantID
		*dest[2].(*string) = testAccountID
		*dest[3].(*string) = testACLArn
		*dest[4].(*string) = "shop-acl"
		*dest[5].(*string) = "aws-waf-logs-shop-acl"
		*dest[6].(*string) = model.FilterModeBlockOnly
		*dest[7].(**string) = nil
		*dest[8].(*string) = status
		*dest[9].(**string) = nil
		*dest[10].(*bool) = status == model.StatusActive
		*dest[11].(*time.Time) = time.Now()
		*dest[12].(*time.Time) = time.Now()
		return nil
	}
}

func TestMonitoringService_GetByID(t *testing.T) {
	db := &mockDB{}
	svc := newMonitoringService(db, &temporalmocks.Client{}, awsxtest.NewClientSet(nil, nil, nil, nil))
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"cfg-1"}).Return(&mockRow{
		scanFunc: configScan("cfg-1", model.StatusActive),
	})

	cfg, err := svc.GetByID(ctx, "cfg-1")
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", cfg.ID)
	assert.Equal(t, model.StatusActive, cfg.Status)
	assert.True(t, cfg.IsActive)
}

func TestMonitoringService_ListByTenant_Pagination(t *testing.T) {
	db := &mockDB{}
	svc := newMonitoringService(db, &temporalmocks.Client{}, awsxtest.NewClientSet(nil, nil, nil, nil))
	ctx := context.Background()

	// limit 2 requested, limit+1 rows returned: hasMore trims the extra.
	rows := newMockRows(
		configScan("cfg-1", model.StatusActive),
		configScan("cfg-2", model.StatusError),
		configScan("cfg-3", model.StatusActive),
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	configs, hasMore, err := svc.ListByTenant(ctx, testTenantID, 2, "")
	require.NoError(t, err)
	assert.Len(t, configs, 2)
	assert.True(t, hasMore)
}

// ---------- Disable ----------

func TestMonitoringService_Disable_RemovesFilterAndSoftDisables(t *testing.T) {
	filterDeleted := false
	logs := &awsxtest.FakeLogs{
		DeleteSubscriptionFilterFunc: func(_ context.Context, params *logssvc.DeleteSubscriptionFilterInput) (*logssvc.DeleteSubscriptionFilterOutput, error) {
			filterDeleted = true
			assert.Equal(t, "aws-waf-logs-shop-acl", aws.ToString(params.LogGroupName))
			return &logssvc.DeleteSubscriptionFilterOutput{}, nil
		},
	}
	db := &mockDB{}
	svc := newMonitoringService(db, &temporalmocks.Client{}, awsxtest.NewClientSet(nil, logs, nil, nil))
	ctx := context.Background()

	filterName := "evo-waf-log-filter"
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool { return strings.HasPrefix(sql, "SELECT") }), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			err := configScan("cfg-1", model.StatusActive)(dest...)
			*dest[7].(**string) = &filterName
			return err
		},
	})
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool { return strings.HasPrefix(sql, "UPDATE") }), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			*dest[0].(*string) = model.StatusDisabled
			*dest[1].(*bool) = false
			*dest[2].(**string) = nil
			*dest[3].(*time.Time) = time.Now()
			return nil
		},
	})

	cfg, err := svc.Disable(ctx, "cfg-1")
	require.NoError(t, err)
	assert.True(t, filterDeleted)
	assert.Equal(t, model.StatusDisabled, cfg.Status)
	assert.False(t, cfg.IsActive)
	assert.Nil(t, cfg.FilterName)
}

func TestMonitoringService_Disable_FilterAlreadyGone(t *testing.T) {
	logs := &awsxtest.FakeLogs{
		DeleteSubscriptionFilterFunc: func(_ context.Context, _ *logssvc.DeleteSubscriptionFilterInput) (*logssvc.DeleteSubscriptionFilterOutput, error) {
			return nil, awsxtest.APIError("ResourceNotFoundException", "no filter")
		},
	}
	db := &mockDB{}
	svc := newMonitoringService(db, &temporalmocks.Client{}, awsxtest.NewClientSet(nil, logs, nil, nil))
	ctx := context.Background()

	filterName := "evo-waf-log-filter"
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool { return strings.HasPrefix(sql, "SELECT") }), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			err := configScan("cfg-1", model.StatusActive)(dest...)
			*dest[7].(**string) = &filterName
			return err
		},
	})
	db.On("QueryRow", ctx, mock.MatchedBy(func(sql string) bool { return strings.HasPrefix(sql, "UPDATE") }), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			*dest[0].(*string) = model.StatusDisabled
			*dest[1].(*bool) = false
			*dest[2].(**string) = nil
			*dest[3].(*time.Time) = time.Now()
			return nil
		},
	})

	_, err := svc.Disable(ctx, "cfg-1")
	require.NoError(t, err)
}

// ---------- ListCandidateResources ----------

func TestMonitoringService_ListCandidateResources(t *testing.T) {
	waf := &awsxtest.FakeWAF{
		ListWebACLsFunc: func(_ context.Context, _ *wafv2svc.ListWebACLsInput) (*wafv2svc.ListWebACLsOutput, error) {
			return &wafv2svc.ListWebACLsOutput{WebACLs: []waftypes.WebACLSummary{{
				Name: aws.String("shop-acl"),
				ARN:  aws.String(testACLArn),
			}}}, nil
		},
	}
	db := &mockDB{}
	svc := newMonitoringService(db, &temporalmocks.Client{}, awsxtest.NewClientSet(waf, nil, nil, nil))
	ctx := context.Background()

	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(newMockRows(
		func(dest ...any) error {
			*dest[0].(*string) = testACLArn
			*dest[1].(*string) = model.StatusActive
			return nil
		},
	), nil)

	candidates, err := svc.ListCandidateResources(ctx, testTenantID, testAccountID)
	require.NoError(t, err)
	// One ACL per fanned-out region, both marked monitored.
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, "shop-acl", c.Name)
		assert.True(t, c.Monitored)
	}
}

// ---------- API keys ----------

func TestAPIKeyService_CreateAndVerify(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{
		scanFunc: func(dest ...any) error {
			if tp, ok := dest[0].(*time.Time); ok {
				*tp = time.Now()
			}
			return nil
		},
	}).Once()

	key, rawKey, err := svc.Create(ctx, "ci", nil)
	require.NoError(t, err)
	assert.Equal(t, "wfm_", rawKey[:4])
	assert.Equal(t, rawKey[:12], key.KeyPrefix)
	assert.Equal(t, []string{"*:*"}, key.Scopes)
}

func TestAPIKeyService_Revoke(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), []any{"key-1"}).Return(pgconn.CommandTag{}, nil)
	require.NoError(t, svc.Revoke(ctx, "key-1"))
	db.AssertExpectations(t)
}

func apiKeyScan(id string) func(dest ...any) error {
	return func(dest ...any) error {
		*(dest[0].(*string)) = id
		*(dest[1].(*string)) = "ci"
		*(dest[2].(*string)) = "wfm_0000" + id
		*(dest[3].(*[]string)) = []string{"*:*"}
		*(dest[4].(*time.Time)) = time.Now()
		return nil
	}
}

func TestAPIKeyService_List_Pagination(t *testing.T) {
	db := &mockDB{}
	svc := NewAPIKeyService(db)
	ctx := context.Background()

	// limit 2, three rows returned: hasMore and a trimmed page.
	db.On("Query", ctx, mock.AnythingOfType("string"), []any{3}).
		Return(newMockRows(apiKeyScan("k1"), apiKeyScan("k2"), apiKeyScan("k3")), nil)

	keys, hasMore, err := svc.List(ctx, 2, "")
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, keys, 2)
	assert.Equal(t, "k1", keys[0].ID)
	assert.Equal(t, "k2", keys[1].ID)
}
