package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	wafv2svc "github.com/aws/aws-sdk-go-v2/service/wafv2"
	waftypes "github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"
	"golang.org/x/sync/errgroup"

	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/forwarder"
	"github.com/evo-uds/wafmon/internal/model"
	"github.com/evo-uds/wafmon/internal/pipeline"
)

// Sentinel errors the API layer maps to response codes.
var (
	ErrInvalidFilterMode = errors.New("invalid filter mode")
	ErrInvalidWebACLArn  = errors.New("invalid web ACL ARN")
	ErrWebACLNotFound    = errors.New("web ACL not found")
)

// PipelineFactory builds a ready-to-run pipeline enabler scoped to one
// customer account and region. The worker and the diagnostic endpoint share
// this so both sides run the exact same steps.
type PipelineFactory func(ctx context.Context, accountID, region string) (*pipeline.Enabler, error)

const regionFanOutLimit = 4

// MonitoringService manages WAF monitoring configurations against the core
// database and dispatches provisioning work to Temporal.
type MonitoringService struct {
	db        DB
	tc        temporalclient.Client
	resolver  awsx.CredentialResolver
	clients   awsx.ClientFactory
	pipelines PipelineFactory
	regions   []string
	logger    zerolog.Logger
}

// NewMonitoringService creates a new MonitoringService.
func NewMonitoringService(db DB, tc temporalclient.Client, resolver awsx.CredentialResolver, clients awsx.ClientFactory, pipelines PipelineFactory, regions []string, logger zerolog.Logger) *MonitoringService {
	return &MonitoringService{
		db:        db,
		tc:        tc,
		resolver:  resolver,
		clients:   clients,
		pipelines: pipelines,
		regions:   regions,
		logger:    logger.With().Str("service", "monitoring").Logger(),
	}
}

// EnableParams is the validated input for an enable request.
type EnableParams struct {
	TenantID   string
	AccountID  string
	WebACLArn  string
	FilterMode string
}

// Enable validates the request, upserts the configuration row to provisioning
// and hands the heavy work to the per-tenant workflow. It returns before any
// cloud resource is touched; callers poll the status afterwards. Validation
// failures never dispatch.
func (s *MonitoringService) Enable(ctx context.Context, params EnableParams) (*model.MonitoringConfiguration, error) {
	if params.FilterMode == "" {
		params.FilterMode = model.FilterModeBlockOnly
	}
	if !model.ValidFilterMode(params.FilterMode) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilterMode, params.FilterMode)
	}

	acl, err := pipeline.ParseWebACLArn(params.WebACLArn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebACLArn, err)
	}

	// Read-only existence probe in the customer account. A vanished ACL is a
	// user error, reported synchronously.
	awscfg, err := s.resolver.CustomerConfig(ctx, params.AccountID, acl.Region)
	if err != nil {
		return nil, fmt.Errorf("resolve customer credentials: %w", err)
	}
	if _, err := s.clients(awscfg).WAF.GetWebACL(ctx, &wafv2svc.GetWebACLInput{
		Name:  aws.String(acl.Name),
		Id:    aws.String(acl.ID),
		Scope: acl.Scope,
	}); err != nil {
		if awsx.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrWebACLNotFound, params.WebACLArn)
		}
		return nil, fmt.Errorf("probe web ACL: %w", err)
	}

	cfg := &model.MonitoringConfiguration{
		ID:           uuid.NewString(),
		TenantID:     params.TenantID,
		AccountID:    params.AccountID,
		WebACLArn:    params.WebACLArn,
		ResourceName: acl.Name,
		LogGroupName: forwarder.LogGroupName(acl.Name),
		FilterMode:   params.FilterMode,
		Status:       model.StatusProvisioning,
	}
	// Upsert: a re-enable of an existing (also errored) configuration resets
	// it to provisioning and keeps the original row id.
	err = s.db.QueryRow(ctx,
		`INSERT INTO waf_monitoring_configs
		   (id, tenant_id, account_id, web_acl_arn, resource_name, log_group_name, filter_mode, status, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, now(), now())
		 ON CONFLICT (tenant_id, web_acl_arn) DO UPDATE
		 SET filter_mode = EXCLUDED.filter_mode,
		     status = EXCLUDED.status,
		     status_message = NULL,
		     is_active = false,
		     updated_at = now()
		 RETURNING id, created_at, updated_at`,
		cfg.ID, cfg.TenantID, cfg.AccountID, cfg.WebACLArn, cfg.ResourceName,
		cfg.LogGroupName, cfg.FilterMode, cfg.Status,
	).Scan(&cfg.ID, &cfg.CreatedAt, &cfg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert monitoring config: %w", err)
	}

	if err := signalProvision(ctx, s.tc, cfg.TenantID, model.ProvisionTask{
		WorkflowName: "EnableWafMonitoringWorkflow",
		WorkflowID:   workflowID("waf-monitor", cfg.ID),
		Arg:          cfg.ID,
	}); err != nil {
		return nil, fmt.Errorf("start EnableWafMonitoringWorkflow: %w", err)
	}

	return cfg, nil
}

// GetByID retrieves a monitoring configuration by its ID.
func (s *MonitoringService) GetByID(ctx context.Context, id string) (*model.MonitoringConfiguration, error) {
	var c model.MonitoringConfiguration
	err := s.db.QueryRow(ctx,
		`SELECT id, tenant_id, account_id, web_acl_arn, resource_name, log_group_name, filter_mode, filter_name, status, status_message, is_active, created_at, updated_at
		 FROM waf_monitoring_configs WHERE id = $1`, id,
	).Scan(&c.ID, &c.TenantID, &c.AccountID, &c.WebACLArn, &c.ResourceName, &c.LogGroupName,
		&c.FilterMode, &c.FilterName, &c.Status, &c.StatusMessage, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get monitoring config %s: %w", id, err)
	}
	return &c, nil
}

// ListByTenant retrieves monitoring configurations for a tenant with
// cursor-based pagination.
func (s *MonitoringService) ListByTenant(ctx context.Context, tenantID string, limit int, cursor string) ([]model.MonitoringConfiguration, bool, error) {
	query := `SELECT id, tenant_id, account_id, web_acl_arn, resource_name, log_group_name, filter_mode, filter_name, status, status_message, is_active, created_at, updated_at
	          FROM waf_monitoring_configs WHERE tenant_id = $1`
	args := []any{tenantID}
	argIdx := 2

	if cursor != "" {
		query += fmt.Sprintf(` AND id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list monitoring configs for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var configs []model.MonitoringConfiguration
	for rows.Next() {
		var c model.MonitoringConfiguration
		if err := rows.Scan(&c.ID, &c.TenantID, &c.AccountID, &c.WebACLArn, &c.ResourceName, &c.LogGroupName,
			&c.FilterMode, &c.FilterName, &c.Status, &c.StatusMessage, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan monitoring config: %w", err)
		}
		configs = append(configs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate monitoring configs: %w", err)
	}

	hasMore := len(configs) > limit
	if hasMore {
		configs = configs[:limit]
	}
	return configs, hasMore, nil
}

// Disable removes the customer-side subscription filter best-effort and
// soft-disables the row. The log group and the ACL's logging configuration
// stay untouched; the customer may rely on them independently.
func (s *MonitoringService) Disable(ctx context.Context, id string) (*model.MonitoringConfiguration, error) {
	cfg, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cfg.FilterName != nil {
		s.removeSubscriptionFilter(ctx, cfg)
	}

	err = s.db.QueryRow(ctx,
		`UPDATE waf_monitoring_configs
		 SET status = $1, is_active = false, filter_name = NULL, updated_at = now()
		 WHERE id = $2
		 RETURNING status, is_active, filter_name, updated_at`,
		model.StatusDisabled, id,
	).Scan(&cfg.Status, &cfg.IsActive, &cfg.FilterName, &cfg.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("disable monitoring config %s: %w", id, err)
	}
	return cfg, nil
}

func (s *MonitoringService) removeSubscriptionFilter(ctx context.Context, cfg *model.MonitoringConfiguration) {
	acl, err := pipeline.ParseWebACLArn(cfg.WebACLArn)
	if err != nil {
		s.logger.Warn().Err(err).Str("config_id", cfg.ID).Msg("disable: bad stored web ACL ARN")
		return
	}
	awscfg, err := s.resolver.CustomerConfig(ctx, cfg.AccountID, acl.Region)
	if err != nil {
		s.logger.Warn().Err(err).Str("config_id", cfg.ID).Msg("disable: resolve customer credentials failed")
		return
	}
	_, err = s.clients(awscfg).Logs.DeleteSubscriptionFilter(ctx, &logssvc.DeleteSubscriptionFilterInput{
		LogGroupName: aws.String(cfg.LogGroupName),
		FilterName:   cfg.FilterName,
	})
	if err != nil && !awsx.IsNotFound(err) {
		s.logger.Warn().Err(err).Str("config_id", cfg.ID).Msg("disable: delete subscription filter failed")
	}
}

// ListCandidateResources enumerates the tenant account's web ACLs across the
// monitored regions, concurrency-limited, and marks the ones that already
// have a non-disabled configuration.
func (s *MonitoringService) ListCandidateResources(ctx context.Context, tenantID, accountID string) ([]model.CandidateResource, error) {
	monitored, err := s.monitoredArns(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var (
		mu         sync.Mutex
		candidates []model.CandidateResource
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(regionFanOutLimit)

	for _, region := range s.regions {
		g.Go(func() error {
			awscfg, err := s.resolver.CustomerConfig(gctx, accountID, region)
			if err != nil {
				return fmt.Errorf("resolve credentials for %s: %w", region, err)
			}
			waf := s.clients(awscfg).WAF

			var marker *string
			for {
				out, err := waf.ListWebACLs(gctx, &wafv2svc.ListWebACLsInput{
					Scope:      waftypes.ScopeRegional,
					NextMarker: marker,
				})
				if err != nil {
					return fmt.Errorf("list web ACLs in %s: %w", region, err)
				}

				mu.Lock()
				for _, acl := range out.WebACLs {
					arn := aws.ToString(acl.ARN)
					candidates = append(candidates, model.CandidateResource{
						Name:      aws.ToString(acl.Name),
						Arn:       arn,
						Region:    region,
						Monitored: monitored[arn],
					})
				}
				mu.Unlock()

				if out.NextMarker == nil || aws.ToString(out.NextMarker) == "" {
					return nil
				}
				marker = out.NextMarker
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Arn < candidates[j].Arn })
	return candidates, nil
}

func (s *MonitoringService) monitoredArns(ctx context.Context, tenantID string) (map[string]bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT web_acl_arn, status FROM waf_monitoring_configs WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list monitored ARNs for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	monitored := map[string]bool{}
	for rows.Next() {
		var arn, status string
		if err := rows.Scan(&arn, &status); err != nil {
			return nil, fmt.Errorf("scan monitored ARN: %w", err)
		}
		if status != model.StatusDisabled {
			monitored[arn] = true
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate monitored ARNs: %w", err)
	}
	return monitored, nil
}

// TestSetup runs the read-only diagnostic probes for a web ACL and returns
// the ordered step report.
func (s *MonitoringService) TestSetup(ctx context.Context, accountID, webACLArn string) ([]model.SetupStepResult, error) {
	acl, err := pipeline.ParseWebACLArn(webACLArn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWebACLArn, err)
	}
	enabler, err := s.pipelines(ctx, accountID, acl.Region)
	if err != nil {
		return nil, fmt.Errorf("build pipeline for %s: %w", acl.Region, err)
	}
	return enabler.Diagnose(ctx, acl), nil
}
