package activity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/evo-uds/wafmon/internal/model"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CoreDB contains activities that read from and update the core database.
type CoreDB struct {
	db DB
}

// NewCoreDB creates a new CoreDB activity struct.
func NewCoreDB(db DB) *CoreDB {
	return &CoreDB{db: db}
}

// GetMonitoringConfigByID retrieves a monitoring configuration by its ID.
func (a *CoreDB) GetMonitoringConfigByID(ctx context.Context, id string) (*model.MonitoringConfiguration, error) {
	var c model.MonitoringConfiguration
	err := a.db.QueryRow(ctx,
		`SELECT id, tenant_id, account_id, web_acl_arn, resource_name, log_group_name, filter_mode, filter_name, status, status_message, is_active, created_at, updated_at
		 FROM waf_monitoring_configs WHERE id = $1`, id,
	).Scan(&c.ID, &c.TenantID, &c.AccountID, &c.WebACLArn, &c.ResourceName, &c.LogGroupName,
		&c.FilterMode, &c.FilterName, &c.Status, &c.StatusMessage, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get monitoring config by id: %w", err)
	}
	return &c, nil
}

// UpdateMonitoringStatusParams holds the parameters for UpdateMonitoringStatus.
type UpdateMonitoringStatusParams struct {
	ID            string
	Status        string
	StatusMessage *string
	FilterName    *string
	IsActive      bool
}

// UpdateMonitoringStatus writes the lifecycle fields of a configuration row.
func (a *CoreDB) UpdateMonitoringStatus(ctx context.Context, params UpdateMonitoringStatusParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE waf_monitoring_configs
		 SET status = $1, status_message = $2, filter_name = $3, is_active = $4, updated_at = now()
		 WHERE id = $5`,
		params.Status, params.StatusMessage, params.FilterName, params.IsActive, params.ID,
	)
	if err != nil {
		return fmt.Errorf("update monitoring status: %w", err)
	}
	return nil
}
