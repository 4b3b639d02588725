package workflow

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/evo-uds/wafmon/internal/activity"
	"github.com/evo-uds/wafmon/internal/model"
)

// EnableWafMonitoringWorkflow provisions the log forwarding pipeline for one
// monitoring configuration and flips the row to active or error.
func EnableWafMonitoringWorkflow(ctx workflow.Context, configID string) error {
	dbCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    1 * time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})

	var cfg model.MonitoringConfiguration
	err := workflow.ExecuteActivity(dbCtx, "GetMonitoringConfigByID", configID).Get(ctx, &cfg)
	if err != nil {
		_ = setConfigError(dbCtx, configID, err)
		return err
	}

	// The pipeline owns its retry budgets and propagation waits, so it runs
	// as a single long attempt. The activity timeout is the overall cap on
	// one provisioning run.
	pipelineCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Minute,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var res activity.EnablePipelineResult
	err = workflow.ExecuteActivity(pipelineCtx, "EnableWafLogPipeline", activity.EnablePipelineParams{
		ConfigID:   cfg.ID,
		AccountID:  cfg.AccountID,
		WebACLArn:  cfg.WebACLArn,
		FilterMode: cfg.FilterMode,
	}).Get(ctx, &res)
	if err != nil {
		_ = setConfigError(dbCtx, configID, err)
		return err
	}

	return workflow.ExecuteActivity(dbCtx, "UpdateMonitoringStatus", activity.UpdateMonitoringStatusParams{
		ID:         configID,
		Status:     model.StatusActive,
		FilterName: &res.FilterName,
		IsActive:   true,
	}).Get(ctx, nil)
}

// setConfigError records a terminal provisioning failure. The pipeline's own
// error message is persisted, stripped of Temporal's activity-error
// wrapping, because it is what operators see when debugging a customer
// account.
func setConfigError(ctx workflow.Context, configID string, err error) error {
	msg := err.Error()
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		msg = appErr.Message()
	}
	return workflow.ExecuteActivity(ctx, "UpdateMonitoringStatus", activity.UpdateMonitoringStatusParams{
		ID:            configID,
		Status:        model.StatusError,
		StatusMessage: &msg,
		IsActive:      false,
	}).Get(ctx, nil)
}
