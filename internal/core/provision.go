package core

import (
	"context"
	"fmt"

	temporalclient "go.temporal.io/sdk/client"

	"github.com/evo-uds/wafmon/internal/model"
)

const taskQueue = "wafmon-tasks"

// workflowID builds a human-readable Temporal workflow ID from a resource
// type prefix and the resource's unique ID.
func workflowID(prefix, id string) string {
	return fmt.Sprintf("%s-%s", prefix, id)
}

// signalProvision routes a workflow task through the per-tenant entity
// workflow. SignalWithStartWorkflow serializes all provisioning work for one
// tenant, so two enable calls for the same tenant never run concurrently.
func signalProvision(ctx context.Context, tc temporalclient.Client, tenantID string, task model.ProvisionTask) error {
	if tenantID == "" {
		_, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
			ID:        task.WorkflowID,
			TaskQueue: taskQueue,
		}, task.WorkflowName, task.Arg)
		return err
	}

	wfID := fmt.Sprintf("tenant-%s", tenantID)
	_, err := tc.SignalWithStartWorkflow(ctx, wfID, model.ProvisionSignalName, task,
		temporalclient.StartWorkflowOptions{
			ID:        wfID,
			TaskQueue: taskQueue,
		},
		"TenantProvisionWorkflow",
	)
	return err
}
