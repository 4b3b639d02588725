package pipeline

import (
	"context"
	"testing"

	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	wafv2svc "github.com/aws/aws-sdk-go-v2/service/wafv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evo-uds/wafmon/internal/awsx/awsxtest"
	"github.com/evo-uds/wafmon/internal/model"
)

// A fresh account with no central destination: the report must show every
// failing precondition and skip the destination-dependent checks instead of
// aborting at the first failure.
func TestDiagnoseFreshAccount(t *testing.T) {
	waf := &awsxtest.FakeWAF{
		GetWebACLFunc: func(_ context.Context, _ *wafv2svc.GetWebACLInput) (*wafv2svc.GetWebACLOutput, error) {
			return &wafv2svc.GetWebACLOutput{}, nil
		},
		GetLoggingConfigurationFunc: func(_ context.Context, _ *wafv2svc.GetLoggingConfigurationInput) (*wafv2svc.GetLoggingConfigurationOutput, error) {
			return nil, awsxtest.APIError("WAFNonexistentItemException", "no logging configuration")
		},
	}
	logs := &awsxtest.FakeLogs{
		CreateLogGroupFunc: func(_ context.Context, _ *logssvc.CreateLogGroupInput) (*logssvc.CreateLogGroupOutput, error) {
			return &logssvc.CreateLogGroupOutput{}, nil
		},
		PutResourcePolicyFunc: func(_ context.Context, _ *logssvc.PutResourcePolicyInput) (*logssvc.PutResourcePolicyOutput, error) {
			return &logssvc.PutResourcePolicyOutput{}, nil
		},
	}
	iam := &awsxtest.FakeIAM{
		GetRoleFunc: func(_ context.Context, _ *iamsvc.GetRoleInput) (*iamsvc.GetRoleOutput, error) {
			return nil, awsxtest.APIError("NoSuchEntity", "missing")
		},
	}
	centralLogs := &awsxtest.FakeLogs{
		DescribeDestinationsFunc: func(_ context.Context, _ *logssvc.DescribeDestinationsInput) (*logssvc.DescribeDestinationsOutput, error) {
			return &logssvc.DescribeDestinationsOutput{}, nil
		},
	}

	e := newTestEnabler(awsxtest.NewClientSet(waf, logs, iam, nil), centralLogs, nil)
	report := e.Diagnose(context.Background(), testACL(t))

	byStep := map[string]model.SetupStepResult{}
	var order []string
	for _, r := range report {
		byStep[r.Step] = r
		order = append(order, r.Step)
	}

	assert.Equal(t, []string{
		StepValidateACL,
		StepLogGroup,
		StepResourcePolicy,
		StepServiceRole,
		StepLogDelivery,
		StepCentralInfra,
		StepDestinationGrant,
		StepDeliveryRole,
		StepSubscriptionFilter,
	}, order)

	assert.Equal(t, model.StepOK, byStep[StepValidateACL].Status)
	assert.Equal(t, model.StepOK, byStep[StepLogGroup].Status)
	assert.Equal(t, model.StepOK, byStep[StepResourcePolicy].Status)
	assert.Equal(t, model.StepFail, byStep[StepServiceRole].Status)
	assert.Equal(t, model.StepFail, byStep[StepLogDelivery].Status)
	assert.Equal(t, model.StepFail, byStep[StepCentralInfra].Status)
	assert.Equal(t, model.StepSkip, byStep[StepDestinationGrant].Status)
	assert.Equal(t, model.StepFail, byStep[StepDeliveryRole].Status)
	assert.Equal(t, model.StepSkip, byStep[StepSubscriptionFilter].Status)

	require.Contains(t, byStep[StepLogDelivery].Detail, "not configured")
}
