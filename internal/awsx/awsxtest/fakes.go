// Package awsxtest provides function-field fakes for the narrow AWS client
// interfaces. A nil field fails the call loudly so tests only stub what they
// expect to be hit.
package awsxtest

import (
	"context"
	"fmt"

	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	wafv2svc "github.com/aws/aws-sdk-go-v2/service/wafv2"
	"github.com/aws/smithy-go"

	"github.com/evo-uds/wafmon/internal/awsx"
)

// APIError builds the smithy error shape the SDK returns, for driving the
// error-classification paths.
func APIError(code, message string) error {
	return &smithy.GenericAPIError{Code: code, Message: message}
}

func unexpected(call string) error {
	return fmt.Errorf("unexpected call %s", call)
}

type FakeWAF struct {
	GetWebACLFunc               func(ctx context.Context, params *wafv2svc.GetWebACLInput) (*wafv2svc.GetWebACLOutput, error)
	ListWebACLsFunc             func(ctx context.Context, params *wafv2svc.ListWebACLsInput) (*wafv2svc.ListWebACLsOutput, error)
	PutLoggingConfigurationFunc func(ctx context.Context, params *wafv2svc.PutLoggingConfigurationInput) (*wafv2svc.PutLoggingConfigurationOutput, error)
	GetLoggingConfigurationFunc func(ctx context.Context, params *wafv2svc.GetLoggingConfigurationInput) (*wafv2svc.GetLoggingConfigurationOutput, error)
}

func (f *FakeWAF) GetWebACL(ctx context.Context, params *wafv2svc.GetWebACLInput, _ ...func(*wafv2svc.Options)) (*wafv2svc.GetWebACLOutput, error) {
	if f.GetWebACLFunc == nil {
		return nil, unexpected("GetWebACL")
	}
	return f.GetWebACLFunc(ctx, params)
}

func (f *FakeWAF) ListWebACLs(ctx context.Context, params *wafv2svc.ListWebACLsInput, _ ...func(*wafv2svc.Options)) (*wafv2svc.ListWebACLsOutput, error) {
	if f.ListWebACLsFunc == nil {
		return nil, unexpected("ListWebACLs")
	}
	return f.ListWebACLsFunc(ctx, params)
}

func (f *FakeWAF) PutLoggingConfiguration(ctx context.Context, params *wafv2svc.PutLoggingConfigurationInput, _ ...func(*wafv2svc.Options)) (*wafv2svc.PutLoggingConfigurationOutput, error) {
	if f.PutLoggingConfigurationFunc == nil {
		return nil, unexpected("PutLoggingConfiguration")
	}
	return f.PutLoggingConfigurationFunc(ctx, params)
}

func (f *FakeWAF) GetLoggingConfiguration(ctx context.Context, params *wafv2svc.GetLoggingConfigurationInput, _ ...func(*wafv2svc.Options)) (*wafv2svc.GetLoggingConfigurationOutput, error) {
	if f.GetLoggingConfigurationFunc == nil {
		return nil, unexpected("GetLoggingConfiguration")
	}
	return f.GetLoggingConfigurationFunc(ctx, params)
}

type FakeLogs struct {
	CreateLogGroupFunc              func(ctx context.Context, params *logssvc.CreateLogGroupInput) (*logssvc.CreateLogGroupOutput, error)
	DescribeLogGroupsFunc           func(ctx context.Context, params *logssvc.DescribeLogGroupsInput) (*logssvc.DescribeLogGroupsOutput, error)
	PutResourcePolicyFunc           func(ctx context.Context, params *logssvc.PutResourcePolicyInput) (*logssvc.PutResourcePolicyOutput, error)
	PutDestinationFunc              func(ctx context.Context, params *logssvc.PutDestinationInput) (*logssvc.PutDestinationOutput, error)
	PutDestinationPolicyFunc        func(ctx context.Context, params *logssvc.PutDestinationPolicyInput) (*logssvc.PutDestinationPolicyOutput, error)
	DescribeDestinationsFunc        func(ctx context.Context, params *logssvc.DescribeDestinationsInput) (*logssvc.DescribeDestinationsOutput, error)
	PutSubscriptionFilterFunc       func(ctx context.Context, params *logssvc.PutSubscriptionFilterInput) (*logssvc.PutSubscriptionFilterOutput, error)
	DescribeSubscriptionFiltersFunc func(ctx context.Context, params *logssvc.DescribeSubscriptionFiltersInput) (*logssvc.DescribeSubscriptionFiltersOutput, error)
	DeleteSubscriptionFilterFunc    func(ctx context.Context, params *logssvc.DeleteSubscriptionFilterInput) (*logssvc.DeleteSubscriptionFilterOutput, error)
}

func (f *FakeLogs) CreateLogGroup(ctx context.Context, params *logssvc.CreateLogGroupInput, _ ...func(*logssvc.Options)) (*logssvc.CreateLogGroupOutput, error) {
	if f.CreateLogGroupFunc == nil {
		return nil, unexpected("CreateLogGroup")
	}
	return f.CreateLogGroupFunc(ctx, params)
}

func (f *FakeLogs) DescribeLogGroups(ctx context.Context, params *logssvc.DescribeLogGroupsInput, _ ...func(*logssvc.Options)) (*logssvc.DescribeLogGroupsOutput, error) {
	if f.DescribeLogGroupsFunc == nil {
		return nil, unexpected("DescribeLogGroups")
	}
	return f.DescribeLogGroupsFunc(ctx, params)
}

func (f *FakeLogs) PutResourcePolicy(ctx context.Context, params *logssvc.PutResourcePolicyInput, _ ...func(*logssvc.Options)) (*logssvc.PutResourcePolicyOutput, error) {
	if f.PutResourcePolicyFunc == nil {
		return nil, unexpected("PutResourcePolicy")
	}
	return f.PutResourcePolicyFunc(ctx, params)
}

func (f *FakeLogs) PutDestination(ctx context.Context, params *logssvc.PutDestinationInput, _ ...func(*logssvc.Options)) (*logssvc.PutDestinationOutput, error) {
	if f.PutDestinationFunc == nil {
		return nil, unexpected("PutDestination")
	}
	return f.PutDestinationFunc(ctx, params)
}

func (f *FakeLogs) PutDestinationPolicy(ctx context.Context, params *logssvc.PutDestinationPolicyInput, _ ...func(*logssvc.Options)) (*logssvc.PutDestinationPolicyOutput, error) {
	if f.PutDestinationPolicyFunc == nil {
		return nil, unexpected("PutDestinationPolicy")
	}
	return f.PutDestinationPolicyFunc(ctx, params)
}

func (f *FakeLogs) DescribeDestinations(ctx context.Context, params *logssvc.DescribeDestinationsInput, _ ...func(*logssvc.Options)) (*logssvc.DescribeDestinationsOutput, error) {
	if f.DescribeDestinationsFunc == nil {
		return nil, unexpected("DescribeDestinations")
	}
	return f.DescribeDestinationsFunc(ctx, params)
}

func (f *FakeLogs) PutSubscriptionFilter(ctx context.Context, params *logssvc.PutSubscriptionFilterInput, _ ...func(*logssvc.Options)) (*logssvc.PutSubscriptionFilterOutput, error) {
	if f.PutSubscriptionFilterFunc == nil {
		return nil, unexpected("PutSubscriptionFilter")
	}
	return f.PutSubscriptionFilterFunc(ctx, params)
}

func (f *FakeLogs) DescribeSubscriptionFilters(ctx context.Context, params *logssvc.DescribeSubscriptionFiltersInput, _ ...func(*logssvc.Options)) (*logssvc.DescribeSubscriptionFiltersOutput, error) {
	if f.DescribeSubscriptionFiltersFunc == nil {
		return nil, unexpected("DescribeSubscriptionFilters")
	}
	return f.DescribeSubscriptionFiltersFunc(ctx, params)
}

func (f *FakeLogs) DeleteSubscriptionFilter(ctx context.Context, params *logssvc.DeleteSubscriptionFilterInput, _ ...func(*logssvc.Options)) (*logssvc.DeleteSubscriptionFilterOutput, error) {
	if f.DeleteSubscriptionFilterFunc == nil {
		return nil, unexpected("DeleteSubscriptionFilter")
	}
	return f.DeleteSubscriptionFilterFunc(ctx, params)
}

type FakeIAM struct {
	GetRoleFunc                 func(ctx context.Context, params *iamsvc.GetRoleInput) (*iamsvc.GetRoleOutput, error)
	CreateRoleFunc              func(ctx context.Context, params *iamsvc.CreateRoleInput) (*iamsvc.CreateRoleOutput, error)
	PutRolePolicyFunc           func(ctx context.Context, params *iamsvc.PutRolePolicyInput) (*iamsvc.PutRolePolicyOutput, error)
	UpdateAssumeRolePolicyFunc  func(ctx context.Context, params *iamsvc.UpdateAssumeRolePolicyInput) (*iamsvc.UpdateAssumeRolePolicyOutput, error)
	CreateServiceLinkedRoleFunc func(ctx context.Context, params *iamsvc.CreateServiceLinkedRoleInput) (*iamsvc.CreateServiceLinkedRoleOutput, error)
}

func (f *FakeIAM) GetRole(ctx context.Context, params *iamsvc.GetRoleInput, _ ...func(*iamsvc.Options)) (*iamsvc.GetRoleOutput, error) {
	if f.GetRoleFunc == nil {
		return nil, unexpected("GetRole")
	}
	return f.GetRoleFunc(ctx, params)
}

func (f *FakeIAM) CreateRole(ctx context.Context, params *iamsvc.CreateRoleInput, _ ...func(*iamsvc.Options)) (*iamsvc.CreateRoleOutput, error) {
	if f.CreateRoleFunc == nil {
		return nil, unexpected("CreateRole")
	}
	return f.CreateRoleFunc(ctx, params)
}

func (f *FakeIAM) PutRolePolicy(ctx context.Context, params *iamsvc.PutRolePolicyInput, _ ...func(*iamsvc.Options)) (*iamsvc.PutRolePolicyOutput, error) {
	if f.PutRolePolicyFunc == nil {
		return nil, unexpected("PutRolePolicy")
	}
	return f.PutRolePolicyFunc(ctx, params)
}

func (f *FakeIAM) UpdateAssumeRolePolicy(ctx context.Context, params *iamsvc.UpdateAssumeRolePolicyInput, _ ...func(*iamsvc.Options)) (*iamsvc.UpdateAssumeRolePolicyOutput, error) {
	if f.UpdateAssumeRolePolicyFunc == nil {
		return nil, unexpected("UpdateAssumeRolePolicy")
	}
	return f.UpdateAssumeRolePolicyFunc(ctx, params)
}

func (f *FakeIAM) CreateServiceLinkedRole(ctx context.Context, params *iamsvc.CreateServiceLinkedRoleInput, _ ...func(*iamsvc.Options)) (*iamsvc.CreateServiceLinkedRoleOutput, error) {
	if f.CreateServiceLinkedRoleFunc == nil {
		return nil, unexpected("CreateServiceLinkedRole")
	}
	return f.CreateServiceLinkedRoleFunc(ctx, params)
}

type FakeLambda struct {
	GetFunctionFunc    func(ctx context.Context, params *lambdasvc.GetFunctionInput) (*lambdasvc.GetFunctionOutput, error)
	CreateFunctionFunc func(ctx context.Context, params *lambdasvc.CreateFunctionInput) (*lambdasvc.CreateFunctionOutput, error)
	AddPermissionFunc  func(ctx context.Context, params *lambdasvc.AddPermissionInput) (*lambdasvc.AddPermissionOutput, error)
	GetPolicyFunc      func(ctx context.Context, params *lambdasvc.GetPolicyInput) (*lambdasvc.GetPolicyOutput, error)
}

func (f *FakeLambda) GetFunction(ctx context.Context, params *lambdasvc.GetFunctionInput, _ ...func(*lambdasvc.Options)) (*lambdasvc.GetFunctionOutput, error) {
	if f.GetFunctionFunc == nil {
		return nil, unexpected("GetFunction")
	}
	return f.GetFunctionFunc(ctx, params)
}

func (f *FakeLambda) CreateFunction(ctx context.Context, params *lambdasvc.CreateFunctionInput, _ ...func(*lambdasvc.Options)) (*lambdasvc.CreateFunctionOutput, error) {
	if f.CreateFunctionFunc == nil {
		return nil, unexpected("CreateFunction")
	}
	return f.CreateFunctionFunc(ctx, params)
}

func (f *FakeLambda) AddPermission(ctx context.Context, params *lambdasvc.AddPermissionInput, _ ...func(*lambdasvc.Options)) (*lambdasvc.AddPermissionOutput, error) {
	if f.AddPermissionFunc == nil {
		return nil, unexpected("AddPermission")
	}
	return f.AddPermissionFunc(ctx, params)
}

func (f *FakeLambda) GetPolicy(ctx context.Context, params *lambdasvc.GetPolicyInput, _ ...func(*lambdasvc.Options)) (*lambdasvc.GetPolicyOutput, error) {
	if f.GetPolicyFunc == nil {
		return nil, unexpected("GetPolicy")
	}
	return f.GetPolicyFunc(ctx, params)
}

// NewClientSet bundles fakes into the shape production code takes. Nil fakes
// are replaced with empty ones so every unstubbed call errors instead of
// panicking.
func NewClientSet(waf *FakeWAF, logs *FakeLogs, iam *FakeIAM, lambda *FakeLambda) *awsx.ClientSet {
	if waf == nil {
		waf = &FakeWAF{}
	}
	if logs == nil {
		logs = &FakeLogs{}
	}
	if iam == nil {
		iam = &FakeIAM{}
	}
	if lambda == nil {
		lambda = &FakeLambda{}
	}
	return &awsx.ClientSet{WAF: waf, Logs: logs, IAM: iam, Lambda: lambda}
}
