package awsx

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	wafv2svc "github.com/aws/aws-sdk-go-v2/service/wafv2"
)

// WAFV2API is the narrow WAFv2 interface used by the pipeline. It covers the
// existence probe, candidate enumeration, and log delivery configuration.
type WAFV2API interface {
	GetWebACL(ctx context.Context, params *wafv2svc.GetWebACLInput, optFns ...func(*wafv2svc.Options)) (*wafv2svc.GetWebACLOutput, error)
	ListWebACLs(ctx context.Context, params *wafv2svc.ListWebACLsInput, optFns ...func(*wafv2svc.Options)) (*wafv2svc.ListWebACLsOutput, error)
	PutLoggingConfiguration(ctx context.Context, params *wafv2svc.PutLoggingConfigurationInput, optFns ...func(*wafv2svc.Options)) (*wafv2svc.PutLoggingConfigurationOutput, error)
	GetLoggingConfiguration(ctx context.Context, params *wafv2svc.GetLoggingConfigurationInput, optFns ...func(*wafv2svc.Options)) (*wafv2svc.GetLoggingConfigurationOutput, error)
}

// LogsAPI is the narrow CloudWatch Logs interface used on both the customer
// and central side: log groups, resource policies, destinations, and
// subscription filters.
type LogsAPI interface {
	CreateLogGroup(ctx context.Context, params *logssvc.CreateLogGroupInput, optFns ...func(*logssvc.Options)) (*logssvc.CreateLogGroupOutput, error)
	DescribeLogGroups(ctx context.Context, params *logssvc.DescribeLogGroupsInput, optFns ...func(*logssvc.Options)) (*logssvc.DescribeLogGroupsOutput, error)
	PutResourcePolicy(ctx context.Context, params *logssvc.PutResourcePolicyInput, optFns ...func(*logssvc.Options)) (*logssvc.PutResourcePolicyOutput, error)
	PutDestination(ctx context.Context, params *logssvc.PutDestinationInput, optFns ...func(*logssvc.Options)) (*logssvc.PutDestinationOutput, error)
	PutDestinationPolicy(ctx context.Context, params *logssvc.PutDestinationPolicyInput, optFns ...func(*logssvc.Options)) (*logssvc.PutDestinationPolicyOutput, error)
	DescribeDestinations(ctx context.Context, params *logssvc.DescribeDestinationsInput, optFns ...func(*logssvc.Options)) (*logssvc.DescribeDestinationsOutput, error)
	PutSubscriptionFilter(ctx context.Context, params *logssvc.PutSubscriptionFilterInput, optFns ...func(*logssvc.Options)) (*logssvc.PutSubscriptionFilterOutput, error)
	DescribeSubscriptionFilters(ctx context.Context, params *logssvc.DescribeSubscriptionFiltersInput, optFns ...func(*logssvc.Options)) (*logssvc.DescribeSubscriptionFiltersOutput, error)
	DeleteSubscriptionFilter(ctx context.Context, params *logssvc.DeleteSubscriptionFilterInput, optFns ...func(*logssvc.Options)) (*logssvc.DeleteSubscriptionFilterOutput, error)
}

// IAMAPI is the narrow IAM interface for role provisioning and trust repair.
type IAMAPI interface {
	GetRole(ctx context.Context, params *iamsvc.GetRoleInput, optFns ...func(*iamsvc.Options)) (*iamsvc.GetRoleOutput, error)
	CreateRole(ctx context.Context, params *iamsvc.CreateRoleInput, optFns ...func(*iamsvc.Options)) (*iamsvc.CreateRoleOutput, error)
	PutRolePolicy(ctx context.Context, params *iamsvc.PutRolePolicyInput, optFns ...func(*iamsvc.Options)) (*iamsvc.PutRolePolicyOutput, error)
	UpdateAssumeRolePolicy(ctx context.Context, params *iamsvc.UpdateAssumeRolePolicyInput, optFns ...func(*iamsvc.Options)) (*iamsvc.UpdateAssumeRolePolicyOutput, error)
	CreateServiceLinkedRole(ctx context.Context, params *iamsvc.CreateServiceLinkedRoleInput, optFns ...func(*iamsvc.Options)) (*iamsvc.CreateServiceLinkedRoleOutput, error)
}

// LambdaAPI is the narrow Lambda interface for the forwarder function.
type LambdaAPI interface {
	GetFunction(ctx context.Context, params *lambdasvc.GetFunctionInput, optFns ...func(*lambdasvc.Options)) (*lambdasvc.GetFunctionOutput, error)
	CreateFunction(ctx context.Context, params *lambdasvc.CreateFunctionInput, optFns ...func(*lambdasvc.Options)) (*lambdasvc.CreateFunctionOutput, error)
	AddPermission(ctx context.Context, params *lambdasvc.AddPermissionInput, optFns ...func(*lambdasvc.Options)) (*lambdasvc.AddPermissionOutput, error)
	GetPolicy(ctx context.Context, params *lambdasvc.GetPolicyInput, optFns ...func(*lambdasvc.Options)) (*lambdasvc.GetPolicyOutput, error)
}

// ClientSet bundles the service clients for one account/region scope.
type ClientSet struct {
	WAF    WAFV2API
	Logs   LogsAPI
	IAM    IAMAPI
	Lambda LambdaAPI
}

// ClientFactory creates a ClientSet from an AWS config.
// Injection point: tests replace this with a function returning fakes.
type ClientFactory func(cfg aws.Config) *ClientSet

// NewClientSet creates production AWS SDK clients from the given config.
func NewClientSet(cfg aws.Config) *ClientSet {
	return &ClientSet{
		WAF:    wafv2svc.NewFromConfig(cfg),
		Logs:   logssvc.NewFromConfig(cfg),
		IAM:    iamsvc.NewFromConfig(cfg),
		Lambda: lambdasvc.NewFromConfig(cfg),
	}
}
