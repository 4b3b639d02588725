package awsx

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	stssvc "github.com/aws/aws-sdk-go-v2/service/sts"
)

// MonitorRoleName is the role customers create in their account during
// onboarding. It trusts the central account and carries the read/write
// permissions the pipeline needs on the customer side.
const MonitorRoleName = "evo-uds-monitor-role"

// CredentialResolver resolves AWS configs for the two sides of the pipeline.
// The customer side is reached by assuming the onboarding role in the
// tenant's account; the central side uses the ambient task credentials.
type CredentialResolver interface {
	CustomerConfig(ctx context.Context, accountID, region string) (aws.Config, error)
	CentralConfig(ctx context.Context, region string) (aws.Config, error)
}

// STSResolver is the production CredentialResolver, backed by STS AssumeRole.
type STSResolver struct{}

func NewSTSResolver() *STSResolver {
	return &STSResolver{}
}

func (r *STSResolver) CentralConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load central aws config: %w", err)
	}
	return cfg, nil
}

func (r *STSResolver) CustomerConfig(ctx context.Context, accountID, region string) (aws.Config, error) {
	base, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load base aws config: %w", err)
	}

	roleArn := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, MonitorRoleName)
	provider := stscreds.NewAssumeRoleProvider(stssvc.NewFromConfig(base), roleArn)

	cfg := base.Copy()
	cfg.Credentials = aws.NewCredentialsCache(provider)
	return cfg, nil
}
