// Package forwarder provisions the per-region central-account
// infrastructure that receives customer WAF logs: the forwarder Lambda, its
// roles, and the cross-account log destination in front of it.
package forwarder

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	lambdasvc "github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog"

	"github.com/evo-uds/wafmon/internal/archive"
	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/ensure"
)

const (
	execPolicyName        = "evo-waf-log-forwarder-policy"
	destinationPolicyName = "evo-waf-log-destination-policy"
	initialAccessSid      = "central-account-access"
)

// Provisioner ensures the regional forwarding chain exists. All operations
// are idempotent; resources created out-of-band are reused, never replaced.
type Provisioner struct {
	clients          *awsx.ClientSet
	region           string
	centralAccountID string
	processorArn     string
	logger           zerolog.Logger
}

func NewProvisioner(clients *awsx.ClientSet, region, centralAccountID, processorArn string, logger zerolog.Logger) *Provisioner {
	return &Provisioner{
		clients:          clients,
		region:           region,
		centralAccountID: centralAccountID,
		processorArn:     processorArn,
		logger:           logger.With().Str("component", "forwarder").Str("region", region).Logger(),
	}
}

// DestinationExists probes for the regional destination without mutating
// anything. It is the short-circuit for the common post-first-use case.
func (p *Provisioner) DestinationExists(ctx context.Context) (string, bool, error) {
	out, err := p.clients.Logs.DescribeDestinations(ctx, &logssvc.DescribeDestinationsInput{
		DestinationNamePrefix: aws.String(DestinationName),
	})
	if err != nil {
		return "", false, fmt.Errorf("describe destinations: %w", err)
	}
	for _, d := range out.Destinations {
		if aws.ToString(d.DestinationName) == DestinationName {
			return aws.ToString(d.Arn), true, nil
		}
	}
	return "", false, nil
}

// Ensure provisions the full regional chain in dependency order and returns
// the destination ARN.
func (p *Provisioner) Ensure(ctx context.Context) (string, error) {
	if arn, ok, err := p.DestinationExists(ctx); err != nil {
		return "", err
	} else if ok {
		p.logger.Debug().Str("destination", arn).Msg("regional infrastructure already provisioned")
		return arn, nil
	}

	roleArn, err := p.ensureExecRole(ctx)
	if err != nil {
		return "", fmt.Errorf("ensure forwarder role: %w", err)
	}

	fnArn, err := p.ensureFunction(ctx, roleArn)
	if err != nil {
		return "", fmt.Errorf("ensure forwarder function: %w", err)
	}

	if err := p.ensureInvokePermission(ctx); err != nil {
		return "", fmt.Errorf("ensure invoke permission: %w", err)
	}

	destRoleArn, err := p.ensureDestinationRole(ctx, fnArn)
	if err != nil {
		return "", fmt.Errorf("ensure destination role: %w", err)
	}

	destArn, err := p.ensureDestination(ctx, fnArn, destRoleArn)
	if err != nil {
		return "", fmt.Errorf("ensure destination: %w", err)
	}

	p.logger.Info().Str("destination", destArn).Msg("regional forwarding infrastructure ready")
	return destArn, nil
}

func (p *Provisioner) ensureExecRole(ctx context.Context) (string, error) {
	return ensure.Resource(ctx,
		func(ctx context.Context) (string, error) {
			out, err := p.clients.IAM.GetRole(ctx, &iamsvc.GetRoleInput{RoleName: aws.String(ExecRoleName)})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Role.Arn), nil
		},
		func(ctx context.Context) (string, error) {
			trust, err := awsx.MarshalPolicy(servicePrincipalTrust("lambda.amazonaws.com"))
			if err != nil {
				return "", err
			}
			out, err := p.clients.IAM.CreateRole(ctx, &iamsvc.CreateRoleInput{
				RoleName:                 aws.String(ExecRoleName),
				AssumeRolePolicyDocument: aws.String(trust),
				Description:              aws.String("Execution role for the WAF log forwarder"),
			})
			if err != nil {
				return "", err
			}

			policy, err := awsx.MarshalPolicy(awsx.PolicyDocument{
				Version: "2012-10-17",
				Statement: []awsx.PolicyStatement{
					{
						Effect:   "Allow",
						Action:   awsx.StringList{"lambda:InvokeFunction"},
						Resource: awsx.StringList{p.processorArn},
					},
					{
						Effect:   "Allow",
						Action:   awsx.StringList{"logs:CreateLogGroup", "logs:CreateLogStream", "logs:PutLogEvents"},
						Resource: awsx.StringList{"*"},
					},
				},
			})
			if err != nil {
				return "", err
			}
			if _, err := p.clients.IAM.PutRolePolicy(ctx, &iamsvc.PutRolePolicyInput{
				RoleName:       aws.String(ExecRoleName),
				PolicyName:     aws.String(execPolicyName),
				PolicyDocument: aws.String(policy),
			}); err != nil {
				return "", fmt.Errorf("attach forwarder inline policy: %w", err)
			}

			return aws.ToString(out.Role.Arn), nil
		},
	)
}

func (p *Provisioner) ensureFunction(ctx context.Context, roleArn string) (string, error) {
	return ensure.Resource(ctx,
		func(ctx context.Context) (string, error) {
			out, err := p.clients.Lambda.GetFunction(ctx, &lambdasvc.GetFunctionInput{
				FunctionName: aws.String(FunctionName),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Configuration.FunctionArn), nil
		},
		func(ctx context.Context) (string, error) {
			pkg, err := archive.Build(relaySource)
			if err != nil {
				return "", fmt.Errorf("build deployment package: %w", err)
			}
			out, err := p.clients.Lambda.CreateFunction(ctx, &lambdasvc.CreateFunctionInput{
				FunctionName: aws.String(FunctionName),
				Role:         aws.String(roleArn),
				Runtime:      lambdatypes.RuntimePython312,
				Handler:      aws.String("index.handler"),
				Code:         &lambdatypes.FunctionCode{ZipFile: pkg},
				Timeout:      aws.Int32(30),
				MemorySize:   aws.Int32(128),
				Environment: &lambdatypes.Environment{
					Variables: map[string]string{"PROCESSOR_FUNCTION_ARN": p.processorArn},
				},
				Description: aws.String("Relays WAF log events to the central processor"),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.FunctionArn), nil
		},
	)
}

// ensureInvokePermission grants the regional logs principal the right to
// invoke the forwarder. A conflict means a concurrent provisioner won the
// race; the statement id's presence in the function policy is the contract
// that the grant exists.
func (p *Provisioner) ensureInvokePermission(ctx context.Context) error {
	_, err := p.clients.Lambda.AddPermission(ctx, &lambdasvc.AddPermissionInput{
		FunctionName:  aws.String(FunctionName),
		StatementId:   aws.String(InvokePermissionSid),
		Action:        aws.String("lambda:InvokeFunction"),
		Principal:     aws.String(LogsServicePrincipal(p.region)),
		SourceAccount: aws.String(p.centralAccountID),
	})
	if err == nil {
		return nil
	}
	if !awsx.IsAlreadyExists(err) {
		return err
	}

	out, perr := p.clients.Lambda.GetPolicy(ctx, &lambdasvc.GetPolicyInput{
		FunctionName: aws.String(FunctionName),
	})
	if perr != nil {
		return fmt.Errorf("verify existing invoke permission: %w", perr)
	}
	if !strings.Contains(aws.ToString(out.Policy), InvokePermissionSid) {
		return fmt.Errorf("permission conflict but statement %s missing: %w", InvokePermissionSid, err)
	}
	return nil
}

func (p *Provisioner) ensureDestinationRole(ctx context.Context, fnArn string) (string, error) {
	return ensure.Resource(ctx,
		func(ctx context.Context) (string, error) {
			out, err := p.clients.IAM.GetRole(ctx, &iamsvc.GetRoleInput{RoleName: aws.String(DestinationRoleName)})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Role.Arn), nil
		},
		func(ctx context.Context) (string, error) {
			trust, err := awsx.MarshalPolicy(servicePrincipalTrust(LogsServicePrincipal(p.region)))
			if err != nil {
				return "", err
			}
			out, err := p.clients.IAM.CreateRole(ctx, &iamsvc.CreateRoleInput{
				RoleName:                 aws.String(DestinationRoleName),
				AssumeRolePolicyDocument: aws.String(trust),
				Description:              aws.String("Assumed by the log destination to invoke the WAF log forwarder"),
			})
			if err != nil {
				return "", err
			}

			policy, err := awsx.MarshalPolicy(awsx.PolicyDocument{
				Version: "2012-10-17",
				Statement: []awsx.PolicyStatement{{
					Effect:   "Allow",
					Action:   awsx.StringList{"lambda:InvokeFunction"},
					Resource: awsx.StringList{fnArn},
				}},
			})
			if err != nil {
				return "", err
			}
			if _, err := p.clients.IAM.PutRolePolicy(ctx, &iamsvc.PutRolePolicyInput{
				RoleName:       aws.String(DestinationRoleName),
				PolicyName:     aws.String(destinationPolicyName),
				PolicyDocument: aws.String(policy),
			}); err != nil {
				return "", fmt.Errorf("attach destination inline policy: %w", err)
			}

			return aws.ToString(out.Role.Arn), nil
		},
	)
}

func (p *Provisioner) ensureDestination(ctx context.Context, fnArn, destRoleArn string) (string, error) {
	if arn, ok, err := p.DestinationExists(ctx); err != nil {
		return "", err
	} else if ok {
		return arn, nil
	}

	out, err := p.clients.Logs.PutDestination(ctx, &logssvc.PutDestinationInput{
		DestinationName: aws.String(DestinationName),
		RoleArn:         aws.String(destRoleArn),
		TargetArn:       aws.String(fnArn),
	})
	if err != nil {
		return "", fmt.Errorf("put destination: %w", err)
	}
	destArn := aws.ToString(out.Destination.Arn)

	// Initial access policy names only the central account. Tenant accounts
	// are granted later, additively, when their pipeline is enabled.
	policy, err := awsx.MarshalPolicy(awsx.PolicyDocument{
		Version: "2012-10-17",
		Statement: []awsx.PolicyStatement{{
			Sid:       initialAccessSid,
			Effect:    "Allow",
			Principal: &awsx.Principal{AWS: awsx.StringList{p.centralAccountID}},
			Action:    awsx.StringList{"logs:PutSubscriptionFilter"},
			Resource:  awsx.StringList{destArn},
		}},
	})
	if err != nil {
		return "", err
	}
	if _, err := p.clients.Logs.PutDestinationPolicy(ctx, &logssvc.PutDestinationPolicyInput{
		DestinationName: aws.String(DestinationName),
		AccessPolicy:    aws.String(policy),
	}); err != nil {
		return "", fmt.Errorf("put destination policy: %w", err)
	}

	return destArn, nil
}

func servicePrincipalTrust(service string) awsx.PolicyDocument {
	return awsx.PolicyDocument{
		Version: "2012-10-17",
		Statement: []awsx.PolicyStatement{{
			Effect:    "Allow",
			Principal: &awsx.Principal{Service: awsx.StringList{service}},
			Action:    awsx.StringList{"sts:AssumeRole"},
		}},
	}
}
