// Package pipeline enables WAF log forwarding inside a customer account and
// connects it to the central destination. Every step is idempotent; a failed
// run leaves partial resources in place for the next attempt to reuse.
package pipeline

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	wafv2svc "github.com/aws/aws-sdk-go-v2/service/wafv2"
	waftypes "github.com/aws/aws-sdk-go-v2/service/wafv2/types"
	"github.com/rs/zerolog"

	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/config"
	"github.com/evo-uds/wafmon/internal/ensure"
	"github.com/evo-uds/wafmon/internal/forwarder"
	"github.com/evo-uds/wafmon/internal/model"
)

// Step names, shared between fatal errors and the diagnostic report.
const (
	StepValidateACL        = "validate web ACL"
	StepLogGroup           = "create log group"
	StepResourcePolicy     = "attach log group resource policy"
	StepServiceRole        = "ensure WAF logging service role"
	StepLogDelivery        = "enable WAF log delivery"
	StepCentralInfra       = "ensure central forwarding infrastructure"
	StepDestinationGrant   = "grant destination access"
	StepDeliveryRole       = "ensure log delivery role"
	StepSubscriptionFilter = "create subscription filter"
)

const (
	resourcePolicyName = "evo-waf-log-delivery-write"
	deliveryPolicyName = "evo-waf-log-delivery-policy"
	logDeliveryService = "delivery.logs.amazonaws.com"
)

// Result is what a successful enable run produced.
type Result struct {
	LogGroupName   string
	FilterName     string
	DestinationArn string
}

// Enabler drives the customer-side pipeline for one account/region pair.
// customer holds clients scoped to the tenant's account, central holds
// clients for our own account in the same region.
type Enabler struct {
	customer         *awsx.ClientSet
	central          *awsx.ClientSet
	infra            *forwarder.Provisioner
	centralAccountID string
	tuning           config.Tuning
	sleep            Sleeper
	logger           zerolog.Logger
}

func NewEnabler(customer, central *awsx.ClientSet, infra *forwarder.Provisioner, centralAccountID string, tuning config.Tuning, logger zerolog.Logger) *Enabler {
	return &Enabler{
		customer:         customer,
		central:          central,
		infra:            infra,
		centralAccountID: centralAccountID,
		tuning:           tuning,
		sleep:            defaultSleeper,
		logger:           logger.With().Str("component", "pipeline").Logger(),
	}
}

// Enable runs the full pipeline for one web ACL. The returned error, if any,
// is a *StepError whose message is suitable for persisting verbatim.
func (e *Enabler) Enable(ctx context.Context, acl ACLRef, filterMode string) (Result, error) {
	log := e.logger.With().Str("web_acl", acl.Name).Str("account_id", acl.AccountID).Logger()

	if err := e.validateACL(ctx, acl); err != nil {
		return Result{}, err
	}

	logGroup := forwarder.LogGroupName(acl.Name)
	if err := e.ensureLogGroup(ctx, logGroup); err != nil {
		return Result{}, err
	}
	if err := e.attachResourcePolicy(ctx, acl, logGroup, log); err != nil {
		return Result{}, err
	}
	if err := e.ensureServiceLinkedRole(ctx); err != nil {
		return Result{}, err
	}

	if err := e.sleep(ctx, e.tuning.PolicyPropagationDelay); err != nil {
		return Result{}, stepErr(StepServiceRole, KindInfra, err)
	}

	if err := e.enableLogDelivery(ctx, acl, logGroup, filterMode, log); err != nil {
		return Result{}, err
	}

	destArn, err := e.infra.Ensure(ctx)
	if err != nil {
		return Result{}, stepErrHint(StepCentralInfra, KindInfra,
			"this is a fault in the central pipeline, not the customer account; try again later", err)
	}

	if err := e.grantDestinationAccess(ctx, acl.AccountID, destArn); err != nil {
		return Result{}, err
	}
	if err := e.sleep(ctx, e.tuning.DestinationGrantDelay); err != nil {
		return Result{}, stepErr(StepDestinationGrant, KindInfra, err)
	}

	roleArn, err := e.ensureDeliveryRole(ctx, acl, destArn)
	if err != nil {
		return Result{}, err
	}
	e.repairDeliveryRoleTrust(ctx, acl.Region, log)

	if err := e.putSubscriptionFilter(ctx, logGroup, destArn, roleArn, log); err != nil {
		return Result{}, err
	}

	log.Info().Str("log_group", logGroup).Str("destination", destArn).Msg("pipeline enabled")
	return Result{
		LogGroupName:   logGroup,
		FilterName:     forwarder.SubscriptionFilterName,
		DestinationArn: destArn,
	}, nil
}

func (e *Enabler) validateACL(ctx context.Context, acl ACLRef) error {
	_, err := e.customer.WAF.GetWebACL(ctx, &wafv2svc.GetWebACLInput{
		Name:  aws.String(acl.Name),
		Id:    aws.String(acl.ID),
		Scope: acl.Scope,
	})
	switch {
	case err == nil:
		return nil
	case awsx.IsNotFound(err):
		return stepErrHint(StepValidateACL, KindNotFound,
			"verify the web ACL still exists in the customer account", err)
	case awsx.IsAccessDenied(err):
		return stepErrHint(StepValidateACL, KindPermission,
			"the monitor role needs wafv2:GetWebACL in the customer account", err)
	default:
		return stepErr(StepValidateACL, KindInfra, err)
	}
}

func (e *Enabler) ensureLogGroup(ctx context.Context, logGroup string) error {
	_, err := e.customer.Logs.CreateLogGroup(ctx, &logssvc.CreateLogGroupInput{
		LogGroupName: aws.String(logGroup),
	})
	switch {
	case err == nil, awsx.IsAlreadyExists(err):
		return nil
	case awsx.IsAccessDenied(err):
		return stepErrHint(StepLogGroup, KindPermission,
			"the monitor role needs logs:CreateLogGroup in the customer account", err)
	default:
		return stepErr(StepLogGroup, KindInfra, err)
	}
}

// attachResourcePolicy lets the log-delivery service write WAF events into
// the log group, pinned to the customer account so another account cannot
// ride the grant. Only access denied is fatal here; the policy frequently
// already exists in an equivalent form.
func (e *Enabler) attachResourcePolicy(ctx context.Context, acl ACLRef, logGroup string, log zerolog.Logger) error {
	doc, err := awsx.MarshalPolicy(awsx.PolicyDocument{
		Version: "2012-10-17",
		Statement: []awsx.PolicyStatement{{
			Sid:       "AWSLogDeliveryWrite",
			Effect:    "Allow",
			Principal: &awsx.Principal{Service: awsx.StringList{logDeliveryService}},
			Action:    awsx.StringList{"logs:CreateLogStream", "logs:PutLogEvents"},
			Resource:  awsx.StringList{logGroupArn(acl, logGroup) + ":*"},
			Condition: map[string]any{
				"StringEquals": map[string]string{"aws:SourceAccount": acl.AccountID},
				"ArnLike":      map[string]string{"aws:SourceArn": fmt.Sprintf("arn:aws:logs:%s:%s:*", acl.Region, acl.AccountID)},
			},
		}},
	})
	if err != nil {
		return stepErr(StepResourcePolicy, KindInfra, err)
	}

	_, err = e.customer.Logs.PutResourcePolicy(ctx, &logssvc.PutResourcePolicyInput{
		PolicyName:     aws.String(resourcePolicyName),
		PolicyDocument: aws.String(doc),
	})
	switch {
	case err == nil:
		return nil
	case awsx.IsAccessDenied(err):
		return stepErrHint(StepResourcePolicy, KindPermission,
			"the monitor role needs logs:PutResourcePolicy in the customer account", err)
	default:
		log.Warn().Err(err).Msg("resource policy write failed, continuing")
		return nil
	}
}

// ensureServiceLinkedRole makes sure the provider-managed WAF logging role
// exists. Without it every later logging call fails, so a permission error
// here aborts before the expensive steps.
func (e *Enabler) ensureServiceLinkedRole(ctx context.Context) error {
	_, err := ensure.Resource(ctx,
		func(ctx context.Context) (string, error) {
			out, err := e.customer.IAM.GetRole(ctx, &iamsvc.GetRoleInput{
				RoleName: aws.String(forwarder.ServiceLinkedRoleName),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Role.Arn), nil
		},
		func(ctx context.Context) (string, error) {
			out, err := e.customer.IAM.CreateServiceLinkedRole(ctx, &iamsvc.CreateServiceLinkedRoleInput{
				AWSServiceName: aws.String(forwarder.ServiceLinkedRoleService),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Role.Arn), nil
		},
	)
	switch {
	case err == nil:
		return nil
	case awsx.IsAccessDenied(err):
		return stepErrHint(StepServiceRole, KindPermission,
			"the monitor role needs iam:GetRole and iam:CreateServiceLinkedRole in the customer account", err)
	default:
		return stepErr(StepServiceRole, KindInfra, err)
	}
}

// enableLogDelivery points the web ACL's logging at the log group. Invalid
// operation and access denied responses usually mean the service role or
// resource policy has not propagated yet, so those are retried on a fixed
// schedule.
func (e *Enabler) enableLogDelivery(ctx context.Context, acl ACLRef, logGroup, filterMode string, log zerolog.Logger) error {
	input := &wafv2svc.PutLoggingConfigurationInput{
		LoggingConfiguration: &waftypes.LoggingConfiguration{
			ResourceArn:           aws.String(acl.Arn),
			LogDestinationConfigs: []string{logGroupArn(acl, logGroup)},
			LoggingFilter:         loggingFilter(filterMode),
		},
	}

	var last error
	for attempt := 1; attempt <= e.tuning.LogDeliveryMaxAttempts; attempt++ {
		_, err := e.customer.WAF.PutLoggingConfiguration(ctx, input)
		if err == nil {
			return nil
		}
		if !awsx.IsInvalidOperation(err) && !awsx.IsAccessDenied(err) {
			return stepErr(StepLogDelivery, KindInfra, err)
		}
		last = err
		if attempt < e.tuning.LogDeliveryMaxAttempts {
			log.Debug().Err(err).Int("attempt", attempt).Msg("log delivery not accepted yet, retrying")
			if serr := e.sleep(ctx, e.tuning.LogDeliveryRetryDelay); serr != nil {
				return stepErr(StepLogDelivery, KindInfra, serr)
			}
		}
	}
	return stepErrHint(StepLogDelivery, KindTransient,
		fmt.Sprintf("gave up after %d attempts; the logging service role may still be propagating", e.tuning.LogDeliveryMaxAttempts), last)
}

// grantDestinationAccess adds the tenant account to the destination access
// policy. The update is additive: accounts already granted stay granted, and
// a repeat grant for the same account is a no-op.
func (e *Enabler) grantDestinationAccess(ctx context.Context, accountID, destArn string) error {
	out, err := e.central.Logs.DescribeDestinations(ctx, &logssvc.DescribeDestinationsInput{
		DestinationNamePrefix: aws.String(forwarder.DestinationName),
	})
	if err != nil {
		return stepErr(StepDestinationGrant, KindInfra, err)
	}

	var current string
	for _, d := range out.Destinations {
		if aws.ToString(d.DestinationName) == forwarder.DestinationName {
			current = aws.ToString(d.AccessPolicy)
			break
		}
	}

	doc := awsx.PolicyDocument{Version: "2012-10-17"}
	if current != "" {
		if doc, err = awsx.UnmarshalPolicy(current); err != nil {
			return stepErr(StepDestinationGrant, KindInfra, err)
		}
	}

	for i := range doc.Statement {
		st := &doc.Statement[i]
		if st.Principal == nil || !st.Action.Contains("logs:PutSubscriptionFilter") {
			continue
		}
		if st.Principal.AWS.Contains(accountID) {
			return nil
		}
		st.Principal.AWS = append(st.Principal.AWS, accountID)
		return e.putDestinationPolicy(ctx, doc)
	}

	doc.Statement = append(doc.Statement, awsx.PolicyStatement{
		Effect:    "Allow",
		Principal: &awsx.Principal{AWS: awsx.StringList{accountID}},
		Action:    awsx.StringList{"logs:PutSubscriptionFilter"},
		Resource:  awsx.StringList{destArn},
	})
	return e.putDestinationPolicy(ctx, doc)
}

func (e *Enabler) putDestinationPolicy(ctx context.Context, doc awsx.PolicyDocument) error {
	raw, err := awsx.MarshalPolicy(doc)
	if err != nil {
		return stepErr(StepDestinationGrant, KindInfra, err)
	}
	if _, err := e.central.Logs.PutDestinationPolicy(ctx, &logssvc.PutDestinationPolicyInput{
		DestinationName: aws.String(forwarder.DestinationName),
		AccessPolicy:    aws.String(raw),
	}); err != nil {
		return stepErr(StepDestinationGrant, KindInfra, err)
	}
	return nil
}

func (e *Enabler) ensureDeliveryRole(ctx context.Context, acl ACLRef, destArn string) (string, error) {
	arn, err := ensure.Resource(ctx,
		func(ctx context.Context) (string, error) {
			out, err := e.customer.IAM.GetRole(ctx, &iamsvc.GetRoleInput{
				RoleName: aws.String(forwarder.DeliveryRoleName),
			})
			if err != nil {
				return "", err
			}
			return aws.ToString(out.Role.Arn), nil
		},
		func(ctx context.Context) (string, error) {
			trust, err := awsx.MarshalPolicy(awsx.PolicyDocument{
				Version: "2012-10-17",
				Statement: []awsx.PolicyStatement{{
					Effect:    "Allow",
					Principal: &awsx.Principal{Service: awsx.StringList{forwarder.LogsServicePrincipal(acl.Region)}},
					Action:    awsx.StringList{"sts:AssumeRole"},
				}},
			})
			if err != nil {
				return "", err
			}
			out, err := e.customer.IAM.CreateRole(ctx, &iamsvc.CreateRoleInput{
				RoleName:                 aws.String(forwarder.DeliveryRoleName),
				AssumeRolePolicyDocument: aws.String(trust),
				Description:              aws.String("Assumed by CloudWatch Logs to deliver WAF events to the central destination"),
			})
			if err != nil {
				return "", err
			}

			policy, err := awsx.MarshalPolicy(awsx.PolicyDocument{
				Version: "2012-10-17",
				Statement: []awsx.PolicyStatement{{
					Effect:   "Allow",
					Action:   awsx.StringList{"logs:PutLogEvents"},
					Resource: awsx.StringList{destArn},
				}},
			})
			if err != nil {
				return "", err
			}
			if _, err := e.customer.IAM.PutRolePolicy(ctx, &iamsvc.PutRolePolicyInput{
				RoleName:       aws.String(forwarder.DeliveryRoleName),
				PolicyName:     aws.String(deliveryPolicyName),
				PolicyDocument: aws.String(policy),
			}); err != nil {
				return "", fmt.Errorf("attach delivery inline policy: %w", err)
			}

			return aws.ToString(out.Role.Arn), nil
		},
	)
	switch {
	case err == nil:
		return arn, nil
	case awsx.IsAccessDenied(err):
		return "", stepErrHint(StepDeliveryRole, KindPermission,
			"the monitor role needs iam:CreateRole and iam:PutRolePolicy in the customer account", err)
	default:
		return "", stepErr(StepDeliveryRole, KindInfra, err)
	}
}

// repairDeliveryRoleTrust widens a pre-existing delivery role's trust policy
// to include the regional logs principal. Roles created before multi-region
// support only trust the principal of their original region. Best effort:
// a failure is logged, not fatal.
func (e *Enabler) repairDeliveryRoleTrust(ctx context.Context, region string, log zerolog.Logger) {
	principal := forwarder.LogsServicePrincipal(region)

	out, err := e.customer.IAM.GetRole(ctx, &iamsvc.GetRoleInput{
		RoleName: aws.String(forwarder.DeliveryRoleName),
	})
	if err != nil {
		log.Warn().Err(err).Msg("trust repair: get delivery role failed")
		return
	}

	raw, err := url.QueryUnescape(aws.ToString(out.Role.AssumeRolePolicyDocument))
	if err != nil {
		log.Warn().Err(err).Msg("trust repair: decode trust policy failed")
		return
	}
	doc, err := awsx.UnmarshalPolicy(raw)
	if err != nil {
		log.Warn().Err(err).Msg("trust repair: parse trust policy failed")
		return
	}

	for i := range doc.Statement {
		st := &doc.Statement[i]
		if st.Principal == nil || len(st.Principal.Service) == 0 {
			continue
		}
		if st.Principal.Service.Contains(principal) {
			return
		}
		st.Principal.Service = append(st.Principal.Service, principal)
		updated, err := awsx.MarshalPolicy(doc)
		if err != nil {
			log.Warn().Err(err).Msg("trust repair: marshal trust policy failed")
			return
		}
		if _, err := e.customer.IAM.UpdateAssumeRolePolicy(ctx, &iamsvc.UpdateAssumeRolePolicyInput{
			RoleName:       aws.String(forwarder.DeliveryRoleName),
			PolicyDocument: aws.String(updated),
		}); err != nil {
			log.Warn().Err(err).Str("principal", principal).Msg("trust repair: update failed")
			return
		}
		log.Info().Str("principal", principal).Msg("delivery role trust widened to regional principal")
		return
	}
}

// putSubscriptionFilter points the log group at the central destination.
// Filters are not patchable, so a same-name filter is deleted first. The
// only retriable failure is the destination test-message probe, which lags
// behind the access-policy grant.
func (e *Enabler) putSubscriptionFilter(ctx context.Context, logGroup, destArn, roleArn string, log zerolog.Logger) error {
	existing, err := e.customer.Logs.DescribeSubscriptionFilters(ctx, &logssvc.DescribeSubscriptionFiltersInput{
		LogGroupName:     aws.String(logGroup),
		FilterNamePrefix: aws.String(forwarder.SubscriptionFilterName),
	})
	if err != nil && !awsx.IsNotFound(err) {
		return stepErr(StepSubscriptionFilter, KindInfra, err)
	}
	if existing != nil {
		for _, f := range existing.SubscriptionFilters {
			if aws.ToString(f.FilterName) != forwarder.SubscriptionFilterName {
				continue
			}
			if _, err := e.customer.Logs.DeleteSubscriptionFilter(ctx, &logssvc.DeleteSubscriptionFilterInput{
				LogGroupName: aws.String(logGroup),
				FilterName:   aws.String(forwarder.SubscriptionFilterName),
			}); err != nil && !awsx.IsNotFound(err) {
				return stepErr(StepSubscriptionFilter, KindInfra, err)
			}
		}
	}

	input := &logssvc.PutSubscriptionFilterInput{
		LogGroupName:   aws.String(logGroup),
		FilterName:     aws.String(forwarder.SubscriptionFilterName),
		FilterPattern:  aws.String(""),
		DestinationArn: aws.String(destArn),
		RoleArn:        aws.String(roleArn),
	}

	var last error
	for attempt := 1; attempt <= e.tuning.FilterMaxAttempts; attempt++ {
		_, err := e.customer.Logs.PutSubscriptionFilter(ctx, input)
		if err == nil {
			return nil
		}
		if !awsx.IsDeliveryTestFailure(err) {
			if awsx.IsAccessDenied(err) {
				return stepErrHint(StepSubscriptionFilter, KindPermission,
					"the monitor role needs logs:PutSubscriptionFilter in the customer account", err)
			}
			return stepErr(StepSubscriptionFilter, KindInfra, err)
		}
		last = err
		if attempt < e.tuning.FilterMaxAttempts {
			log.Debug().Err(err).Int("attempt", attempt).Msg("destination not reachable yet, retrying")
			if serr := e.sleep(ctx, e.tuning.FilterRetryDelay); serr != nil {
				return stepErr(StepSubscriptionFilter, KindInfra, serr)
			}
		}
	}
	return stepErrHint(StepSubscriptionFilter, KindTransient,
		fmt.Sprintf("gave up after %d attempts; the destination policy may still be propagating", e.tuning.FilterMaxAttempts), last)
}

func logGroupArn(acl ACLRef, logGroup string) string {
	return fmt.Sprintf("arn:aws:logs:%s:%s:log-group:%s", acl.Region, acl.AccountID, logGroup)
}

// loggingFilter builds the WAF severity filter for a mode. all_requests
// forwards everything and needs no filter at all.
func loggingFilter(mode string) *waftypes.LoggingFilter {
	var actions []waftypes.ActionValue
	switch mode {
	case model.FilterModeBlockOnly:
		actions = []waftypes.ActionValue{waftypes.ActionValueBlock, waftypes.ActionValueCount}
	case model.FilterModeHybrid:
		actions = []waftypes.ActionValue{
			waftypes.ActionValueBlock,
			waftypes.ActionValueCount,
			waftypes.ActionValueCaptcha,
			waftypes.ActionValueChallenge,
		}
	default:
		return nil
	}

	conditions := make([]waftypes.Condition, 0, len(actions))
	for _, a := range actions {
		conditions = append(conditions, waftypes.Condition{
			ActionCondition: &waftypes.ActionCondition{Action: a},
		})
	}
	return &waftypes.LoggingFilter{
		DefaultBehavior: waftypes.FilterBehaviorDrop,
		Filters: []waftypes.Filter{{
			Behavior:    waftypes.FilterBehaviorKeep,
			Requirement: waftypes.FilterRequirementMeetsAny,
			Conditions:  conditions,
		}},
	}
}
