package pipeline

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	logssvc "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	iamsvc "github.com/aws/aws-sdk-go-v2/service/iam"
	wafv2svc "github.com/aws/aws-sdk-go-v2/service/wafv2"

	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/forwarder"
	"github.com/evo-uds/wafmon/internal/model"
)

// Diagnose runs the pipeline's existence and permission probes without
// mutating anything the enable path would not safely recreate. Each step is
// reported rather than fatal, so support can see every unmet precondition in
// one pass. Steps that depend on the central destination are skipped when it
// is absent.
func (e *Enabler) Diagnose(ctx context.Context, acl ACLRef) []model.SetupStepResult {
	log := e.logger.With().Str("web_acl", acl.Name).Str("account_id", acl.AccountID).Logger()
	var report []model.SetupStepResult
	add := func(step, status, detail string) {
		report = append(report, model.SetupStepResult{Step: step, Status: status, Detail: detail})
	}

	if _, err := e.customer.WAF.GetWebACL(ctx, &wafv2svc.GetWebACLInput{
		Name:  aws.String(acl.Name),
		Id:    aws.String(acl.ID),
		Scope: acl.Scope,
	}); err != nil {
		add(StepValidateACL, model.StepFail, probeDetail(err))
	} else {
		add(StepValidateACL, model.StepOK, "web ACL found")
	}

	logGroup := forwarder.LogGroupName(acl.Name)
	// Safe to run for real: creating an existing log group is a no-op.
	if err := e.ensureLogGroup(ctx, logGroup); err != nil {
		add(StepLogGroup, model.StepFail, probeDetail(err))
	} else {
		add(StepLogGroup, model.StepOK, "log group "+logGroup+" present")
	}

	if err := e.attachResourcePolicy(ctx, acl, logGroup, log); err != nil {
		add(StepResourcePolicy, model.StepFail, probeDetail(err))
	} else {
		add(StepResourcePolicy, model.StepOK, "delivery resource policy in place")
	}

	if _, err := e.customer.IAM.GetRole(ctx, &iamsvc.GetRoleInput{
		RoleName: aws.String(forwarder.ServiceLinkedRoleName),
	}); err != nil {
		if awsx.IsNotFound(err) {
			add(StepServiceRole, model.StepFail, "service-linked role missing; it is created automatically on enable")
		} else {
			add(StepServiceRole, model.StepFail, probeDetail(err))
		}
	} else {
		add(StepServiceRole, model.StepOK, "service-linked role present")
	}

	if out, err := e.customer.WAF.GetLoggingConfiguration(ctx, &wafv2svc.GetLoggingConfigurationInput{
		ResourceArn: aws.String(acl.Arn),
	}); err != nil {
		if awsx.IsNotFound(err) {
			add(StepLogDelivery, model.StepFail, "log delivery not configured on the web ACL")
		} else {
			add(StepLogDelivery, model.StepFail, probeDetail(err))
		}
	} else {
		add(StepLogDelivery, model.StepOK,
			fmt.Sprintf("log delivery configured with %d destination(s)", len(out.LoggingConfiguration.LogDestinationConfigs)))
	}

	destArn, exists, err := e.infra.DestinationExists(ctx)
	switch {
	case err != nil:
		add(StepCentralInfra, model.StepFail, probeDetail(err))
	case !exists:
		add(StepCentralInfra, model.StepFail, "central destination not provisioned in this region")
	default:
		add(StepCentralInfra, model.StepOK, "central destination present")
	}
	if !exists {
		add(StepDestinationGrant, model.StepSkip, "no destination to inspect")
	} else if granted, err := e.destinationGrantsAccount(ctx, acl.AccountID); err != nil {
		add(StepDestinationGrant, model.StepFail, probeDetail(err))
	} else if !granted {
		add(StepDestinationGrant, model.StepFail, "account not granted on the destination policy")
	} else {
		add(StepDestinationGrant, model.StepOK, "account granted on the destination policy")
	}

	if _, err := e.customer.IAM.GetRole(ctx, &iamsvc.GetRoleInput{
		RoleName: aws.String(forwarder.DeliveryRoleName),
	}); err != nil {
		if awsx.IsNotFound(err) {
			add(StepDeliveryRole, model.StepFail, "delivery role missing; it is created automatically on enable")
		} else {
			add(StepDeliveryRole, model.StepFail, probeDetail(err))
		}
	} else {
		add(StepDeliveryRole, model.StepOK, "delivery role present")
	}

	if !exists {
		add(StepSubscriptionFilter, model.StepSkip, "no destination to subscribe to")
		return report
	}
	filters, err := e.customer.Logs.DescribeSubscriptionFilters(ctx, &logssvc.DescribeSubscriptionFiltersInput{
		LogGroupName:     aws.String(logGroup),
		FilterNamePrefix: aws.String(forwarder.SubscriptionFilterName),
	})
	switch {
	case err != nil:
		add(StepSubscriptionFilter, model.StepFail, probeDetail(err))
	case subscribedTo(filters, destArn):
		add(StepSubscriptionFilter, model.StepOK, "subscription filter points at the central destination")
	default:
		add(StepSubscriptionFilter, model.StepFail, "subscription filter absent or pointing elsewhere")
	}
	return report
}

func (e *Enabler) destinationGrantsAccount(ctx context.Context, accountID string) (bool, error) {
	out, err := e.central.Logs.DescribeDestinations(ctx, &logssvc.DescribeDestinationsInput{
		DestinationNamePrefix: aws.String(forwarder.DestinationName),
	})
	if err != nil {
		return false, err
	}
	for _, d := range out.Destinations {
		if aws.ToString(d.DestinationName) != forwarder.DestinationName {
			continue
		}
		policy := aws.ToString(d.AccessPolicy)
		if policy == "" {
			return false, nil
		}
		doc, err := awsx.UnmarshalPolicy(policy)
		if err != nil {
			return false, err
		}
		for _, st := range doc.Statement {
			if st.Principal != nil && st.Principal.AWS.Contains(accountID) {
				return true, nil
			}
		}
	}
	return false, nil
}

func subscribedTo(out *logssvc.DescribeSubscriptionFiltersOutput, destArn string) bool {
	for _, f := range out.SubscriptionFilters {
		if aws.ToString(f.FilterName) == forwarder.SubscriptionFilterName &&
			aws.ToString(f.DestinationArn) == destArn {
			return true
		}
	}
	return false
}

func probeDetail(err error) string {
	return err.Error()
}
