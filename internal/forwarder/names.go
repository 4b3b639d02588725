package forwarder

import "fmt"

// Fixed resource names. Pre-existing deployments were provisioned with these
// exact strings, so they are part of the external contract and must never
// change.
const (
	// FunctionName is the per-region forwarder Lambda in the central account.
	FunctionName = "evo-waf-log-forwarder"
	// ExecRoleName is the forwarder's execution role.
	ExecRoleName = "evo-waf-log-forwarder-role"
	// DestinationRoleName is assumed by the CloudWatch Logs destination to
	// invoke the forwarder.
	DestinationRoleName = "evo-waf-log-destination-role"
	// DestinationName is the cross-account log destination tenants
	// subscribe their log groups to.
	DestinationName = "evo-waf-log-destination"
	// SubscriptionFilterName is the customer-side filter pointing a WAF log
	// group at the regional destination.
	SubscriptionFilterName = "evo-waf-log-filter"
	// DeliveryRoleName is the per-tenant role, in the customer account, that
	// CloudWatch Logs assumes to write into the destination.
	DeliveryRoleName = "evo-waf-log-delivery-role"

	// InvokePermissionSid is the statement id of the forwarder's
	// resource-level invoke grant. Its presence in the function policy is
	// how a lost create race is recognized.
	InvokePermissionSid = "evo-waf-logs-invoke"

	// LogGroupPrefix is mandated by WAFv2: logging destinations must be
	// named aws-waf-logs-*.
	LogGroupPrefix = "aws-waf-logs-"

	// ServiceLinkedRoleName is the provider-managed role WAFv2 logging
	// requires before it can write to any destination.
	ServiceLinkedRoleName = "AWSServiceRoleForWAFV2Logging"
	// ServiceLinkedRoleService is the service principal that owns it.
	ServiceLinkedRoleService = "wafv2.amazonaws.com"
)

// LogGroupName returns the mandated aws-waf-logs-* log group name for a web ACL.
func LogGroupName(webACLName string) string {
	return LogGroupPrefix + webACLName
}

// LogsServicePrincipal is the regional CloudWatch Logs service principal.
func LogsServicePrincipal(region string) string {
	return fmt.Sprintf("logs.%s.amazonaws.com", region)
}

// DestinationArn builds the ARN of the regional destination in the central account.
func DestinationArn(region, centralAccountID string) string {
	return fmt.Sprintf("arn:aws:logs:%s:%s:destination:%s", region, centralAccountID, DestinationName)
}
