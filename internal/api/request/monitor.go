package request

// CreateWafMonitor is the request body for enabling WAF monitoring on a
// customer web ACL.
type CreateWafMonitor struct {
	AccountID  string `json:"account_id" validate:"required,aws_account_id"`
	WebACLArn  string `json:"web_acl_arn" validate:"required,startswith=arn:"`
	FilterMode string `json:"filter_mode" validate:"omitempty,oneof=block_only all_requests hybrid"`
}

// TestWafSetup is the request body for a read-only setup diagnosis.
type TestWafSetup struct {
	AccountID string `json:"account_id" validate:"required,aws_account_id"`
	WebACLArn string `json:"web_acl_arn" validate:"required,startswith=arn:"`
}
