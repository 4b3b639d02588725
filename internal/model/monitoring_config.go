package model

import "time"

// MonitoringConfiguration is one row per (tenant, web ACL) pair. Rows are
// upserted on enable, flipped to active/error by the worker, and soft-disabled
// on disable. They are never hard-deleted.
type MonitoringConfiguration struct {
	ID            string    `json:"id"`
	TenantID      string    `json:"tenant_id"`
	AccountID     string    `json:"account_id"`
	WebACLArn     string    `json:"web_acl_arn"`
	ResourceName  string    `json:"resource_name"`
	LogGroupName  string    `json:"log_group_name"`
	FilterMode    string    `json:"filter_mode"`
	FilterName    *string   `json:"filter_name,omitempty"`
	Status        string    `json:"status"`
	StatusMessage *string   `json:"status_message,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CandidateResource is a web ACL that could have monitoring enabled,
// discovered by scanning the tenant's account across regions.
type CandidateResource struct {
	Name      string `json:"name"`
	Arn       string `json:"arn"`
	Region    string `json:"region"`
	Monitored bool   `json:"monitored"`
}

// SetupStepStatus values reported by the diagnostic runner.
const (
	StepOK   = "ok"
	StepFail = "fail"
	StepSkip = "skip"
)

// SetupStepResult is one entry of the ordered diagnostic report.
type SetupStepResult struct {
	Step   string `json:"step"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}
