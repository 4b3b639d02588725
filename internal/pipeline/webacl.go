package pipeline

import (
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
	waftypes "github.com/aws/aws-sdk-go-v2/service/wafv2/types"
)

// ACLRef is a parsed web ACL ARN. The ARN encodes everything the WAFv2 API
// needs to address the ACL: scope, name, and id.
type ACLRef struct {
	Arn       string
	AccountID string
	Region    string
	Scope     waftypes.Scope
	Name      string
	ID        string
}

// ParseWebACLArn splits a wafv2 web ACL ARN of the form
// arn:aws:wafv2:<region>:<account>:{regional|global}/webacl/<name>/<id>.
func ParseWebACLArn(raw string) (ACLRef, error) {
	parsed, err := arn.Parse(raw)
	if err != nil {
		return ACLRef{}, fmt.Errorf("parse web ACL ARN %q: %w", raw, err)
	}
	if parsed.Service != "wafv2" {
		return ACLRef{}, fmt.Errorf("not a wafv2 ARN: %q", raw)
	}

	parts := strings.Split(parsed.Resource, "/")
	if len(parts) != 4 || parts[1] != "webacl" {
		return ACLRef{}, fmt.Errorf("not a web ACL ARN: %q", raw)
	}

	ref := ACLRef{
		Arn:       raw,
		AccountID: parsed.AccountID,
		Region:    parsed.Region,
		Name:      parts[2],
		ID:        parts[3],
	}
	switch parts[0] {
	case "regional":
		ref.Scope = waftypes.ScopeRegional
	case "global":
		ref.Scope = waftypes.ScopeCloudfront
	default:
		return ACLRef{}, fmt.Errorf("unknown web ACL scope %q in %q", parts[0], raw)
	}
	return ref, nil
}
