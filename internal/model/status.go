package model

// Monitoring configuration status constants.
const (
	StatusProvisioning = "provisioning"
	StatusActive       = "active"
	StatusError        = "error"
	StatusDisabled     = "disabled"
)

// Filter mode constants. block_only keeps only blocked/counted requests,
// all_requests forwards everything, hybrid additionally keeps CAPTCHA and
// challenge outcomes.
const (
	FilterModeBlockOnly   = "block_only"
	FilterModeAllRequests = "all_requests"
	FilterModeHybrid      = "hybrid"
)

// ValidFilterMode reports whether mode is one of the supported filter modes.
func ValidFilterMode(mode string) bool {
	switch mode {
	case FilterModeBlockOnly, FilterModeAllRequests, FilterModeHybrid:
		return true
	}
	return false
}
