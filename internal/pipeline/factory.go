package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/config"
	"github.com/evo-uds/wafmon/internal/forwarder"
)

// NewForAccount resolves credentials for both sides of the pipeline and
// assembles an Enabler scoped to one customer account and region. The worker
// and the diagnostic endpoint both build enablers through here so they run
// identical steps.
func NewForAccount(ctx context.Context, resolver awsx.CredentialResolver, clients awsx.ClientFactory, accountID, region, centralAccountID, processorArn string, tuning config.Tuning, logger zerolog.Logger) (*Enabler, error) {
	customerCfg, err := resolver.CustomerConfig(ctx, accountID, region)
	if err != nil {
		return nil, fmt.Errorf("resolve customer credentials for %s: %w", accountID, err)
	}
	centralCfg, err := resolver.CentralConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("resolve central credentials: %w", err)
	}

	central := clients(centralCfg)
	infra := forwarder.NewProvisioner(central, region, centralAccountID, processorArn, logger)
	return NewEnabler(clients(customerCfg), central, infra, centralAccountID, tuning, logger), nil
}
