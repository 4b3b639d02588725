package core

import (
	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/evo-uds/wafmon/internal/awsx"
)

type Services struct {
	Monitoring *MonitoringService
	APIKey     *APIKeyService
}

func NewServices(db DB, tc temporalclient.Client, resolver awsx.CredentialResolver, clients awsx.ClientFactory, pipelines PipelineFactory, regions []string, logger zerolog.Logger) *Services {
	return &Services{
		Monitoring: NewMonitoringService(db, tc, resolver, clients, pipelines, regions, logger),
		APIKey:     NewAPIKeyService(db),
	}
}
