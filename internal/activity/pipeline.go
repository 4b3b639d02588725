package activity

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/evo-uds/wafmon/internal/awsx"
	"github.com/evo-uds/wafmon/internal/config"
	"github.com/evo-uds/wafmon/internal/pipeline"
)

// Pipeline contains activities that run the cloud-side provisioning work.
type Pipeline struct {
	resolver awsx.CredentialResolver
	clients  awsx.ClientFactory
	cfg      *config.Config
	logger   zerolog.Logger
}

// NewPipeline creates a new Pipeline activity struct.
func NewPipeline(resolver awsx.CredentialResolver, clients awsx.ClientFactory, cfg *config.Config, logger zerolog.Logger) *Pipeline {
	return &Pipeline{resolver: resolver, clients: clients, cfg: cfg, logger: logger}
}

// EnablePipelineParams holds the parameters for EnableWafLogPipeline.
type EnablePipelineParams struct {
	ConfigID   string
	AccountID  string
	WebACLArn  string
	FilterMode string
}

// EnablePipelineResult is what a successful pipeline run produced.
type EnablePipelineResult struct {
	LogGroupName   string
	FilterName     string
	DestinationArn string
}

// EnableWafLogPipeline runs the full customer pipeline for one web ACL. The
// pipeline manages its own retry budgets, so the workflow schedules this
// activity with a single attempt and a generous timeout.
func (a *Pipeline) EnableWafLogPipeline(ctx context.Context, params EnablePipelineParams) (*EnablePipelineResult, error) {
	acl, err := pipeline.ParseWebACLArn(params.WebACLArn)
	if err != nil {
		return nil, err
	}

	log := a.logger.With().Str("config_id", params.ConfigID).Logger()
	enabler, err := pipeline.NewForAccount(ctx, a.resolver, a.clients, params.AccountID, acl.Region,
		a.cfg.CentralAccountID, a.cfg.ProcessorFunctionArn, a.cfg.Tuning, log)
	if err != nil {
		return nil, err
	}

	res, err := enabler.Enable(ctx, acl, params.FilterMode)
	if err != nil {
		return nil, err
	}
	return &EnablePipelineResult{
		LogGroupName:   res.LogGroupName,
		FilterName:     res.FilterName,
		DestinationArn: res.DestinationArn,
	}, nil
}
