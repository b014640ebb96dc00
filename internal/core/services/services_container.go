package services

import (
	portsclients "github.com/flockpay/xero_adapter_app/internal/core/ports/clients"
	portsrepo "github.com/flockpay/xero_adapter_app/internal/core/ports/repositories"
	portssvc "github.com/flockpay/xero_adapter_app/internal/core/ports/services"
)

// ContainerDeps carries everything the service layer is built from.
type ContainerDeps struct {
	AccountID     string
	PortalBaseURL string

	Source   portsclients.SourceClient
	Sink     portsclients.SinkClient
	Feeds    portsclients.BankFeedsClient
	SinkAuth portsclients.SinkAuthClient

	Repos *portsrepo.RepositoryProvider
}

// NewServiceContainer wires the full service graph in dependency order.
func NewServiceContainer(deps ContainerDeps) *portssvc.ServiceContainer {
	entities := NewEntitiesService(deps.Sink)
	syncSvc := NewSyncService(deps.Sink, deps.Source)
	bankFeed := NewBankFeedService(deps.AccountID, deps.Feeds, deps.Repos.FeedConnectionRepo, deps.Repos.FeedStatementRepo)
	exporter := NewExportService(deps.AccountID, deps.PortalBaseURL, deps.Source, entities, bankFeed, syncSvc)
	connection := NewConnectionService(deps.AccountID, deps.SinkAuth, deps.Repos.AccountRepo, entities, syncSvc, exporter)

	return &portssvc.ServiceContainer{
		Exporter:   exporter,
		Entities:   entities,
		BankFeed:   bankFeed,
		Sync:       syncSvc,
		Connection: connection,
	}
}
