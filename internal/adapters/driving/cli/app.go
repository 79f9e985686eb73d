package cli

import (
	"fmt"

	"github.com/lectern-labs/lectern/internal/adapters/driven/config/file"
	"github.com/lectern-labs/lectern/internal/adapters/driven/harvest"
	"github.com/lectern-labs/lectern/internal/adapters/driven/search/sqlitefts"
	"github.com/lectern-labs/lectern/internal/adapters/driven/storage/sqlite"
	"github.com/lectern-labs/lectern/internal/core/domain"
	"github.com/lectern-labs/lectern/internal/core/services"
)

// app holds the assembled application: config, stores, index and the
// core services, ready to be driven by a command.
type app struct {
	config  *file.Config
	store   *sqlite.Store
	index   *sqlitefts.Index
	daemon  *services.SyncDaemon
	indexer *services.Indexer
	query   *services.QueryService
	realms  *services.RealmService
}

// newApp loads the configuration and assembles the services. The
// --data-dir flag overrides the configured data directory.
func newApp() (*app, error) {
	config, err := file.Load(configPath)
	if err != nil {
		return nil, err
	}

	dir := config.Storage.DataDir
	if dataDir != "" {
		dir = dataDir
	}

	store, err := sqlite.NewStore(dir)
	if err != nil {
		return nil, err
	}

	index, err := sqlitefts.NewIndex(dir)
	if err != nil {
		store.Close()
		return nil, err
	}

	var client *harvest.Client
	if config.Harvest.URL != "" {
		client, err = harvest.NewClient(harvest.Options{
			BaseURL:           config.Harvest.URL,
			Timeout:           config.Harvest.Timeout.Std(),
			PreferredAmount:   config.Harvest.PreferredAmount,
			RequestsPerSecond: config.Harvest.RequestsPerSecond,
		})
		if err != nil {
			index.Close()
			store.Close()
			return nil, err
		}
	}

	access := domain.NewAccess(config.Auth.ModeratorRole)
	mirror := store.MirrorStore()
	realms := store.RealmStore()

	indexerConfig := services.DefaultIndexerConfig()
	indexerConfig.Backoff = config.Backoff()
	indexer := services.NewIndexer(mirror, index, indexerConfig)

	var daemon *services.SyncDaemon
	if client != nil {
		daemon = services.NewSyncDaemon(client, mirror, store.CursorStore(), indexer, services.SyncConfig{
			PollInterval: config.Sync.PollInterval.Std(),
			Backoff:      config.Backoff(),
		})
	}

	return &app{
		config:  config,
		store:   store,
		index:   index,
		daemon:  daemon,
		indexer: indexer,
		query:   services.NewQueryService(realms, mirror, index, access),
		realms:  services.NewRealmService(realms, access),
	}, nil
}

// requireDaemon errors when no harvest source is configured.
func (a *app) requireDaemon() (*services.SyncDaemon, error) {
	if a.daemon == nil {
		return nil, fmt.Errorf("%w: harvest.url is not configured", domain.ErrValidation)
	}
	return a.daemon, nil
}

func (a *app) close() {
	a.index.Close()
	a.store.Close()
}
