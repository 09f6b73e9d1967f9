package command

import (
	"fmt"

	"github.com/pixil98/go-service"
	"github.com/pixil98/go-worldserv/internal/driver"
	"github.com/pixil98/go-worldserv/internal/edits"
	"github.com/pixil98/go-worldserv/internal/game"
	"github.com/pixil98/go-worldserv/internal/inventory"
	"github.com/pixil98/go-worldserv/internal/listener"
	"github.com/pixil98/go-worldserv/internal/messaging"
	"github.com/pixil98/go-worldserv/internal/player"
	"github.com/pixil98/go-worldserv/internal/session"
	"github.com/pixil98/go-worldserv/internal/terrain"
	"github.com/pixil98/go-worldserv/internal/world"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// Embedded NATS server carries per-player broadcast delivery.
	natsServer, err := cfg.Nats.buildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}

	// Terrain view over the deterministic generator.
	gen := terrain.NewGenerator(cfg.World.Seed)
	view, err := world.NewView(gen, cfg.World.chunkSize(), cfg.World.maxTerrainChunks())
	if err != nil {
		return nil, fmt.Errorf("creating terrain view: %w", err)
	}

	// Persistent edit overlay.
	store, err := cfg.Store.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("creating placement store: %w", err)
	}
	editReg, err := edits.NewRegistry(store, cfg.World.chunkSize(), cfg.World.maxEditChunks())
	if err != nil {
		return nil, fmt.Errorf("creating edit registry: %w", err)
	}

	sessions := session.NewRegistry()
	ledger := inventory.NewLedger()
	worldSvc := game.NewWorldService(editReg, messaging.NewPlayerPublisher(natsServer))

	pm := player.NewManager(sessions, ledger, worldSvc, natsServer)
	cm := listener.NewConnectionManager(pm)

	// Create Listeners
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(cm)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	// Setup the maintenance driver
	var driverOpts []driver.WorldDriverOpt
	tickLength, err := cfg.tickLength()
	if err != nil {
		return nil, fmt.Errorf("parsing tick_interval: %w", err)
	}
	if tickLength > 0 {
		driverOpts = append(driverOpts, driver.WithTickLength(tickLength))
	}
	d := driver.NewWorldDriver([]driver.Manager{
		game.NewStatsReporter(sessions, view, editReg, worldSvc),
	}, driverOpts...)

	// Create a worker list
	return service.WorkerList{
		"nats":      natsServer,
		"driver":    d,
		"listeners": &listeners,
	}, nil
}
