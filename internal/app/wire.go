//go:build wireinject

package app

import (
	"github.com/google/wire"

	"stratgen/internal/config"
)

func buildAppWithWire(cfg *config.Config) (*App, func(), error) {
	wire.Build(
		provideStore,
		provideMonitor,
		provideModelProvider,
		provideGenerator,
		provideContextBuilder,
		provideReportService,
		provideHTTPServer,
		provideScheduler,
		newApp,
	)
	return nil, nil, nil
}
