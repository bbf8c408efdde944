package tradefinance

import (
	"github.com/seftec/platform/internal/tradefinance/repository"
	"github.com/seftec/platform/internal/tradefinance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tradefinance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
