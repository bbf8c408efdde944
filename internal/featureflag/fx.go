package featureflag

import (
	"github.com/seftec/platform/internal/featureflag/broadcast"
	"github.com/seftec/platform/internal/featureflag/repository"
	"github.com/seftec/platform/internal/featureflag/service"
	"go.uber.org/fx"
)

var Module = fx.Module("featureflag.service",
	broadcast.Module,
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
