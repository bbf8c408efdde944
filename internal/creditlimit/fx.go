package creditlimit

import (
	"github.com/seftec/platform/internal/creditlimit/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("creditlimit",
	fx.Provide(repository.Provide),
)
