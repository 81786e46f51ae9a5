package finance

import (
	"github.com/smallbiznis/bizcore/internal/finance/repository"
	"github.com/smallbiznis/bizcore/internal/finance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("finance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
