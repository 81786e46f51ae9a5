package business

import (
	"github.com/smallbiznis/bizcore/internal/business/repository"
	"github.com/smallbiznis/bizcore/internal/business/service"
	"go.uber.org/fx"
)

var Module = fx.Module("business.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
