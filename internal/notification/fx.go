package notification

import (
	"github.com/smallbiznis/bizcore/internal/notification/live"
	"github.com/smallbiznis/bizcore/internal/notification/repository"
	"github.com/smallbiznis/bizcore/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(live.NewHub),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
