package auth

import (
	"github.com/smallbiznis/bizcore/internal/auth/repository"
	"github.com/smallbiznis/bizcore/internal/auth/service"
	"github.com/smallbiznis/bizcore/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(token.NewManager),
	fx.Provide(service.New),
)
