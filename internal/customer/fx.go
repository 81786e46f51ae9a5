package customer

import (
	"github.com/smallbiznis/bizcore/internal/customer/domain"
	"github.com/smallbiznis/bizcore/internal/customer/repository"
	"github.com/smallbiznis/bizcore/internal/customer/service"
	pkgrepository "github.com/smallbiznis/bizcore/pkg/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(pkgrepository.ProvideStore[domain.Customer]),
	fx.Provide(service.New),
)
