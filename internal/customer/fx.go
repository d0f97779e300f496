package customer

import (
	"github.com/smallbiznis/invoiced/internal/customer/repository"
	"github.com/smallbiznis/invoiced/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
