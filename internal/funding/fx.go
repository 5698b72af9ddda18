package funding

import (
	"github.com/principalgrid/billing/internal/funding/service"
	"go.uber.org/fx"
)

var Module = fx.Module("funding.service",
	fx.Provide(service.NewService),
)
