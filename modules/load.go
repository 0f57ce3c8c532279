package modules

import (
	"github.com/solarium-dev/solarium/modules/contracts"
	"github.com/solarium-dev/solarium/pkg/application"
)

var BuiltInModules = []application.Module{
	contracts.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range append(BuiltInModules, externalModules...) {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
