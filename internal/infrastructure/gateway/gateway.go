// Package gateway - адаптеры внешних платёжных провайдеров.
package gateway

import (
	"fmt"

	"github.com/novafin/wallet/internal/application/ports"
	"github.com/novafin/wallet/internal/domain/entities"
	domainErrors "github.com/novafin/wallet/internal/domain/errors"
)

// Registry - реестр шлюзов по идентификатору провайдера.
// Неизвестный или незарегистрированный провайдер - UNSUPPORTED.
type Registry struct {
	gateways map[entities.Provider]ports.PaymentGateway
}

// NewRegistry собирает реестр из переданных шлюзов.
func NewRegistry(gateways ...ports.PaymentGateway) *Registry {
	m := make(map[entities.Provider]ports.PaymentGateway, len(gateways))
	for _, g := range gateways {
		m[g.Provider()] = g
	}
	return &Registry{gateways: m}
}

// Get возвращает шлюз провайдера.
func (r *Registry) Get(provider entities.Provider) (ports.PaymentGateway, error) {
	g, ok := r.gateways[provider]
	if !ok {
		return nil, domainErrors.New(domainErrors.KindUnsupported,
			fmt.Sprintf("payment provider %q is not supported", provider),
			domainErrors.ErrUnsupportedGateway)
	}
	return g, nil
}
