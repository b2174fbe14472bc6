package services

import (
	"errors"
	"fmt"

	"github.com/rxtech-lab/nft-marketplace/internal/models"
)

type HookService interface {
	AddHook(hook Hook) error
	// OnTransactionConfirmed runs every matching hook and joins their errors.
	// A failing hook does not stop the others.
	OnTransactionConfirmed(event models.MarketEvent) error
}

type hookService struct {
	hooks []Hook
}

func NewHookService() HookService {
	return &hookService{
		hooks: []Hook{},
	}
}

func (h *hookService) AddHook(hook Hook) error {
	if hook == nil {
		return errors.New("hook is nil")
	}
	h.hooks = append(h.hooks, hook)
	return nil
}

func (h *hookService) OnTransactionConfirmed(event models.MarketEvent) error {
	var errs []error
	for _, hook := range h.hooks {
		if hook.CanHandle(event.Type) {
			if err := hook.OnTransactionConfirmed(event); err != nil {
				errs = append(errs, fmt.Errorf("%T: %w", hook, err))
			}
		}
	}
	return errors.Join(errs...)
}
