package infra

import (
	"context"
)

// SemaphorePool é um pool simples baseado em channel com capacidade fixa.
// Implementa domain.SlotPool.
type SemaphorePool struct {
	sem chan struct{}
}

// NewSemaphorePool cria um pool com capacidade `max` (mínimo 1).
func NewSemaphorePool(max int) *SemaphorePool {
	if max < 1 {
		max = 1
	}
	return &SemaphorePool{sem: make(chan struct{}, max)}
}

func (p *SemaphorePool) Acquire(ctx context.Context) (func(), bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}

// InUse retorna quantas vagas estão ocupadas agora.
func (p *SemaphorePool) InUse() int { return len(p.sem) }

// Cap retorna a capacidade total do pool.
func (p *SemaphorePool) Cap() int { return cap(p.sem) }
