// Package sequencia entrega números de documento estritamente crescentes por
// (CNPJ do emitente, modelo, série). Este é o único ponto de sincronização do
// motor: tudo depois da alocação do número é paralelizável por nota.
package sequencia

import (
	"context"
	"fmt"
	"sync"

	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
)

// Alocador entrega o próximo número da série. Implementações precisam ser
// seguras sob chamadores concorrentes: nunca repetir nem pular para trás.
type Alocador interface {
	Proximo(ctx context.Context, cnpj string, modelo fiscal.Modelo, serie uint16) (uint32, error)
}

func chaveSerie(cnpj string, modelo fiscal.Modelo, serie uint16) string {
	return fmt.Sprintf("%s-%s-%03d", cnpj, modelo, serie)
}

// Memoria é o alocador em memória, para testes e emissão avulsa em
// homologação. Serializa com mutex simples.
type Memoria struct {
	mu     sync.Mutex
	ultimo map[string]uint32
}

func NewMemoria() *Memoria {
	return &Memoria{ultimo: make(map[string]uint32)}
}

func (m *Memoria) Proximo(_ context.Context, cnpj string, modelo fiscal.Modelo, serie uint16) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	chave := chaveSerie(cnpj, modelo, serie)
	proximo := m.ultimo[chave] + 1
	if proximo > 999999999 {
		return 0, fmt.Errorf("série %s esgotou os 9 dígitos: %w", chave, fiscal.ErrCampoInvalido)
	}
	m.ultimo[chave] = proximo
	return proximo, nil
}
