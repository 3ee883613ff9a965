package fiscal

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// justificativaMinima é o tamanho mínimo exigido pelo layout do evento de
// cancelamento.
const justificativaMinima = 15

// NovoCancelamento constrói o pedido de cancelamento de uma nota AUTORIZADA.
// O pedido referencia a nota apenas pela chave e pelo protocolo de
// autorização; o snapshot autorizado permanece imutável.
func NovoCancelamento(nota *Nota, justificativa string, agora time.Time) (*Cancelamento, error) {
	if nota == nil {
		return nil, fmt.Errorf("nota não informada: %w", ErrValidacao)
	}
	if nota.Status != StatusAutorizada {
		return nil, fmt.Errorf("cancelamento exige nota AUTORIZADA, estado atual %s: %w", nota.Status, ErrEstadoInvalido)
	}
	if nota.Protocolo == "" {
		return nil, fmt.Errorf("nota autorizada sem protocolo: %w", ErrEstadoInvalido)
	}
	if utf8.RuneCountInString(justificativa) < justificativaMinima {
		return nil, fmt.Errorf("justificativa com %d caracteres: %w", utf8.RuneCountInString(justificativa), ErrJustificativaCurta)
	}
	return &Cancelamento{
		Chave:         nota.Chave,
		Protocolo:     nota.Protocolo,
		Justificativa: justificativa,
		SolicitadoEm:  agora,
	}, nil
}
