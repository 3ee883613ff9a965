package fiscal

import (
	"errors"
	"fmt"
)

// Erros sentinela do motor fiscal. Todo erro retornado pelos componentes de
// montagem embrulha um destes, para que o chamador decida via errors.Is sem
// inspecionar mensagens.
var (
	// ErrCampoInvalido indica campo que não cabe na largura fixa exigida
	// pelo layout da chave/documento (ex: número >= 10^9, CNPJ != 14 dígitos).
	ErrCampoInvalido = errors.New("campo com largura ou formato inválido")

	// ErrValidacao indica dado de negócio ausente ou malformado, detectado
	// antes de qualquer trabalho de codificação.
	ErrValidacao = errors.New("dados da nota inválidos")

	// ErrSequenciaInvalida indica numeração de itens fora da ordem 1..n.
	ErrSequenciaInvalida = errors.New("numeração de itens inconsistente")

	// ErrTotalNegativo indica desconto maior que a soma dos demais termos.
	ErrTotalNegativo = errors.New("valor total da nota seria negativo")

	// ErrEstadoInvalido indica operação incompatível com o ciclo de vida da nota.
	ErrEstadoInvalido = errors.New("operação incompatível com o estado da nota")

	// ErrJustificativaCurta indica justificativa de cancelamento com menos
	// de 15 caracteres.
	ErrJustificativaCurta = errors.New("justificativa de cancelamento deve ter ao menos 15 caracteres")

	// ErrEmissaoEmAndamento indica que já existe uma transmissão em voo para
	// a mesma chave de acesso.
	ErrEmissaoEmAndamento = errors.New("já existe uma transmissão em andamento para esta chave")
)

// ErroColaborador embrulha falhas dos colaboradores externos (assinador e
// transporte). Retentavel distingue falha transitória de rejeição definitiva.
type ErroColaborador struct {
	Etapa      string // "assinatura" ou "transmissao"
	Retentavel bool
	Causa      error
}

func (e *ErroColaborador) Error() string {
	return fmt.Sprintf("falha de colaborador externo na etapa %s: %v", e.Etapa, e.Causa)
}

func (e *ErroColaborador) Unwrap() error { return e.Causa }

// Rejeicao carrega o código e o motivo devolvidos pela autoridade, repassados
// ao chamador sem tradução.
type Rejeicao struct {
	CStat  string
	Motivo string
}

func (r *Rejeicao) Error() string {
	return fmt.Sprintf("nota rejeitada pela autoridade (cStat %s): %s", r.CStat, r.Motivo)
}
