package fiscal

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Montador orquestra geração de chave, codificação de itens e totalização em
// uma Nota MONTADA. A montagem é tudo-ou-nada: qualquer falha de validação
// aborta sem expor documento parcial.
type Montador struct {
	chaves   *GeradorChave
	validate *validator.Validate
}

// NewMontador cria um montador usando o gerador de chaves informado (nil usa
// o gerador padrão com código numérico MD5).
func NewMontador(chaves *GeradorChave) *Montador {
	if chaves == nil {
		chaves = NewGeradorChave(nil)
	}
	v := validator.New()
	// "documento" aceita CNPJ (14 dígitos) ou CPF (11 dígitos).
	_ = v.RegisterValidation("documento", func(fl validator.FieldLevel) bool {
		doc := fl.Field().String()
		return soDigitos(doc) && (len(doc) == 11 || len(doc) == 14)
	})
	return &Montador{chaves: chaves, validate: v}
}

// Montar valida o payload de negócio e produz a nota imutável em estado
// MONTADA. Destinatario pode ser nil apenas para NFC-e (consumidor não
// identificado).
func (m *Montador) Montar(ident Identificacao, emitente Emitente, destinatario *Destinatario, itens []Item, ajustes Ajustes, ambiente Ambiente) (*Nota, error) {
	if !ambiente.Valido() {
		return nil, fmt.Errorf("ambiente de emissão não informado: %w", ErrValidacao)
	}
	if err := m.validate.Struct(ident); err != nil {
		return nil, fmt.Errorf("identificação da nota: %v: %w", err, ErrValidacao)
	}
	if err := m.validate.Struct(emitente); err != nil {
		return nil, fmt.Errorf("emitente: %v: %w", err, ErrValidacao)
	}
	if destinatario == nil {
		if ident.Modelo != ModeloNFCe {
			return nil, fmt.Errorf("destinatário é obrigatório no modelo %s: %w", ident.Modelo, ErrValidacao)
		}
	} else if err := m.validate.Struct(destinatario); err != nil {
		return nil, fmt.Errorf("destinatário: %v: %w", err, ErrValidacao)
	}
	if len(itens) == 0 {
		return nil, fmt.Errorf("nota sem itens: %w", ErrValidacao)
	}
	for i, item := range itens {
		if int(item.NumItem) != i+1 {
			return nil, fmt.Errorf("sequência de itens com salto ou repetição na posição %d (nItem %d): %w", i+1, item.NumItem, ErrValidacao)
		}
	}

	encodados := make([]ItemEncodado, 0, len(itens))
	for i, item := range itens {
		enc, err := EncodeItem(i+1, item)
		if err != nil {
			return nil, err
		}
		encodados = append(encodados, enc)
	}

	totais, err := CalcularTotais(encodados, ajustes)
	if err != nil {
		return nil, err
	}

	chave, err := m.chaves.Gerar(
		emitente.Endereco.CodigoUF,
		ident.Emissao.Format("0601"),
		emitente.Documento,
		ident.Modelo,
		ident.Serie,
		ident.Numero,
		formaEmissaoNormal,
	)
	if err != nil {
		return nil, err
	}

	return &Nota{
		Ident:        ident,
		Emitente:     emitente,
		Destinatario: destinatario,
		Itens:        encodados,
		Ajustes:      ajustes,
		Totais:       totais,
		Chave:        chave,
		Ambiente:     ambiente,
		Status:       StatusMontada,
	}, nil
}

// formaEmissaoNormal é o tpEmis padrão (emissão normal, sem contingência).
const formaEmissaoNormal = "1"
