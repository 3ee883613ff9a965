package fiscal

import (
	"time"

	"github.com/shopspring/decimal"
)

// Modelo do documento fiscal: 55 = NF-e, 65 = NFC-e.
type Modelo string

const (
	ModeloNFe  Modelo = "55"
	ModeloNFCe Modelo = "65"
)

// Ambiente de emissão (tpAmb). O valor zero é propositalmente inválido: o
// chamador precisa escolher de forma explícita, nunca por omissão.
type Ambiente int

const (
	AmbienteProducao    Ambiente = 1
	AmbienteHomologacao Ambiente = 2
)

func (a Ambiente) Valido() bool {
	return a == AmbienteProducao || a == AmbienteHomologacao
}

// Status do ciclo de vida de uma nota.
type Status string

const (
	StatusRascunho   Status = "RASCUNHO"
	StatusMontada    Status = "MONTADA"
	StatusEnviada    Status = "ENVIADA"
	StatusAutorizada Status = "AUTORIZADA"
	StatusRejeitada  Status = "REJEITADA"
	StatusCancelada  Status = "CANCELADA"
	StatusFalhaEnvio Status = "FALHA_ENVIO"
)

// Identificacao reúne os dados que individualizam a nota. A tupla
// (CNPJ do emitente, modelo, série, número) deve ser única: repetir a tupla
// produziria chave de acesso colidente.
type Identificacao struct {
	Numero  uint32    `validate:"required"`
	Serie   uint16    `validate:"required"`
	Modelo  Modelo    `validate:"required,oneof=55 65"`
	Emissao time.Time `validate:"required"`
}

// Endereco de emitente ou destinatário.
type Endereco struct {
	Logradouro      string `json:"logradouro" validate:"required"`
	Numero          string `json:"numero" validate:"required"`
	Bairro          string `json:"bairro" validate:"required"`
	CodigoMunicipio string `json:"codigoMunicipio" validate:"required,numeric,len=7"`
	Municipio       string `json:"municipio" validate:"required"`
	CodigoUF        string `json:"codigoUF" validate:"required,numeric,len=2"`
	CEP             string `json:"cep" validate:"required,numeric,len=8"`
}

// Emitente da nota. Documento é sempre CNPJ (14 dígitos).
type Emitente struct {
	RazaoSocial       string   `json:"razaoSocial" validate:"required"`
	Documento         string   `json:"documento" validate:"required,numeric,len=14"`
	InscricaoEstadual string   `json:"inscricaoEstadual" validate:"required"`
	Endereco          Endereco `json:"endereco" validate:"required"`
}

// Destinatario da nota. Documento aceita CNPJ ou CPF. Na NFC-e o destinatário
// pode ser omitido por inteiro (consumidor não identificado).
type Destinatario struct {
	RazaoSocial string   `json:"razaoSocial" validate:"required"`
	Documento   string   `json:"documento" validate:"required,documento"`
	Endereco    Endereco `json:"endereco" validate:"required"`
}

// Item de uma nota, como fornecido pelo chamador. NumItem é 1-based e deve
// coincidir com a posição do item na sequência enviada.
type Item struct {
	NumItem       uint16          `json:"numItem"`
	Codigo        string          `json:"codigo" validate:"required"`
	Descricao     string          `json:"descricao" validate:"required"`
	NCM           string          `json:"ncm" validate:"required,numeric,len=8"`
	CFOP          string          `json:"cfop" validate:"required,numeric,len=4"`
	Unidade       string          `json:"unidade" validate:"required"`
	Quantidade    decimal.Decimal `json:"quantidade"`
	ValorUnitario decimal.Decimal `json:"valorUnitario"`
}

// ItemEncodado é o item já validado com seu subtotal calculado.
type ItemEncodado struct {
	Item
	ValorTotal decimal.Decimal
}

// Ajustes são os valores opcionais de nível de documento. Zero quando ausentes.
type Ajustes struct {
	Frete    decimal.Decimal `json:"frete"`
	Seguro   decimal.Decimal `json:"seguro"`
	Desconto decimal.Decimal `json:"desconto"`
}

// Totais agregados da nota. Cada termo é arredondado a 2 casas de forma
// independente antes da soma.
type Totais struct {
	ValorProdutos decimal.Decimal
	ValorFrete    decimal.Decimal
	ValorSeguro   decimal.Decimal
	ValorDesconto decimal.Decimal
	ValorNota     decimal.Decimal
}

// Nota é o documento fiscal montado. Depois de MONTADA a estrutura é tratada
// como imutável: mudanças de status geram registros novos referenciando a
// chave, nunca mutação do snapshot.
type Nota struct {
	Ident        Identificacao
	Emitente     Emitente
	Destinatario *Destinatario
	Itens        []ItemEncodado
	Ajustes      Ajustes
	Totais       Totais
	Chave        string
	Ambiente     Ambiente
	Status       Status
	Protocolo    string
	InfAdicional string
}

// Cancelamento referencia uma nota autorizada apenas por chave e protocolo.
type Cancelamento struct {
	Chave         string
	Protocolo     string
	Justificativa string
	SolicitadoEm  time.Time
}
