package emissao

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Signer assina o documento serializado. A criptografia em si fica fora deste
// pacote; o coordenador só conhece o contrato.
type Signer interface {
	Assinar(ctx context.Context, documento []byte, cnpj string) ([]byte, error)
}

// Resultado é o desfecho normalizado de uma transmissão junto à autoridade.
type Resultado struct {
	Autorizada bool
	Protocolo  string
	CStat      string
	Motivo     string
}

// ResultadoCancelamento é o desfecho normalizado de um pedido de cancelamento.
type ResultadoCancelamento struct {
	Confirmado bool
	Protocolo  string
	CStat      string
	Motivo     string
}

// Transport envia documentos assinados à autoridade. Erros devolvidos aqui
// são tratados como falha transitória; rejeição de negócio vem no Resultado.
type Transport interface {
	Enviar(ctx context.Context, assinado []byte, chave string, ambiente fiscal.Ambiente) (Resultado, error)
	Cancelar(ctx context.Context, evento []byte, chave string, ambiente fiscal.Ambiente) (ResultadoCancelamento, error)
}

// Emissao registra o desfecho de uma tentativa de transmissão.
type Emissao struct {
	ID          string
	Chave       string
	Status      fiscal.Status
	Protocolo   string
	CStat       string
	Motivo      string
	ConcluidaEm time.Time
}

// Coordinator conduz a nota MONTADA pelas etapas de assinatura e transmissão:
// MONTADA -> assinando -> transmitindo -> {AUTORIZADA, REJEITADA, FALHA_ENVIO}.
// FALHA_ENVIO é retentável: a retransmissão é idempotente por chave de acesso.
// Nunca há mais de uma transmissão em voo para a mesma chave.
type Coordinator struct {
	signer    Signer
	transport Transport
	timeout   time.Duration
	log       *zap.Logger

	mu    sync.Mutex
	emVoo map[string]struct{}
}

// NewCoordinator cria um coordenador. timeout limita cada tentativa; zero
// desabilita o limite (o contexto do chamador ainda vale).
func NewCoordinator(signer Signer, transport Transport, timeout time.Duration, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		signer:    signer,
		transport: transport,
		timeout:   timeout,
		log:       log,
		emVoo:     make(map[string]struct{}),
	}
}

func (c *Coordinator) reservar(chave string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ocupada := c.emVoo[chave]; ocupada {
		return fmt.Errorf("chave %s: %w", chave, fiscal.ErrEmissaoEmAndamento)
	}
	c.emVoo[chave] = struct{}{}
	return nil
}

func (c *Coordinator) liberar(chave string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.emVoo, chave)
}

// Transmitir assina e envia a nota, devolvendo o desfecho normalizado.
// Rejeição pela autoridade não é erro de programa: vem no Emissao com o
// cStat/xMotivo originais. Falhas de colaborador voltam como FALHA_ENVIO com
// *fiscal.ErroColaborador, para o chamador decidir a retentativa.
func (c *Coordinator) Transmitir(ctx context.Context, nota *fiscal.Nota, documento []byte) (*Emissao, error) {
	if nota.Status != fiscal.StatusMontada && nota.Status != fiscal.StatusFalhaEnvio {
		return nil, fmt.Errorf("transmissão exige nota MONTADA ou FALHA_ENVIO, estado atual %s: %w", nota.Status, fiscal.ErrEstadoInvalido)
	}
	if !nota.Ambiente.Valido() {
		return nil, fmt.Errorf("ambiente de emissão não informado: %w", fiscal.ErrValidacao)
	}
	if err := c.reservar(nota.Chave); err != nil {
		return nil, err
	}
	defer c.liberar(nota.Chave)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	registro := &Emissao{ID: uuid.NewString(), Chave: nota.Chave}

	c.log.Info("assinando nota",
		zap.String("chave", nota.Chave),
		zap.String("emissao_id", registro.ID))
	assinado, err := c.signer.Assinar(ctx, documento, nota.Emitente.Documento)
	if err != nil {
		registro.Status = fiscal.StatusFalhaEnvio
		registro.ConcluidaEm = time.Now()
		return registro, &fiscal.ErroColaborador{Etapa: "assinatura", Retentavel: true, Causa: err}
	}

	c.log.Info("transmitindo nota",
		zap.String("chave", nota.Chave),
		zap.Int("ambiente", int(nota.Ambiente)))
	resultado, err := c.transport.Enviar(ctx, assinado, nota.Chave, nota.Ambiente)
	if err != nil {
		// Inclui cancelamento do contexto: a tentativa fica registrada como
		// FALHA_ENVIO e pode ser repetida com segurança.
		registro.Status = fiscal.StatusFalhaEnvio
		registro.ConcluidaEm = time.Now()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("transmissão interrompida: %w", err)
		}
		return registro, &fiscal.ErroColaborador{Etapa: "transmissao", Retentavel: true, Causa: err}
	}

	registro.ConcluidaEm = time.Now()
	registro.Protocolo = resultado.Protocolo
	registro.CStat = resultado.CStat
	registro.Motivo = resultado.Motivo
	if resultado.Autorizada {
		registro.Status = fiscal.StatusAutorizada
		c.log.Info("nota autorizada",
			zap.String("chave", nota.Chave),
			zap.String("protocolo", resultado.Protocolo))
	} else {
		registro.Status = fiscal.StatusRejeitada
		c.log.Warn("nota rejeitada",
			zap.String("chave", nota.Chave),
			zap.String("cstat", resultado.CStat),
			zap.String("motivo", resultado.Motivo))
	}
	return registro, nil
}

// Cancelar transmite um pedido de cancelamento já validado.
func (c *Coordinator) Cancelar(ctx context.Context, cancelamento *fiscal.Cancelamento, cnpj string, ambiente fiscal.Ambiente) (*ResultadoCancelamento, error) {
	if !ambiente.Valido() {
		return nil, fmt.Errorf("ambiente de emissão não informado: %w", fiscal.ErrValidacao)
	}
	evento, err := fiscal.RenderXMLCancelamento(cancelamento)
	if err != nil {
		return nil, err
	}
	if err := c.reservar(cancelamento.Chave); err != nil {
		return nil, err
	}
	defer c.liberar(cancelamento.Chave)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	assinado, err := c.signer.Assinar(ctx, evento, cnpj)
	if err != nil {
		return nil, &fiscal.ErroColaborador{Etapa: "assinatura", Retentavel: true, Causa: err}
	}
	resultado, err := c.transport.Cancelar(ctx, assinado, cancelamento.Chave, ambiente)
	if err != nil {
		return nil, &fiscal.ErroColaborador{Etapa: "transmissao", Retentavel: true, Causa: err}
	}
	return &resultado, nil
}
