package notas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LuisEduardoPedra/emissorNfe/internal/core/emissao"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/sequencia"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EmitirRequest é o payload de negócio já pronto para emissão. O ambiente é
// obrigatório e nunca assumido.
type EmitirRequest struct {
	Modelo       fiscal.Modelo
	Serie        uint16
	Ambiente     fiscal.Ambiente
	Emitente     fiscal.Emitente
	Destinatario *fiscal.Destinatario
	Itens        []fiscal.Item
	Ajustes      fiscal.Ajustes
	InfAdicional string
}

// Desfecho resume a emissão para o chamador.
type Desfecho struct {
	Chave     string
	Numero    uint32
	Status    fiscal.Status
	Protocolo string
	CStat     string
	Motivo    string
	ValorNota string
}

// DesfechoCancelamento resume o pedido de cancelamento.
type DesfechoCancelamento struct {
	Chave      string
	Confirmado bool
	Protocolo  string
	CStat      string
	Motivo     string
}

// Consulta devolve o snapshot gravado e o histórico de eventos da nota.
type Consulta struct {
	Registro *Registro
	Status   fiscal.Status
	Eventos  []Evento
}

// Service é a fachada de emissão: aloca número, monta, serializa, transmite e
// grava os registros imutáveis.
type Service interface {
	Emitir(ctx context.Context, req EmitirRequest) (*Desfecho, error)
	Retransmitir(ctx context.Context, chave string) (*Desfecho, error)
	Cancelar(ctx context.Context, chave, justificativa string) (*DesfechoCancelamento, error)
	Consultar(ctx context.Context, chave string) (*Consulta, error)
}

type service struct {
	registros Registros
	alocador  sequencia.Alocador
	montador  *fiscal.Montador
	coord     *emissao.Coordinator
	log       *zap.Logger
	agora     func() time.Time
}

// NewService cria a fachada de emissão.
func NewService(registros Registros, alocador sequencia.Alocador, montador *fiscal.Montador, coord *emissao.Coordinator, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		registros: registros,
		alocador:  alocador,
		montador:  montador,
		coord:     coord,
		log:       log,
		agora:     time.Now,
	}
}

func (s *service) Emitir(ctx context.Context, req EmitirRequest) (*Desfecho, error) {
	numero, err := s.alocador.Proximo(ctx, req.Emitente.Documento, req.Modelo, req.Serie)
	if err != nil {
		return nil, fmt.Errorf("falha ao alocar número da nota: %w", err)
	}

	ident := fiscal.Identificacao{
		Numero:  numero,
		Serie:   req.Serie,
		Modelo:  req.Modelo,
		Emissao: s.agora(),
	}
	nota, err := s.montador.Montar(ident, req.Emitente, req.Destinatario, req.Itens, req.Ajustes, req.Ambiente)
	if err != nil {
		return nil, err
	}
	nota.InfAdicional = req.InfAdicional

	documento, err := fiscal.RenderXML(nota)
	if err != nil {
		return nil, err
	}

	if err := s.registros.SalvarRegistro(ctx, &Registro{
		Chave:        nota.Chave,
		Modelo:       string(nota.Ident.Modelo),
		Serie:        nota.Ident.Serie,
		Numero:       nota.Ident.Numero,
		Ambiente:     int(nota.Ambiente),
		EmitenteCNPJ: nota.Emitente.Documento,
		EmitenteNome: nota.Emitente.RazaoSocial,
		ValorNota:    nota.Totais.ValorNota.StringFixed(2),
		XML:          string(documento),
		CriadaEm:     s.agora(),
	}); err != nil {
		return nil, err
	}
	if err := s.salvarEvento(ctx, nota.Chave, fiscal.StatusMontada, "", "", ""); err != nil {
		return nil, err
	}

	desfecho := &Desfecho{
		Chave:     nota.Chave,
		Numero:    nota.Ident.Numero,
		ValorNota: nota.Totais.ValorNota.StringFixed(2),
	}
	return s.transmitir(ctx, nota, documento, desfecho)
}

// Retransmitir reenvia uma nota que ficou em FALHA_ENVIO (ou que nunca saiu
// de MONTADA) usando o documento já gravado. A chave de acesso não muda, e a
// autoridade devolve o mesmo protocolo para reenvio de documento idêntico.
func (s *service) Retransmitir(ctx context.Context, chave string) (*Desfecho, error) {
	consulta, err := s.Consultar(ctx, chave)
	if err != nil {
		return nil, err
	}

	var statusNota fiscal.Status
	switch consulta.Status {
	case fiscal.StatusFalhaEnvio:
		statusNota = fiscal.StatusFalhaEnvio
	case fiscal.StatusMontada, fiscal.StatusEnviada:
		statusNota = fiscal.StatusMontada
	default:
		return nil, fmt.Errorf("retransmissão exige nota MONTADA ou FALHA_ENVIO, estado atual %s: %w", consulta.Status, fiscal.ErrEstadoInvalido)
	}

	registro := consulta.Registro
	nota := &fiscal.Nota{
		Chave:    chave,
		Status:   statusNota,
		Ambiente: fiscal.Ambiente(registro.Ambiente),
		Emitente: fiscal.Emitente{
			RazaoSocial: registro.EmitenteNome,
			Documento:   registro.EmitenteCNPJ,
		},
	}
	desfecho := &Desfecho{
		Chave:     chave,
		Numero:    registro.Numero,
		ValorNota: registro.ValorNota,
	}
	return s.transmitir(ctx, nota, []byte(registro.XML), desfecho)
}

func (s *service) transmitir(ctx context.Context, nota *fiscal.Nota, documento []byte, desfecho *Desfecho) (*Desfecho, error) {
	if err := s.salvarEvento(ctx, nota.Chave, fiscal.StatusEnviada, "", "", ""); err != nil {
		return nil, err
	}

	em, errTransmissao := s.coord.Transmitir(ctx, nota, documento)
	if em != nil {
		desfecho.Status = em.Status
		desfecho.Protocolo = em.Protocolo
		desfecho.CStat = em.CStat
		desfecho.Motivo = em.Motivo
		if err := s.salvarEvento(ctx, nota.Chave, em.Status, em.Protocolo, em.CStat, em.Motivo); err != nil {
			return nil, err
		}
	}
	if errTransmissao != nil {
		// FALHA_ENVIO fica registrada e a nota pode ser retransmitida; o erro
		// sobe com a causa para o chamador decidir.
		return desfecho, errTransmissao
	}
	return desfecho, nil
}

func (s *service) Cancelar(ctx context.Context, chave, justificativa string) (*DesfechoCancelamento, error) {
	consulta, err := s.Consultar(ctx, chave)
	if err != nil {
		return nil, err
	}

	var protocolo string
	for _, evento := range consulta.Eventos {
		if evento.Status == fiscal.StatusAutorizada {
			protocolo = evento.Protocolo
		}
	}

	// Reconstrói o mínimo da nota para o construtor de cancelamento validar o
	// estado; o snapshot em si permanece intocado.
	cancelamento, err := fiscal.NovoCancelamento(&fiscal.Nota{
		Chave:     chave,
		Status:    consulta.Status,
		Protocolo: protocolo,
	}, justificativa, s.agora())
	if err != nil {
		return nil, err
	}

	resultado, err := s.coord.Cancelar(ctx, cancelamento, consulta.Registro.EmitenteCNPJ, fiscal.Ambiente(consulta.Registro.Ambiente))
	if err != nil {
		return nil, err
	}

	desfecho := &DesfechoCancelamento{
		Chave:      chave,
		Confirmado: resultado.Confirmado,
		Protocolo:  resultado.Protocolo,
		CStat:      resultado.CStat,
		Motivo:     resultado.Motivo,
	}
	if resultado.Confirmado {
		if err := s.salvarEvento(ctx, chave, fiscal.StatusCancelada, resultado.Protocolo, resultado.CStat, resultado.Motivo); err != nil {
			return nil, err
		}
	} else {
		s.log.Warn("cancelamento rejeitado pela autoridade",
			zap.String("chave", chave),
			zap.String("cstat", resultado.CStat),
			zap.String("motivo", resultado.Motivo))
	}
	return desfecho, nil
}

func (s *service) Consultar(ctx context.Context, chave string) (*Consulta, error) {
	registro, err := s.registros.BuscarRegistro(ctx, chave)
	if err != nil {
		return nil, err
	}
	eventos, err := s.registros.ListarEventos(ctx, chave)
	if err != nil {
		return nil, err
	}
	if len(eventos) == 0 {
		return nil, fmt.Errorf("nota %s sem eventos gravados: %w", chave, fiscal.ErrEstadoInvalido)
	}
	return &Consulta{
		Registro: registro,
		Status:   eventos[len(eventos)-1].Status,
		Eventos:  eventos,
	}, nil
}

func (s *service) salvarEvento(ctx context.Context, chave string, statusNota fiscal.Status, protocolo, cstat, motivo string) error {
	return s.registros.SalvarEvento(ctx, &Evento{
		ID:        uuid.NewString(),
		Chave:     chave,
		Status:    statusNota,
		Protocolo: protocolo,
		CStat:     cstat,
		Motivo:    motivo,
		Em:        s.agora(),
	})
}

// Retentavel informa se o erro de emissão permite nova tentativa.
func Retentavel(err error) bool {
	var colab *fiscal.ErroColaborador
	if errors.As(err, &colab) {
		return colab.Retentavel
	}
	return false
}
