package handlers

import (
	"errors"
	"net/http"

	"github.com/LuisEduardoPedra/emissorNfe/internal/api/responses"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/notas"
	"github.com/gin-gonic/gin"
)

// NotasHandler lida com as requisições de emissão, cancelamento e consulta.
type NotasHandler struct {
	service notas.Service
}

// NewNotasHandler cria um novo handler de notas.
func NewNotasHandler(service notas.Service) *NotasHandler {
	return &NotasHandler{service: service}
}

type emitirPayload struct {
	Modelo       string               `json:"modelo" binding:"required,oneof=55 65"`
	Serie        uint16               `json:"serie" binding:"required"`
	Ambiente     string               `json:"ambiente" binding:"required,oneof=producao homologacao"`
	Emitente     fiscal.Emitente      `json:"emitente" binding:"required"`
	Destinatario *fiscal.Destinatario `json:"destinatario"`
	Itens        []fiscal.Item        `json:"itens" binding:"required"`
	Ajustes      fiscal.Ajustes       `json:"ajustes"`
	InfAdicional string               `json:"infAdicional"`
}

type cancelarPayload struct {
	Justificativa string `json:"justificativa" binding:"required"`
}

func ambienteDe(valor string) fiscal.Ambiente {
	if valor == "producao" {
		return fiscal.AmbienteProducao
	}
	return fiscal.AmbienteHomologacao
}

// HandleEmitir recebe o payload de negócio e emite a nota.
func (h *NotasHandler) HandleEmitir(c *gin.Context) {
	var payload emitirPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Payload de emissão inválido", err.Error())
		return
	}

	desfecho, err := h.service.Emitir(c.Request.Context(), notas.EmitirRequest{
		Modelo:       fiscal.Modelo(payload.Modelo),
		Serie:        payload.Serie,
		Ambiente:     ambienteDe(payload.Ambiente),
		Emitente:     payload.Emitente,
		Destinatario: payload.Destinatario,
		Itens:        payload.Itens,
		Ajustes:      payload.Ajustes,
		InfAdicional: payload.InfAdicional,
	})
	if err != nil {
		// A emissão pode ter chegado até FALHA_ENVIO: o desfecho parcial
		// acompanha a resposta para o cliente retransmitir depois.
		status, mensagem := statusDoErro(err)
		if desfecho != nil {
			c.JSON(status, gin.H{"erro": mensagem, "detalhes": err.Error(), "desfecho": desfecho})
			return
		}
		responses.Error(c, status, mensagem, err.Error())
		return
	}
	c.JSON(http.StatusCreated, desfecho)
}

// HandleRetransmitir reenvia uma nota que ficou em FALHA_ENVIO, mantendo a
// mesma chave de acesso e o documento originalmente gravado.
func (h *NotasHandler) HandleRetransmitir(c *gin.Context) {
	desfecho, err := h.service.Retransmitir(c.Request.Context(), c.Param("chave"))
	if err != nil {
		status, mensagem := statusDoErro(err)
		if desfecho != nil {
			c.JSON(status, gin.H{"erro": mensagem, "detalhes": err.Error(), "desfecho": desfecho})
			return
		}
		responses.Error(c, status, mensagem, err.Error())
		return
	}
	c.JSON(http.StatusOK, desfecho)
}

// HandleCancelar solicita o cancelamento de uma nota autorizada.
func (h *NotasHandler) HandleCancelar(c *gin.Context) {
	var payload cancelarPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Payload de cancelamento inválido", err.Error())
		return
	}

	desfecho, err := h.service.Cancelar(c.Request.Context(), c.Param("chave"), payload.Justificativa)
	if err != nil {
		status, mensagem := statusDoErro(err)
		responses.Error(c, status, mensagem, err.Error())
		return
	}
	c.JSON(http.StatusOK, desfecho)
}

// HandleConsultar devolve o snapshot e o histórico de eventos de uma nota.
func (h *NotasHandler) HandleConsultar(c *gin.Context) {
	consulta, err := h.service.Consultar(c.Request.Context(), c.Param("chave"))
	if err != nil {
		status, mensagem := statusDoErro(err)
		responses.Error(c, status, mensagem, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"chave":    consulta.Registro.Chave,
		"status":   consulta.Status,
		"registro": consulta.Registro,
		"eventos":  consulta.Eventos,
	})
}

func statusDoErro(err error) (int, string) {
	switch {
	case errors.Is(err, notas.ErrNotaNaoEncontrada):
		return http.StatusNotFound, "Nota não encontrada"
	case errors.Is(err, fiscal.ErrJustificativaCurta),
		errors.Is(err, fiscal.ErrValidacao),
		errors.Is(err, fiscal.ErrCampoInvalido),
		errors.Is(err, fiscal.ErrSequenciaInvalida),
		errors.Is(err, fiscal.ErrTotalNegativo):
		return http.StatusUnprocessableEntity, "Dados da nota inválidos"
	case errors.Is(err, fiscal.ErrEstadoInvalido),
		errors.Is(err, fiscal.ErrEmissaoEmAndamento):
		return http.StatusConflict, "Operação incompatível com o estado atual da nota"
	case notas.Retentavel(err):
		return http.StatusBadGateway, "Falha temporária junto ao colaborador externo"
	default:
		return http.StatusInternalServerError, "Erro interno ao processar a nota"
	}
}
