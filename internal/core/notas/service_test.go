package notas

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LuisEduardoPedra/emissorNfe/internal/core/emissao"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/sequencia"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registrosMemoria implementa Registros em memória para os testes.
type registrosMemoria struct {
	mu        sync.Mutex
	registros map[string]*Registro
	eventos   []Evento
}

func novosRegistrosMemoria() *registrosMemoria {
	return &registrosMemoria{registros: make(map[string]*Registro)}
}

func (r *registrosMemoria) SalvarRegistro(_ context.Context, registro *Registro) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, existe := r.registros[registro.Chave]; !existe {
		r.registros[registro.Chave] = registro
	}
	return nil
}

func (r *registrosMemoria) SalvarEvento(_ context.Context, evento *Evento) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventos = append(r.eventos, *evento)
	return nil
}

func (r *registrosMemoria) BuscarRegistro(_ context.Context, chave string) (*Registro, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	registro, ok := r.registros[chave]
	if !ok {
		return nil, ErrNotaNaoEncontrada
	}
	return registro, nil
}

func (r *registrosMemoria) ListarEventos(_ context.Context, chave string) ([]Evento, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var eventos []Evento
	for _, evento := range r.eventos {
		if evento.Chave == chave {
			eventos = append(eventos, evento)
		}
	}
	return eventos, nil
}

func requisicaoValida() EmitirRequest {
	return EmitirRequest{
		Modelo:   fiscal.ModeloNFe,
		Serie:    1,
		Ambiente: fiscal.AmbienteHomologacao,
		Emitente: fiscal.Emitente{
			RazaoSocial:       "Comércio de Ferragens Ltda",
			Documento:         "12345678000195",
			InscricaoEstadual: "110042490114",
			Endereco: fiscal.Endereco{
				Logradouro:      "Rua das Laranjeiras",
				Numero:          "100",
				Bairro:          "Centro",
				CodigoMunicipio: "3550308",
				Municipio:       "São Paulo",
				CodigoUF:        "35",
				CEP:             "01310100",
			},
		},
		Destinatario: &fiscal.Destinatario{
			RazaoSocial: "João da Silva",
			Documento:   "52998224725",
			Endereco: fiscal.Endereco{
				Logradouro:      "Avenida Brasil",
				Numero:          "2000",
				Bairro:          "Jardins",
				CodigoMunicipio: "3550308",
				Municipio:       "São Paulo",
				CodigoUF:        "35",
				CEP:             "01430000",
			},
		},
		Itens: []fiscal.Item{{
			NumItem:       1,
			Codigo:        "PRD-001",
			Descricao:     "Parafuso sextavado",
			NCM:           "73181500",
			CFOP:          "5102",
			Unidade:       "UN",
			Quantidade:    decimal.NewFromInt(2),
			ValorUnitario: decimal.RequireFromString("10.00"),
		}},
	}
}

func novoService(t *testing.T, transporte emissao.Transport) (Service, *registrosMemoria) {
	t.Helper()
	registros := novosRegistrosMemoria()
	coord := emissao.NewCoordinator(emissao.AssinadorSimulado{}, transporte, time.Second, nil)
	svc := NewService(registros, sequencia.NewMemoria(), fiscal.NewMontador(nil), coord, nil)
	return svc, registros
}

func TestEmitir(t *testing.T) {
	ctx := context.Background()

	t.Run("emissão autorizada de ponta a ponta", func(t *testing.T) {
		svc, registros := novoService(t, &emissao.TransporteSimulado{})

		desfecho, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)
		assert.Equal(t, fiscal.StatusAutorizada, desfecho.Status)
		assert.Equal(t, uint32(1), desfecho.Numero)
		assert.Len(t, desfecho.Chave, 44)
		assert.NotEmpty(t, desfecho.Protocolo)
		assert.Equal(t, "20.00", desfecho.ValorNota)

		registro, err := registros.BuscarRegistro(ctx, desfecho.Chave)
		require.NoError(t, err)
		assert.Contains(t, registro.XML, "<chNFe>"+desfecho.Chave+"</chNFe>")

		eventos, err := registros.ListarEventos(ctx, desfecho.Chave)
		require.NoError(t, err)
		require.Len(t, eventos, 3)
		assert.Equal(t, fiscal.StatusMontada, eventos[0].Status)
		assert.Equal(t, fiscal.StatusEnviada, eventos[1].Status)
		assert.Equal(t, fiscal.StatusAutorizada, eventos[2].Status)
	})

	t.Run("números crescem a cada emissão", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{})

		a, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)
		b, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)
		assert.Equal(t, uint32(1), a.Numero)
		assert.Equal(t, uint32(2), b.Numero)
		assert.NotEqual(t, a.Chave, b.Chave)
	})

	t.Run("falha transitória registra FALHA_ENVIO e devolve erro retentável", func(t *testing.T) {
		svc, registros := novoService(t, &emissao.TransporteSimulado{Falha: errors.New("gateway fora do ar")})

		desfecho, err := svc.Emitir(ctx, requisicaoValida())
		require.Error(t, err)
		assert.True(t, Retentavel(err))
		require.NotNil(t, desfecho)
		assert.Equal(t, fiscal.StatusFalhaEnvio, desfecho.Status)

		eventos, err := registros.ListarEventos(ctx, desfecho.Chave)
		require.NoError(t, err)
		require.Len(t, eventos, 3)
		assert.Equal(t, fiscal.StatusEnviada, eventos[1].Status)
		assert.Equal(t, fiscal.StatusFalhaEnvio, eventos[2].Status)
	})

	t.Run("validação falha antes de qualquer gravação", func(t *testing.T) {
		svc, registros := novoService(t, &emissao.TransporteSimulado{})

		req := requisicaoValida()
		req.Itens = nil
		_, err := svc.Emitir(ctx, req)
		assert.ErrorIs(t, err, fiscal.ErrValidacao)
		assert.Empty(t, registros.eventos)
		assert.Empty(t, registros.registros)
	})

	t.Run("ambiente ausente é rejeitado", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{})
		req := requisicaoValida()
		req.Ambiente = 0
		_, err := svc.Emitir(ctx, req)
		assert.ErrorIs(t, err, fiscal.ErrValidacao)
	})
}

func TestRetransmitir(t *testing.T) {
	ctx := context.Background()

	t.Run("FALHA_ENVIO retransmite com a mesma chave", func(t *testing.T) {
		transporte := &emissao.TransporteSimulado{Falha: errors.New("gateway fora do ar")}
		svc, registros := novoService(t, transporte)

		desfecho, err := svc.Emitir(ctx, requisicaoValida())
		require.Error(t, err)
		require.NotNil(t, desfecho)
		assert.Equal(t, fiscal.StatusFalhaEnvio, desfecho.Status)

		// Gateway volta; a retransmissão usa o documento gravado.
		transporte.Falha = nil
		retransmitido, err := svc.Retransmitir(ctx, desfecho.Chave)
		require.NoError(t, err)
		assert.Equal(t, desfecho.Chave, retransmitido.Chave)
		assert.Equal(t, desfecho.Numero, retransmitido.Numero)
		assert.Equal(t, fiscal.StatusAutorizada, retransmitido.Status)
		assert.NotEmpty(t, retransmitido.Protocolo)

		eventos, err := registros.ListarEventos(ctx, desfecho.Chave)
		require.NoError(t, err)
		assert.Equal(t, fiscal.StatusAutorizada, eventos[len(eventos)-1].Status)
	})

	t.Run("nota autorizada não retransmite", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{})

		desfecho, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)

		_, err = svc.Retransmitir(ctx, desfecho.Chave)
		assert.ErrorIs(t, err, fiscal.ErrEstadoInvalido)
	})

	t.Run("chave desconhecida", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{})
		_, err := svc.Retransmitir(ctx, strings.Repeat("8", 44))
		assert.ErrorIs(t, err, ErrNotaNaoEncontrada)
	})
}

func TestCancelar(t *testing.T) {
	ctx := context.Background()
	justificativa := "Erro de digitação nos itens"

	t.Run("cancelamento de nota autorizada", func(t *testing.T) {
		svc, registros := novoService(t, &emissao.TransporteSimulado{})

		desfecho, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)

		cancelado, err := svc.Cancelar(ctx, desfecho.Chave, justificativa)
		require.NoError(t, err)
		assert.True(t, cancelado.Confirmado)
		assert.Equal(t, "101", cancelado.CStat)

		eventos, err := registros.ListarEventos(ctx, desfecho.Chave)
		require.NoError(t, err)
		assert.Equal(t, fiscal.StatusCancelada, eventos[len(eventos)-1].Status)
	})

	t.Run("nota cancelada não cancela de novo", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{})

		desfecho, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)
		_, err = svc.Cancelar(ctx, desfecho.Chave, justificativa)
		require.NoError(t, err)

		_, err = svc.Cancelar(ctx, desfecho.Chave, justificativa)
		assert.ErrorIs(t, err, fiscal.ErrEstadoInvalido)
	})

	t.Run("nota rejeitada não pode ser cancelada", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{Rejeitar: &emissao.Resultado{
			CStat:  "225",
			Motivo: "Falha no Schema XML da NF-e",
		}})

		rejeitada, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)
		assert.Equal(t, fiscal.StatusRejeitada, rejeitada.Status)
		assert.Equal(t, "225", rejeitada.CStat)

		_, err = svc.Cancelar(ctx, rejeitada.Chave, justificativa)
		assert.ErrorIs(t, err, fiscal.ErrEstadoInvalido)
	})

	t.Run("justificativa curta", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{})
		desfecho, err := svc.Emitir(ctx, requisicaoValida())
		require.NoError(t, err)

		_, err = svc.Cancelar(ctx, desfecho.Chave, strings.Repeat("a", 14))
		assert.ErrorIs(t, err, fiscal.ErrJustificativaCurta)
	})

	t.Run("chave desconhecida", func(t *testing.T) {
		svc, _ := novoService(t, &emissao.TransporteSimulado{})
		_, err := svc.Cancelar(ctx, strings.Repeat("9", 44), justificativa)
		assert.ErrorIs(t, err, ErrNotaNaoEncontrada)
	})
}

func TestConsultar(t *testing.T) {
	ctx := context.Background()
	svc, _ := novoService(t, &emissao.TransporteSimulado{})

	desfecho, err := svc.Emitir(ctx, requisicaoValida())
	require.NoError(t, err)

	consulta, err := svc.Consultar(ctx, desfecho.Chave)
	require.NoError(t, err)
	assert.Equal(t, fiscal.StatusAutorizada, consulta.Status)
	assert.Equal(t, "12345678000195", consulta.Registro.EmitenteCNPJ)
	assert.Len(t, consulta.Eventos, 3)
}
