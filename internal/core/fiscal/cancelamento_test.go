package fiscal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func notaAutorizada() *Nota {
	return &Nota{
		Chave:     strings.Repeat("3", 44),
		Status:    StatusAutorizada,
		Protocolo: "135250000000001",
	}
}

func TestNovoCancelamento(t *testing.T) {
	agora := time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)

	t.Run("justificativa de 15 caracteres é aceita", func(t *testing.T) {
		just := strings.Repeat("a", 15)
		c, err := NovoCancelamento(notaAutorizada(), just, agora)
		require.NoError(t, err)
		assert.Equal(t, notaAutorizada().Chave, c.Chave)
		assert.Equal(t, "135250000000001", c.Protocolo)
		assert.Equal(t, agora, c.SolicitadoEm)
	})

	t.Run("justificativa de 14 caracteres é rejeitada", func(t *testing.T) {
		_, err := NovoCancelamento(notaAutorizada(), strings.Repeat("a", 14), agora)
		assert.ErrorIs(t, err, ErrJustificativaCurta)
	})

	t.Run("somente nota AUTORIZADA pode ser cancelada", func(t *testing.T) {
		estados := []Status{StatusRascunho, StatusMontada, StatusEnviada, StatusRejeitada, StatusCancelada, StatusFalhaEnvio}
		for _, estado := range estados {
			nota := notaAutorizada()
			nota.Status = estado
			_, err := NovoCancelamento(nota, strings.Repeat("a", 20), agora)
			assert.ErrorIs(t, err, ErrEstadoInvalido, "estado %s", estado)
		}
	})

	t.Run("autorizada sem protocolo é inconsistente", func(t *testing.T) {
		nota := notaAutorizada()
		nota.Protocolo = ""
		_, err := NovoCancelamento(nota, strings.Repeat("a", 20), agora)
		assert.ErrorIs(t, err, ErrEstadoInvalido)
	})
}
