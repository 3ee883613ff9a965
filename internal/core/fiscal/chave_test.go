package fiscal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codigoFixo(valor string) CodigoNumerico {
	return func(string, uint32, uint16) string { return valor }
}

func TestGerarChave(t *testing.T) {
	t.Run("vetor de referência com código fixo", func(t *testing.T) {
		gen := NewGeradorChave(codigoFixo("00000001"))
		chave, err := gen.Gerar("35", "2501", "12345678000195", ModeloNFe, 1, 1, "1")
		require.NoError(t, err)

		require.Len(t, chave, 44)
		corpo := "352501" + "12345678000195" + "55" + "001" + "000000001" + "1" + "00000001"
		assert.Equal(t, corpo, chave[:43])

		dv, err := DigitoVerificador(corpo)
		require.NoError(t, err)
		assert.Equal(t, byte('0')+byte(dv), chave[43])
	})

	t.Run("determinismo", func(t *testing.T) {
		gen := NewGeradorChave(nil)
		a, err := gen.Gerar("35", "2501", "12345678000195", ModeloNFe, 1, 42, "1")
		require.NoError(t, err)
		b, err := gen.Gerar("35", "2501", "12345678000195", ModeloNFe, 1, 42, "1")
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("sempre 44 dígitos ASCII", func(t *testing.T) {
		gen := NewGeradorChave(nil)
		casos := []struct {
			modelo Modelo
			serie  uint16
			numero uint32
		}{
			{ModeloNFe, 1, 1},
			{ModeloNFCe, 999, 999999999},
			{ModeloNFe, 3, 777},
		}
		for _, c := range casos {
			chave, err := gen.Gerar("43", "2412", "04252011000110", c.modelo, c.serie, c.numero, "1")
			require.NoError(t, err)
			require.Len(t, chave, 44)
			for i := 0; i < len(chave); i++ {
				require.True(t, chave[i] >= '0' && chave[i] <= '9', "posição %d não é dígito", i)
			}
		}
	})

	t.Run("lei de ida e volta do dígito verificador", func(t *testing.T) {
		gen := NewGeradorChave(nil)
		for numero := uint32(1); numero <= 50; numero++ {
			chave, err := gen.Gerar("35", "2501", "12345678000195", ModeloNFe, 1, numero, "1")
			require.NoError(t, err)
			dv, err := DigitoVerificador(chave[:43])
			require.NoError(t, err)
			assert.Equal(t, byte('0')+byte(dv), chave[43])
		}
	})

	t.Run("campos fora da largura são rejeitados", func(t *testing.T) {
		gen := NewGeradorChave(nil)
		casos := []struct {
			nome                       string
			uf, aamm, cnpj, formaEmis  string
			modelo                     Modelo
			serie                      uint16
			numero                     uint32
		}{
			{"CNPJ com 13 dígitos", "35", "2501", "1234567800019", "1", ModeloNFe, 1, 1},
			{"CNPJ alfanumérico", "35", "2501", "1234567800019X", "1", ModeloNFe, 1, 1},
			{"UF com 1 dígito", "3", "2501", "12345678000195", "1", ModeloNFe, 1, 1},
			{"competência curta", "35", "501", "12345678000195", "1", ModeloNFe, 1, 1},
			{"número zerado", "35", "2501", "12345678000195", "1", ModeloNFe, 1, 0},
			{"forma de emissão vazia", "35", "2501", "12345678000195", "", ModeloNFe, 1, 1},
			{"modelo desconhecido", "35", "2501", "12345678000195", "1", Modelo("99"), 1, 1},
		}
		for _, c := range casos {
			t.Run(c.nome, func(t *testing.T) {
				_, err := gen.Gerar(c.uf, c.aamm, c.cnpj, c.modelo, c.serie, c.numero, c.formaEmis)
				assert.ErrorIs(t, err, ErrCampoInvalido)
			})
		}
	})

	t.Run("código numérico inválido é rejeitado", func(t *testing.T) {
		gen := NewGeradorChave(codigoFixo("123"))
		_, err := gen.Gerar("35", "2501", "12345678000195", ModeloNFe, 1, 1, "1")
		assert.ErrorIs(t, err, ErrCampoInvalido)
	})
}

func TestDigitoVerificador(t *testing.T) {
	t.Run("resto menor que 2 resulta em zero", func(t *testing.T) {
		// 43 zeros somam zero, resto zero.
		corpo := "0000000000000000000000000000000000000000000"
		dv, err := DigitoVerificador(corpo)
		require.NoError(t, err)
		assert.Equal(t, 0, dv)
	})

	t.Run("corpo com largura errada", func(t *testing.T) {
		_, err := DigitoVerificador("123")
		assert.ErrorIs(t, err, ErrCampoInvalido)
	})
}

func TestCodigoNumericoMD5(t *testing.T) {
	a := CodigoNumericoMD5("12345678000195", 10, 1)
	b := CodigoNumericoMD5("12345678000195", 10, 1)
	c := CodigoNumericoMD5("12345678000195", 11, 1)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 8)
}
