package fiscal

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
)

// CodigoNumerico produz o campo cNF (8 dígitos) da chave de acesso. A
// derivação precisa ser determinística sobre (CNPJ, número, série) para que
// remontar a mesma nota gere a mesma chave e a retransmissão seja idempotente.
type CodigoNumerico func(cnpj string, numero uint32, serie uint16) string

// CodigoNumericoMD5 dobra um MD5 truncado em 8 dígitos decimais, a mesma
// estratégia usada desde a primeira versão do emissor.
func CodigoNumericoMD5(cnpj string, numero uint32, serie uint16) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%d|%d", cnpj, numero, serie)))
	n := binary.BigEndian.Uint32(sum[:4]) % 100000000
	return fmt.Sprintf("%08d", n)
}

// GeradorChave monta a chave de acesso de 44 dígitos. Função pura: mesmas
// entradas, mesma chave.
type GeradorChave struct {
	codigo CodigoNumerico
}

// NewGeradorChave cria um gerador. Com codigo nil usa CodigoNumericoMD5.
func NewGeradorChave(codigo CodigoNumerico) *GeradorChave {
	if codigo == nil {
		codigo = CodigoNumericoMD5
	}
	return &GeradorChave{codigo: codigo}
}

// Gerar concatena, na ordem do layout, cUF(2) + AAMM(4) + CNPJ(14) + mod(2) +
// série(3) + número(9) + tpEmis(1) + cNF(8) e anexa o dígito verificador
// módulo 11. Campos que não cabem na largura fixa são rejeitados, nunca
// truncados.
func (g *GeradorChave) Gerar(codigoUF, aamm, cnpj string, modelo Modelo, serie uint16, numero uint32, formaEmissao string) (string, error) {
	if !soDigitos(codigoUF) || len(codigoUF) != 2 {
		return "", fmt.Errorf("código da UF %q deve ter 2 dígitos: %w", codigoUF, ErrCampoInvalido)
	}
	if !soDigitos(aamm) || len(aamm) != 4 {
		return "", fmt.Errorf("competência %q deve estar no formato AAMM: %w", aamm, ErrCampoInvalido)
	}
	if !soDigitos(cnpj) || len(cnpj) != 14 {
		return "", fmt.Errorf("CNPJ do emitente %q deve ter exatamente 14 dígitos: %w", cnpj, ErrCampoInvalido)
	}
	if modelo != ModeloNFe && modelo != ModeloNFCe {
		return "", fmt.Errorf("modelo %q desconhecido: %w", modelo, ErrCampoInvalido)
	}
	if serie > 999 {
		return "", fmt.Errorf("série %d não cabe em 3 dígitos: %w", serie, ErrCampoInvalido)
	}
	if numero == 0 || numero > 999999999 {
		return "", fmt.Errorf("número %d fora da faixa de 9 dígitos: %w", numero, ErrCampoInvalido)
	}
	if !soDigitos(formaEmissao) || len(formaEmissao) != 1 {
		return "", fmt.Errorf("forma de emissão %q deve ter 1 dígito: %w", formaEmissao, ErrCampoInvalido)
	}

	cnf := g.codigo(cnpj, numero, serie)
	if !soDigitos(cnf) || len(cnf) != 8 {
		return "", fmt.Errorf("código numérico %q deve ter 8 dígitos: %w", cnf, ErrCampoInvalido)
	}

	corpo := fmt.Sprintf("%s%s%s%s%03d%09d%s%s", codigoUF, aamm, cnpj, modelo, serie, numero, formaEmissao, cnf)
	dv, err := DigitoVerificador(corpo)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", corpo, dv), nil
}

// DigitoVerificador calcula o dígito módulo 11 da chave: pesos 2..9 cíclicos
// aplicados da direita para a esquerda; resto 0 ou 1 vira dígito 0.
func DigitoVerificador(corpo string) (int, error) {
	if !soDigitos(corpo) || len(corpo) != 43 {
		return 0, fmt.Errorf("corpo da chave deve ter 43 dígitos, veio %d: %w", len(corpo), ErrCampoInvalido)
	}
	soma := 0
	peso := 2
	for i := len(corpo) - 1; i >= 0; i-- {
		soma += int(corpo[i]-'0') * peso
		peso++
		if peso > 9 {
			peso = 2
		}
	}
	resto := soma % 11
	if resto < 2 {
		return 0, nil
	}
	return 11 - resto, nil
}

func soDigitos(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
