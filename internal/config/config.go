package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config reúne toda a configuração da aplicação, carregada do ambiente.
type Config struct {
	Porta               string
	ProjetoFirestore    string
	BancoFirestore      string
	JWTSecret           string
	TimeoutTransmissao  time.Duration
	SefazURLProducao    string
	SefazURLHomologacao string
}

// Load lê a configuração de variáveis de ambiente com defaults sensatos.
// O segredo do JWT não tem default: sem ele a aplicação não sobe.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("FIRESTORE_PROJECT", "emissor-nfe")
	v.SetDefault("FIRESTORE_DATABASE", "emissor-nfe")
	v.SetDefault("TRANSMISSAO_TIMEOUT", "30s")
	v.SetDefault("SEFAZ_URL_PRODUCAO", "")
	v.SetDefault("SEFAZ_URL_HOMOLOGACAO", "")

	cfg := &Config{
		Porta:               v.GetString("PORT"),
		ProjetoFirestore:    v.GetString("FIRESTORE_PROJECT"),
		BancoFirestore:      v.GetString("FIRESTORE_DATABASE"),
		JWTSecret:           v.GetString("JWT_SECRET"),
		TimeoutTransmissao:  v.GetDuration("TRANSMISSAO_TIMEOUT"),
		SefazURLProducao:    v.GetString("SEFAZ_URL_PRODUCAO"),
		SefazURLHomologacao: v.GetString("SEFAZ_URL_HOMOLOGACAO"),
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET não definido")
	}
	if cfg.TimeoutTransmissao <= 0 {
		return nil, fmt.Errorf("TRANSMISSAO_TIMEOUT inválido")
	}
	return cfg, nil
}
