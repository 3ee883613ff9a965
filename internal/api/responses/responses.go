// Package responses concentra o logger estruturado e o envelope de erro da
// API.
package responses

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

// InitLogger inicializa o logger global da aplicação.
func InitLogger() {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	logger = l
}

// Logger devolve o logger da aplicação.
func Logger() *zap.Logger {
	return logger
}

// ErroResposta é o envelope JSON de erro devolvido pela API.
type ErroResposta struct {
	Erro     string `json:"erro"`
	Detalhes string `json:"detalhes,omitempty"`
}

// Error devolve o envelope de erro e registra o contexto no log.
func Error(c *gin.Context, status int, mensagem string, detalhes ...string) {
	resposta := ErroResposta{Erro: mensagem}
	if len(detalhes) > 0 {
		resposta.Detalhes = detalhes[0]
	}
	logger.Warn("erro na requisição",
		zap.Int("status", status),
		zap.String("caminho", c.FullPath()),
		zap.String("erro", mensagem),
		zap.String("detalhes", resposta.Detalhes))
	c.JSON(status, resposta)
}
