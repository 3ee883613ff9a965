// cmd/web/main.go
package main

import (
	"context"
	"log"

	"cloud.google.com/go/firestore"
	"github.com/LuisEduardoPedra/emissorNfe/internal/api/handlers"
	"github.com/LuisEduardoPedra/emissorNfe/internal/api/middleware"
	"github.com/LuisEduardoPedra/emissorNfe/internal/api/responses"
	"github.com/LuisEduardoPedra/emissorNfe/internal/config"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/auth"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/emissao"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/fiscal"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/notas"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/sequencia"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// initFirestoreClient initializes the Firestore client.
func initFirestoreClient(ctx context.Context, cfg *config.Config) *firestore.Client {
	client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjetoFirestore, cfg.BancoFirestore)
	if err != nil {
		log.Fatalf("Erro ao inicializar cliente Firestore para o banco '%s': %v\n", cfg.BancoFirestore, err)
	}
	log.Printf("Conectado com sucesso ao Firestore, banco de dados: %s", cfg.BancoFirestore)
	return client
}

// novoTransporte escolhe entre o transporte HTTP real e o simulado. Sem URL
// configurada a aplicação sobe em modo simulado, útil em homologação local.
func novoTransporte(cfg *config.Config) emissao.Transport {
	if cfg.SefazURLProducao == "" && cfg.SefazURLHomologacao == "" {
		log.Println("Nenhuma URL de autorizador configurada, usando transporte simulado")
		return &emissao.TransporteSimulado{}
	}
	return &emissao.TransporteHTTP{
		URLProducao:    cfg.SefazURLProducao,
		URLHomologacao: cfg.SefazURLHomologacao,
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Erro ao carregar configuração: %v", err)
	}

	responses.InitLogger()
	logger := responses.Logger()
	defer logger.Sync()

	ctx := context.Background()
	firestoreClient := initFirestoreClient(ctx, cfg)
	defer firestoreClient.Close()

	registros := notas.NewRegistrosFirestore(firestoreClient)
	alocador := sequencia.NewFirestore(firestoreClient)
	montador := fiscal.NewMontador(nil)
	coordinator := emissao.NewCoordinator(
		emissao.AssinadorSimulado{},
		novoTransporte(cfg),
		cfg.TimeoutTransmissao,
		logger,
	)

	notasService := notas.NewService(registros, alocador, montador, coordinator, logger)
	authService := auth.NewService(firestoreClient, []byte(cfg.JWTSecret), logger)

	notasHandler := handlers.NewNotasHandler(notasService)
	authHandler := handlers.NewAuthHandler(authService)

	router := gin.Default()
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/login", authHandler.Login)
		protected := apiV1.Group("/")
		protected.Use(middleware.AuthMiddleware([]byte(cfg.JWTSecret)))
		{
			protected.POST("/notas",
				middleware.PermissionMiddleware(middleware.PermissaoEmitir),
				notasHandler.HandleEmitir)
			protected.POST("/notas/:chave/retransmissao",
				middleware.PermissionMiddleware(middleware.PermissaoEmitir),
				notasHandler.HandleRetransmitir)
			protected.POST("/notas/:chave/cancelamento",
				middleware.PermissionMiddleware(middleware.PermissaoCancelar),
				notasHandler.HandleCancelar)
			protected.GET("/notas/:chave", notasHandler.HandleConsultar)
		}
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	logger.Info("servidor iniciado", zap.String("porta", cfg.Porta))
	if err := router.Run(":" + cfg.Porta); err != nil {
		log.Fatal("Falha ao iniciar o servidor: ", err)
	}
}
