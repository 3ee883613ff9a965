package handlers

import (
	"net/http"

	"github.com/LuisEduardoPedra/emissorNfe/internal/api/responses"
	"github.com/LuisEduardoPedra/emissorNfe/internal/core/auth"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service auth.Service
}

func NewAuthHandler(service auth.Service) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

type loginPayload struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login autentica o usuário e devolve o token JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var payload loginPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		responses.Error(c, http.StatusBadRequest, "Usuário e senha são obrigatórios", err.Error())
		return
	}

	token, err := h.service.Login(c.Request.Context(), payload.Username, payload.Password)
	if err != nil {
		responses.Error(c, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
