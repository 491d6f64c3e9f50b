package qrouter

import (
	"net/http"

	"github.com/compozy/sqlagent/engine/infra/server/router"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/gin-gonic/gin"
)

// GET /chat_history
func getChatHistory(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	entries, err := uc.NewChatHistory(state.History).List(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, router.NewRequestError(http.StatusInternalServerError, err.Error(), err))
		return
	}
	router.RespondOK(c, gin.H{"chat_history": entries})
}

// DELETE /chat_history
func clearChatHistory(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	if err := uc.NewChatHistory(state.History).Clear(c.Request.Context()); err != nil {
		router.RespondWithError(c, router.NewRequestError(http.StatusInternalServerError, err.Error(), err))
		return
	}
	c.Status(http.StatusNoContent)
}
