package qrouter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/compozy/sqlagent/engine/infra/server/appstate"
	"github.com/compozy/sqlagent/engine/infra/server/router"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/gin-gonic/gin"
)

const msgNoQuery = "No query provided"

func bindBody(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		reqErr := router.NewRequestError(http.StatusUnprocessableEntity, "invalid request body: "+err.Error(), err)
		router.RespondWithError(c, reqErr)
		return false
	}
	return true
}

func chatUseCase(c *gin.Context, state *appstate.State) *uc.ChatQuery {
	if state.Agent == nil {
		reqErr := router.NewRequestError(http.StatusServiceUnavailable, "chat agent is not configured", nil)
		router.RespondWithError(c, reqErr)
		return nil
	}
	return uc.NewChatQuery(state.Agent, state.History)
}

func chatError(err error) *router.RequestError {
	if errors.Is(err, uc.ErrEmptyQuery) {
		return router.NewRequestError(http.StatusBadRequest, msgNoQuery, err)
	}
	return router.NewRequestError(
		http.StatusInternalServerError,
		fmt.Sprintf("Chat query processing error: %v", err),
		err,
	)
}

// chatQuery answers a natural language question with the SQL agent.
//
//	POST /chat_query {"input_message": "..."}
func chatQuery(c *gin.Context) {
	var req ChatQueryRequest
	if !bindBody(c, &req) {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	if err := uc.ValidateInput(req.InputMessage); err != nil {
		router.RespondWithError(c, chatError(err))
		return
	}
	chatUC := chatUseCase(c, state)
	if chatUC == nil {
		return
	}
	res, err := chatUC.Execute(c.Request.Context(), req.InputMessage)
	if err != nil {
		router.RespondWithError(c, chatError(err))
		return
	}
	router.RespondOK(c, res)
}

// directQuery runs raw SQL through the query tool.
//
//	POST /direct_query {"query": "..."}
func directQuery(c *gin.Context) {
	var req DirectQueryRequest
	if !bindBody(c, &req) {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	result, err := uc.NewDirectQuery(state.Toolkit).Execute(c.Request.Context(), req.Query)
	if errors.Is(err, uc.ErrEmptyQuery) {
		router.RespondWithError(c, router.NewRequestError(http.StatusBadRequest, msgNoQuery, err))
		return
	}
	if err != nil {
		reason := fmt.Sprintf("Direct query execution error: %v", err)
		router.RespondWithError(c, router.NewRequestError(http.StatusInternalServerError, reason, err))
		return
	}
	router.RespondOK(c, gin.H{"result": result})
}
