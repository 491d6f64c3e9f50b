package qrouter

import (
	"net/http"

	"github.com/compozy/sqlagent/engine/agent"
	"github.com/compozy/sqlagent/engine/infra/server/router"
	"github.com/compozy/sqlagent/engine/infra/server/routes"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/compozy/sqlagent/pkg/logger"
	"github.com/gin-gonic/gin"
)

const (
	eventResult = "result"
	eventError  = "error"
)

// streamChatQuery answers like chatQuery but pushes every node update as a
// server-sent event named after the node, then a final "result" event.
//
//	POST /chat_query/stream {"input_message": "..."}
func streamChatQuery(c *gin.Context) {
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
	ctx := c.Request.Context()
	log := logger.FromContext(ctx)
	obs := state.StreamingMetrics().Begin(ctx, routes.ChatQueryStream())
	defer obs.End()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(name string, data any) {
		c.SSEvent(name, data)
		c.Writer.Flush()
		obs.Event(name)
	}
	res, err := chatUC.Stream(ctx, req.InputMessage, func(ev agent.Event) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		send(ev.Node, toMessageDTO(&ev.Message))
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			obs.Fail("client_gone")
			log.Debug("Chat stream closed by client", "error", err)
			return
		}
		obs.Fail("agent_error")
		send(eventError, chatError(err).Body())
		return
	}
	send(eventResult, res)
}
