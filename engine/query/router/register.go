package qrouter

import (
	"github.com/compozy/sqlagent/engine/infra/server/routes"
	"github.com/gin-gonic/gin"
)

func Register(r gin.IRouter) {
	r.GET(routes.Tables(), listTables)
	r.GET(routes.TableData(), getTableData)
	r.GET(routes.TestTools(), testSQLTools)
	r.POST(routes.ChatQuery(), chatQuery)
	r.POST(routes.ChatQueryStream(), streamChatQuery)
	r.POST(routes.DirectQuery(), directQuery)
	r.GET(routes.ChatHistory(), getChatHistory)
	r.DELETE(routes.ChatHistory(), clearChatHistory)
}
