package qrouter

import (
	"errors"
	"net/http"

	"github.com/compozy/sqlagent/engine/infra/server/router"
	"github.com/compozy/sqlagent/engine/infra/sqlite"
	"github.com/compozy/sqlagent/engine/query/uc"
	"github.com/gin-gonic/gin"
)

// listTables returns every user table.
//
//	GET /tables
func listTables(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	tables, err := uc.NewListTables(state.Catalog).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, router.NewStatusError(http.StatusInternalServerError, err.Error(), err))
		return
	}
	router.RespondOK(c, gin.H{"status": "success", "tables": tables})
}

// getTableData returns all rows of one table.
//
//	GET /tables/data/:table_name
func getTableData(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	rows, err := uc.NewTableData(state.Catalog).Execute(c.Request.Context(), c.Param("table_name"))
	switch {
	case errors.Is(err, sqlite.ErrTableNotFound):
		router.RespondWithError(c, router.NewStatusError(http.StatusNotFound, err.Error(), err))
		return
	case err != nil:
		router.RespondWithError(c, router.NewStatusError(http.StatusInternalServerError, err.Error(), err))
		return
	}
	router.RespondOK(c, gin.H{"status": "success", "data": rows})
}

// testSQLTools runs the list, schema and query tools once.
//
//	GET /test_sql_tools
func testSQLTools(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	report, err := uc.NewTestTools(state.Toolkit).Execute(c.Request.Context())
	if err != nil {
		router.RespondWithError(c, router.NewStatusError(http.StatusInternalServerError, err.Error(), err))
		return
	}
	router.RespondOK(c, report)
}
