// Package api exposes the todoflow HTTP API over Gin.
package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thuale/todoflow/internal/store"
	"github.com/thuale/todoflow/internal/todos"
	"github.com/thuale/todoflow/internal/views"
)

// Server is the todoflow API server.
type Server struct {
	store  store.Store
	views  *views.Builder
	toggle *todos.Service
	router *gin.Engine
}

// NewServer creates a server over the given store. When token is
// non-empty, all /api routes require a matching bearer token.
func NewServer(s store.Store, builder *views.Builder, toggle *todos.Service, token string) *Server {
	router := gin.Default()

	srv := &Server{
		store:  s,
		views:  builder,
		toggle: toggle,
		router: router,
	}

	api := router.Group("/api")
	if token != "" {
		api.Use(bearerAuth(token))
	}
	{
		api.GET("/todos", srv.handleListTodos)
		api.POST("/todos", srv.handleCreateTodo)
		api.GET("/todos/:id", srv.handleGetTodo)
		api.PUT("/todos/:id", srv.handleUpdateTodo)
		api.DELETE("/todos/:id", srv.handleDeleteTodo)
		api.POST("/todos/:id/toggle", srv.handleToggleTodo)
		api.POST("/todos/:id/reorder", srv.handleReorderTodo)

		api.GET("/todos/:id/subtasks", srv.handleListSubtasks)
		api.POST("/todos/:id/subtasks", srv.handleAddSubtask)
		api.PUT("/subtasks/:id", srv.handleUpdateSubtask)
		api.DELETE("/subtasks/:id", srv.handleDeleteSubtask)
		api.POST("/subtasks/:id/toggle", srv.handleToggleSubtask)

		api.GET("/folders", srv.handleListFolders)
		api.POST("/folders", srv.handleCreateFolder)
		api.PUT("/folders/:id", srv.handleUpdateFolder)
		api.DELETE("/folders/:id", srv.handleDeleteFolder)
		api.POST("/folders/:id/archive", srv.handleArchiveFolder)
		api.POST("/folders/:id/restore", srv.handleRestoreFolder)

		api.GET("/views/today", srv.handleViewToday)
		api.GET("/views/upcoming", srv.handleViewUpcoming)
		api.GET("/views/overdue", srv.handleViewOverdue)
		api.GET("/views/folder/:id", srv.handleViewFolder)

		api.GET("/todos/:id/reminders", srv.handleListReminders)
		api.POST("/todos/:id/reminders", srv.handleCreateReminder)
		api.DELETE("/reminders/:id", srv.handleDeleteReminder)

		api.GET("/notifications", srv.handleListNotifications)
		api.POST("/notifications/:id/read", srv.handleMarkNotificationRead)

		api.GET("/sync/changes", srv.handleSyncChanges)
	}

	return srv
}

// Run starts the API server on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// bearerAuth rejects requests whose Authorization header does not carry
// the expected bearer token.
func bearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		got, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || got != token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid or missing bearer token",
			})
			return
		}
		c.Next()
	}
}
