package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thuale/todoflow/internal/model"
	"github.com/thuale/todoflow/internal/occurrence"
	"github.com/thuale/todoflow/internal/store"
)

const maxTitleSize = 10 << 10 // 10KB

// === Todos ===

func (s *Server) handleListTodos(c *gin.Context) {
	filter := store.TodoFilter{
		SortBy:   c.DefaultQuery("sort", "sort_order"),
		SortDesc: c.Query("desc") == "true",
	}
	if v := c.Query("status"); v != "" {
		filter.Status = &v
	}
	if v := c.Query("folder"); v != "" {
		filter.FolderID = &v
	}
	if v := c.Query("q"); v != "" {
		filter.Query = &v
	}
	if v := c.Query("due"); v != "" {
		filter.Due = &v
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "0"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	todos, err := s.store.GetTodos(c.Request.Context(), filter)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"todos":   todos,
		"count":   len(todos),
	})
}

func (s *Server) handleCreateTodo(c *gin.Context) {
	var todo model.Todo
	if err := c.BindJSON(&todo); err != nil {
		badRequest(c, err.Error())
		return
	}
	if todo.Title == "" {
		badRequest(c, "title required")
		return
	}
	if len(todo.Title) > maxTitleSize {
		badRequest(c, "title exceeds maximum size of 10KB")
		return
	}
	if todo.Recurring != nil {
		if err := todo.Recurring.Validate(); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	created, err := s.store.CreateTodo(c.Request.Context(), todo)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"todo":    created,
	})
}

func (s *Server) handleGetTodo(c *gin.Context) {
	todo, err := s.store.GetTodoByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"todo":    todo,
	})
}

func (s *Server) handleUpdateTodo(c *gin.Context) {
	var todo model.Todo
	if err := c.BindJSON(&todo); err != nil {
		badRequest(c, err.Error())
		return
	}
	todo.ID = c.Param("id")
	if todo.Recurring != nil {
		if err := todo.Recurring.Validate(); err != nil {
			badRequest(c, err.Error())
			return
		}
	}

	if err := s.store.UpdateTodo(c.Request.Context(), todo); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      todo.ID,
	})
}

func (s *Server) handleDeleteTodo(c *gin.Context) {
	if err := s.store.DeleteTodo(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// toggleRequest carries a toggle interaction from a view. Date is the
// occurrence date for virtual entries in smart views, formatted
// "2006-01-02".
type toggleRequest struct {
	Context   string `json:"context"`
	Date      string `json:"date,omitempty"`
	Completed bool   `json:"completed"`
}

func (s *Server) handleToggleTodo(c *gin.Context) {
	var req toggleRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var viewCtx occurrence.Context
	switch req.Context {
	case "", string(occurrence.ContextFolderView):
		viewCtx = occurrence.ContextFolderView
	case string(occurrence.ContextSmartView):
		viewCtx = occurrence.ContextSmartView
	default:
		badRequest(c, "context must be smart-view or folder-view")
		return
	}

	var virtualDate *model.Date
	if req.Date != "" {
		d, err := model.ParseDate(req.Date)
		if err != nil {
			badRequest(c, err.Error())
			return
		}
		virtualDate = &d
	}

	action, err := s.toggle.Toggle(c.Request.Context(), viewCtx, c.Param("id"), virtualDate, req.Completed)
	if err != nil {
		if errors.Is(err, occurrence.ErrMissingVirtualDate) {
			badRequest(c, err.Error())
			return
		}
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"action":  actionName(action),
	})
}

func actionName(a occurrence.Action) string {
	switch a.(type) {
	case occurrence.AdvanceRecurring:
		return "advance-recurring"
	case occurrence.SetPastCompletion:
		return "set-past-completion"
	case occurrence.SimpleToggle:
		return "simple-toggle"
	default:
		return "unknown"
	}
}

func (s *Server) handleReorderTodo(c *gin.Context) {
	var req struct {
		SortOrder int `json:"sort_order"`
	}
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	if err := s.store.ReorderTodo(c.Request.Context(), c.Param("id"), req.SortOrder); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// === Subtasks ===

func (s *Server) handleListSubtasks(c *gin.Context) {
	items, err := s.store.GetSubtasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"subtasks": items,
	})
}

func (s *Server) handleAddSubtask(c *gin.Context) {
	var item model.Subtask
	if err := c.BindJSON(&item); err != nil {
		badRequest(c, err.Error())
		return
	}
	item.TodoID = c.Param("id")
	if item.Text == "" {
		badRequest(c, "text required")
		return
	}

	created, err := s.store.AddSubtask(c.Request.Context(), item)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"subtask": created,
	})
}

func (s *Server) handleUpdateSubtask(c *gin.Context) {
	var item model.Subtask
	if err := c.BindJSON(&item); err != nil {
		badRequest(c, err.Error())
		return
	}
	item.ID = c.Param("id")

	if err := s.store.UpdateSubtask(c.Request.Context(), item); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeleteSubtask(c *gin.Context) {
	if err := s.store.DeleteSubtask(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleToggleSubtask(c *gin.Context) {
	if err := s.store.ToggleSubtask(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// === Folders ===

func (s *Server) handleListFolders(c *gin.Context) {
	includeArchived := c.Query("archived") == "true"

	folders, err := s.store.GetFolders(c.Request.Context(), includeArchived)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"folders": folders,
	})
}

func (s *Server) handleCreateFolder(c *gin.Context) {
	var folder model.Folder
	if err := c.BindJSON(&folder); err != nil {
		badRequest(c, err.Error())
		return
	}
	if folder.Name == "" {
		badRequest(c, "name required")
		return
	}

	created, err := s.store.CreateFolder(c.Request.Context(), folder)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"folder":  created,
	})
}

func (s *Server) handleUpdateFolder(c *gin.Context) {
	var folder model.Folder
	if err := c.BindJSON(&folder); err != nil {
		badRequest(c, err.Error())
		return
	}
	folder.ID = c.Param("id")

	if err := s.store.UpdateFolder(c.Request.Context(), folder); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleDeleteFolder(c *gin.Context) {
	if err := s.store.DeleteFolder(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleArchiveFolder(c *gin.Context) {
	if err := s.store.ArchiveFolder(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handleRestoreFolder(c *gin.Context) {
	if err := s.store.RestoreFolder(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// === Views ===

func (s *Server) handleViewToday(c *gin.Context) {
	entries, err := s.views.Today(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	viewResponse(c, entries)
}

func (s *Server) handleViewUpcoming(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "0"))

	entries, err := s.views.Upcoming(c.Request.Context(), days)
	if err != nil {
		internalError(c, err)
		return
	}
	viewResponse(c, entries)
}

func (s *Server) handleViewOverdue(c *gin.Context) {
	entries, err := s.views.Overdue(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	viewResponse(c, entries)
}

func (s *Server) handleViewFolder(c *gin.Context) {
	entries, err := s.views.Folder(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, err)
		return
	}
	viewResponse(c, entries)
}

// === Reminders ===

func (s *Server) handleListReminders(c *gin.Context) {
	reminders, err := s.store.GetRemindersForTodo(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"reminders": reminders,
	})
}

func (s *Server) handleCreateReminder(c *gin.Context) {
	var rem model.Reminder
	if err := c.BindJSON(&rem); err != nil {
		badRequest(c, err.Error())
		return
	}
	rem.TodoID = c.Param("id")
	if rem.RemindAt.IsZero() {
		badRequest(c, "remind_at required")
		return
	}

	created, err := s.store.CreateReminder(c.Request.Context(), rem)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":  true,
		"reminder": created,
	})
}

func (s *Server) handleDeleteReminder(c *gin.Context) {
	if err := s.store.DeleteReminder(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// === Notifications ===

func (s *Server) handleListNotifications(c *gin.Context) {
	notifications, err := s.store.GetUnreadNotifications(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
	})
}

func (s *Server) handleMarkNotificationRead(c *gin.Context) {
	if err := s.store.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		notFoundOrError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// === Sync ===

// handleSyncChanges serves incremental changes to sync clients. A zero
// or absent since returns everything.
func (s *Server) handleSyncChanges(c *gin.Context) {
	var since time.Time
	if v := c.Query("since"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, "since must be RFC3339")
			return
		}
		since = parsed
	}

	todos, err := s.store.GetTodosUpdatedSince(c.Request.Context(), since)
	if err != nil {
		internalError(c, err)
		return
	}
	completions, err := s.store.GetCompletionsUpdatedSince(c.Request.Context(), since)
	if err != nil {
		internalError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"todos":       todos,
		"completions": completions,
		"server_time": time.Now().UTC(),
	})
}

// === Helpers ===

func viewResponse(c *gin.Context, entries any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entries": entries,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error":   err.Error(),
	})
}

func notFoundOrError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   "not found",
		})
		return
	}
	internalError(c, err)
}
