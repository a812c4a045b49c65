package api

import (
	"fmt"
	"net/http"
	"strconv"

	"royale/domain/entities"
	"royale/domain/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func (s *Server) handleListUsers(c *gin.Context) {
	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.profileService(uow)
	users, err := svc.ListUsers(c.Request.Context(), sessionFrom(c).Username)
	if err != nil {
		respondError(c, err)
		return
	}

	sanitized := make([]*entities.User, len(users))
	for i, user := range users {
		sanitized[i] = sanitizeUser(user)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": sanitized})
}

type updateUserRequest struct {
	Balance  *decimal.Decimal `json:"balance"`
	Password *string          `json:"password"`
}

func (s *Server) handleUpdateUser(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid user payload")
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.profileService(uow)
	user, err := svc.UpdateUser(c.Request.Context(), sessionFrom(c).Username, c.Param("username"), interfaces.UserUpdate{
		Balance:  req.Balance,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": sanitizeUser(user)})
}

func (s *Server) handleToggleAdmin(c *gin.Context) {
	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.profileService(uow)
	user, err := svc.ToggleAdminRole(c.Request.Context(), sessionFrom(c).Username, c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}

	// Live sessions pick up the role change immediately
	s.sessions.Refresh(user.Username, user.IsAdmin())
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": sanitizeUser(user)})
}

func (s *Server) handleDeleteUser(c *gin.Context) {
	username := c.Param("username")

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.profileService(uow)
	if err := svc.DeleteUser(c.Request.Context(), sessionFrom(c).Username, username); err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}

	s.sessions.RevokeUser(username)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) handleListActivity(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := parsePositiveInt(raw)
		if err != nil {
			respondBadRequest(c, "invalid limit")
			return
		}
		limit = parsed
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	entries, err := uow.ActivityRepository().List(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "activity": entries})
}

func (s *Server) handleClearActivity(c *gin.Context) {
	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	if err := uow.ActivityRepository().Clear(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
