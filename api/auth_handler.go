package api

import (
	"net/http"

	"royale/domain/entities"
	"royale/domain/services"

	"github.com/gin-gonic/gin"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleRegister creates an account and issues a session
func (s *Server) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := services.NewProfileService(uow.UserRepository(), uow.ActivityRepository(), uow.EventBus())
	user, err := svc.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}

	session := s.sessions.Issue(user)
	c.JSON(http.StatusCreated, gin.H{"ok": true, "token": session.Token, "user": sanitizeUser(user)})
}

// handleLogin authenticates and issues a session. Login also advances the
// account's daily and weekly streaks.
func (s *Server) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := services.NewProfileService(uow.UserRepository(), uow.ActivityRepository(), uow.EventBus())
	user, err := svc.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}

	session := s.sessions.Issue(user)
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": session.Token, "user": sanitizeUser(user)})
}

// handleLogout revokes the presented token
func (s *Server) handleLogout(c *gin.Context) {
	s.sessions.Revoke(sessionFrom(c).Token)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// sanitizeUser strips the stored password from an API response
func sanitizeUser(u *entities.User) *entities.User {
	clean := u.Clone()
	clean.Password = ""
	return clean
}
