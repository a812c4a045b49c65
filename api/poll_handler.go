package api

import (
	"net/http"
	"strconv"
	"time"

	"royale/domain/entities"

	"github.com/gin-gonic/gin"
)

func pollIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid poll id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleListPolls(c *gin.Context) {
	s.resolveOverdue(c)

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.pollService(uow)
	polls, err := svc.ListPolls(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "polls": polls})
}

type voteRequest struct {
	OptionID string `json:"optionId" binding:"required"`
}

func (s *Server) handleVote(c *gin.Context) {
	id, ok := pollIDParam(c)
	if !ok {
		return
	}
	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "optionId is required")
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.pollService(uow)
	poll, err := svc.Vote(c.Request.Context(), sessionFrom(c).Username, id, req.OptionID)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "poll": poll})
}

type createPollRequest struct {
	Question string `json:"question" binding:"required"`
	Options  []struct {
		ID    string `json:"id" binding:"required"`
		Label string `json:"label" binding:"required"`
		Image string `json:"image"`
	} `json:"options" binding:"required,min=2"`
	EndsAt time.Time `json:"endsAt" binding:"required"`
}

func (s *Server) handleCreatePoll(c *gin.Context) {
	var req createPollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "question, at least two options and endsAt are required")
		return
	}

	options := make([]entities.PollOption, 0, len(req.Options))
	for _, o := range req.Options {
		options = append(options, entities.PollOption{ID: o.ID, Label: o.Label, Image: o.Image})
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.pollService(uow)
	poll, err := svc.CreatePoll(c.Request.Context(), sessionFrom(c).Username, &entities.Poll{
		Question: req.Question,
		Options:  options,
		EndsAt:   req.EndsAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "poll": poll})
}
