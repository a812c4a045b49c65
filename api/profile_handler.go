package api

import (
	"net/http"

	"royale/domain/entities"
	"royale/payments"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (s *Server) handleGetProfile(c *gin.Context) {
	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.profileService(uow)
	user, err := svc.GetProfile(c.Request.Context(), sessionFrom(c).Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": sanitizeUser(user)})
}

type updateProfileRequest struct {
	Password *string `json:"password"`
}

// handleUpdateProfile applies the self-service account edits
func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid profile payload")
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.profileService(uow)
	user, err := svc.UpdateProfile(c.Request.Context(), sessionFrom(c).Username, func(u *entities.User) error {
		if req.Password != nil && *req.Password != "" {
			u.Password = *req.Password
		}
		return nil
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

type topupRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// handleTopup starts a deposit. Roughly half of all cards get sent through a
// 3-D Secure round trip; the balance is only credited once the acquirer
// approves.
func (s *Server) handleTopup(c *gin.Context) {
	var req topupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "amount is required")
		return
	}
	if !req.Amount.IsPositive() {
		respondError(c, entities.ErrInvalidAmount())
		return
	}

	result, err := s.gateway.Initiate(req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	s.settleDeposit(c, result)
}

type topupConfirmRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	Approved      bool   `json:"approved"`
}

// handleTopupConfirm settles a pending 3-D Secure transaction
func (s *Server) handleTopupConfirm(c *gin.Context) {
	var req topupConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "transactionId is required")
		return
	}

	result, err := s.gateway.Confirm3DS(req.TransactionID, req.Approved)
	if err != nil {
		respondBadRequest(c, "unknown transaction")
		return
	}
	s.settleDeposit(c, result)
}

func (s *Server) settleDeposit(c *gin.Context, result payments.Result) {
	switch result.Status {
	case payments.StatusRequires3DS:
		c.JSON(http.StatusOK, gin.H{"ok": true, "requires3ds": true, "transactionId": result.TransactionID})
	case payments.StatusDeclined:
		respondError(c, entities.ErrPaymentDeclined())
	case payments.StatusApproved:
		uow, ok := s.begin(c)
		if !ok {
			return
		}
		defer uow.Rollback()

		svc := s.profileService(uow)
		user, err := svc.RecordDeposit(c.Request.Context(), sessionFrom(c).Username, result.Amount)
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
}

func (s *Server) handleToggleFavorite(c *gin.Context) {
	id, ok := raffleIDParam(c)
	if !ok {
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.profileService(uow)
	user, err := svc.ToggleFavorite(c.Request.Context(), sessionFrom(c).Username, id)
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
