package api

import (
	"net/http"
	"strconv"
	"time"

	"royale/application"
	"royale/domain/interfaces"
	"royale/domain/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// resolveOverdue runs a resolution pass before serving catalog reads, so a
// raffle past its deadline is never observed open. Pass failures are logged
// and the read proceeds on the stored state.
func (s *Server) resolveOverdue(c *gin.Context) {
	if s.worker == nil {
		return
	}
	if err := s.worker.RunPass(c.Request.Context()); err != nil {
		log.WithError(err).Warn("resolution pass before catalog read failed")
	}
}

func raffleIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "invalid raffle id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleListRaffles(c *gin.Context) {
	s.resolveOverdue(c)

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.catalogService(uow)
	raffles, err := svc.ListRaffles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "raffles": raffles})
}

func (s *Server) handleTopRaffles(c *gin.Context) {
	s.resolveOverdue(c)

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.catalogService(uow)
	raffles, err := svc.TopRaffles(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "raffles": raffles})
}

func (s *Server) handleCategorizedRaffles(c *gin.Context) {
	s.resolveOverdue(c)

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.catalogService(uow)
	categories, err := svc.Categorized(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "categories": categories})
}

func (s *Server) handleGetRaffle(c *gin.Context) {
	id, ok := raffleIDParam(c)
	if !ok {
		return
	}
	s.resolveOverdue(c)

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.catalogService(uow)
	raffle, err := svc.GetRaffle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "raffle": raffle})
}

type purchaseRequest struct {
	Count int `json:"count"`
}

func (s *Server) handlePurchase(c *gin.Context) {
	id, ok := raffleIDParam(c)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "count is required")
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.ledgerService(uow)
	result, err := svc.Purchase(c.Request.Context(), sessionFrom(c).Username, id, req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ok":         true,
		"raffle":     result.Raffle,
		"count":      result.Count,
		"totalPrice": result.TotalPrice,
		"newBalance": result.NewBalance,
	})
}

func (s *Server) handleFreeEntry(c *gin.Context) {
	id, ok := raffleIDParam(c)
	if !ok {
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.ledgerService(uow)
	raffle, err := svc.ClaimFreeTicket(c.Request.Context(), sessionFrom(c).Username, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "raffle": raffle})
}

type upsertRaffleRequest struct {
	Title        *string          `json:"title"`
	Description  *string          `json:"description"`
	Image        *string          `json:"image"`
	Category     *string          `json:"category"`
	Value        *decimal.Decimal `json:"value"`
	TicketPrice  *decimal.Decimal `json:"ticketPrice"`
	TotalTickets *int             `json:"totalTickets"`
	EndsAt       *time.Time       `json:"endsAt"`
}

// handleUpsertRaffle serves both POST /raffles and PUT /raffles/:id
func (s *Server) handleUpsertRaffle(c *gin.Context) {
	var id int64
	if c.Param("id") != "" {
		parsed, ok := raffleIDParam(c)
		if !ok {
			return
		}
		id = parsed
	}

	var req upsertRaffleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid raffle payload")
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.catalogService(uow)
	raffle, err := svc.UpsertRaffle(c.Request.Context(), sessionFrom(c).Username, interfaces.UpsertRaffleInput{
		ID:           id,
		Title:        req.Title,
		Description:  req.Description,
		Image:        req.Image,
		Category:     req.Category,
		Value:        req.Value,
		TicketPrice:  req.TicketPrice,
		TotalTickets: req.TotalTickets,
		EndsAt:       req.EndsAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "raffle": raffle})
}

func (s *Server) handleEndRaffle(c *gin.Context) {
	id, ok := raffleIDParam(c)
	if !ok {
		return
	}

	uow, ok := s.begin(c)
	if !ok {
		return
	}
	defer uow.Rollback()

	svc := s.catalogService(uow)
	raffle, err := svc.EndRaffle(c.Request.Context(), sessionFrom(c).Username, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if err := uow.Commit(); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "raffle": raffle})
}

// Service constructors, one per unit of work

func (s *Server) ledgerService(uow application.UnitOfWork) interfaces.LedgerService {
	return services.NewLedgerService(uow.UserRepository(), uow.RaffleRepository(), uow.ActivityRepository(), uow.EventBus())
}

func (s *Server) catalogService(uow application.UnitOfWork) interfaces.CatalogService {
	return services.NewCatalogService(uow.UserRepository(), uow.RaffleRepository(), uow.ActivityRepository(), s.ledgerService(uow))
}

func (s *Server) profileService(uow application.UnitOfWork) interfaces.ProfileService {
	return services.NewProfileService(uow.UserRepository(), uow.ActivityRepository(), uow.EventBus())
}

func (s *Server) pollService(uow application.UnitOfWork) interfaces.PollService {
	return services.NewPollService(uow.UserRepository(), uow.PollRepository(), uow.ActivityRepository(), uow.EventBus())
}
