package api

import (
	"strings"

	"royale/application"
	"royale/domain/entities"
	"royale/payments"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

const sessionKey = "session"

// Server wires the HTTP surface to the storage backend. Every mutating
// request runs inside its own unit of work.
type Server struct {
	uowFactory application.UnitOfWorkFactory
	sessions   *SessionManager
	gateway    *payments.Gateway
	worker     *application.ResolutionWorker
}

// NewServer creates the API server
func NewServer(
	uowFactory application.UnitOfWorkFactory,
	sessions *SessionManager,
	gateway *payments.Gateway,
	worker *application.ResolutionWorker,
) *Server {
	return &Server{
		uowFactory: uowFactory,
		sessions:   sessions,
		gateway:    gateway,
		worker:     worker,
	}
}

// Router builds the gin engine with all routes registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger())

	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})
		public.POST("/auth/register", s.handleRegister)
		public.POST("/auth/login", s.handleLogin)

		public.GET("/raffles", s.handleListRaffles)
		public.GET("/raffles/top", s.handleTopRaffles)
		public.GET("/raffles/categories", s.handleCategorizedRaffles)
		public.GET("/raffles/:id", s.handleGetRaffle)
		public.GET("/polls", s.handleListPolls)
	}

	protected := router.Group("/api/v1")
	protected.Use(s.requireSession())
	{
		protected.POST("/auth/logout", s.handleLogout)

		protected.POST("/raffles/:id/purchase", s.handlePurchase)
		protected.POST("/raffles/:id/free-entry", s.handleFreeEntry)

		protected.GET("/profile", s.handleGetProfile)
		protected.PUT("/profile", s.handleUpdateProfile)
		protected.POST("/profile/topup", s.handleTopup)
		protected.POST("/profile/topup/confirm", s.handleTopupConfirm)
		protected.POST("/profile/favorites/:id", s.handleToggleFavorite)

		protected.POST("/polls/:id/vote", s.handleVote)
	}

	admin := router.Group("/api/v1")
	admin.Use(s.requireSession(), s.requireAdmin())
	{
		admin.POST("/raffles", s.handleUpsertRaffle)
		admin.PUT("/raffles/:id", s.handleUpsertRaffle)
		admin.POST("/raffles/:id/end", s.handleEndRaffle)

		admin.POST("/polls", s.handleCreatePoll)

		admin.GET("/activity", s.handleListActivity)
		admin.DELETE("/activity", s.handleClearActivity)

		admin.GET("/admin/users", s.handleListUsers)
		admin.PUT("/admin/users/:username", s.handleUpdateUser)
		admin.POST("/admin/users/:username/toggle-admin", s.handleToggleAdmin)
		admin.DELETE("/admin/users/:username", s.handleDeleteUser)
	}

	return router
}

// requireSession resolves the bearer token into a session
func (s *Server) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(c, entities.ErrNotLoggedIn())
			c.Abort()
			return
		}

		session := s.sessions.Get(token)
		if session == nil {
			respondError(c, entities.ErrNotLoggedIn())
			c.Abort()
			return
		}

		c.Set(sessionKey, session)
		c.Next()
	}
}

// requireAdmin gates the back-office routes. The services re-check the stored
// role, this just rejects early.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !sessionFrom(c).IsAdmin {
			respondError(c, entities.ErrNotAuthorized())
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionFrom(c *gin.Context) *entities.Session {
	return c.MustGet(sessionKey).(*entities.Session)
}

// begin opens a unit of work for the request, replying on failure
func (s *Server) begin(c *gin.Context) (application.UnitOfWork, bool) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(c.Request.Context()); err != nil {
		respondError(c, err)
		return nil, false
	}
	return uow, true
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		log.WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		}).Debug("request handled")
	}
}
