package api

import (
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vietanh2810/rally-api/docs"
	v1 "github.com/vietanh2810/rally-api/internal/api/handler/v1"
	"github.com/vietanh2810/rally-api/internal/api/middleware"
	"github.com/vietanh2810/rally-api/internal/config"
	"github.com/vietanh2810/rally-api/internal/payment"
	"github.com/vietanh2810/rally-api/internal/repository"
	"github.com/vietanh2810/rally-api/internal/repository/dao"
	"github.com/vietanh2810/rally-api/internal/service"
	"github.com/vietanh2810/rally-api/internal/storage"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine
	Hub    *v1.CapacityHub
}

type repositories struct {
	users         *repository.UserRepository
	events        *repository.EventRepository
	catalog       *repository.CatalogRepository
	registrations *repository.RegistrationRepository
}

type handlers struct {
	auth          *v1.AuthHandler
	user          *v1.UserHandler
	event         *v1.EventHandler
	catalog       *v1.CatalogHandler
	registration  *v1.RegistrationHandler
	payment       *v1.PaymentHandler
	userSvc       *service.UserService
	capacityHub   *v1.CapacityHub
	authenticator *middleware.Authenticator
}

// NewServer wires every handler. uploader may be nil when media storage is
// not configured; gateway must not be.
func NewServer(conf *config.AppConfig, db *gorm.DB, gateway payment.Gateway, uploader storage.Uploader) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	s := &Server{
		Config: conf,
		Router: engine,
		Hub:    v1.NewCapacityHub(conf.API),
	}

	s.MountMiddlewares()

	repos := newRepositories(db)
	userSvc := service.NewUserService(repos.users, repos.catalog)
	checkoutSvc := service.NewCheckoutService(repos.events, repos.registrations, repos.users, gateway, s.Hub)

	s.MountHandlers(handlers{
		auth:          s.initAuthHandler(repos),
		user:          v1.NewUserHandler(userSvc),
		event:         v1.NewEventHandler(service.NewEventService(repos.events)),
		catalog:       v1.NewCatalogHandler(service.NewCatalogService(repos.catalog, uploader)),
		registration:  s.initRegistrationHandler(repos, checkoutSvc, userSvc),
		payment:       v1.NewPaymentHandler(checkoutSvc),
		userSvc:       userSvc,
		capacityHub:   s.Hub,
		authenticator: middleware.NewAuthenticator(conf.API.JWTSigningKey),
	})

	return s
}

func newRepositories(db *gorm.DB) repositories {
	return repositories{
		users:         repository.NewUserRepository(dao.NewUserDAO(db)),
		events:        repository.NewEventRepository(dao.NewEventDAO(db)),
		catalog:       repository.NewCatalogRepository(dao.NewCatalogDAO(db)),
		registrations: repository.NewRegistrationRepository(dao.NewRegistrationDAO(db)),
	}
}

func (s *Server) initAuthHandler(repos repositories) *v1.AuthHandler {
	svc := service.NewAuthService(repos.users)
	handler := v1.NewAuthHandler(s.Config.API, svc)

	return handler
}

func (s *Server) initRegistrationHandler(repos repositories, checkout *service.CheckoutService, uSvc *service.UserService) *v1.RegistrationHandler {
	loc, err := time.LoadLocation(s.Config.API.TimeZone)
	if err != nil {
		zap.L().Warn("unknown time zone, exports use UTC", zap.String("time_zone", s.Config.API.TimeZone), zap.Error(err))
		loc = time.UTC
	}

	svc := service.NewRegistrationService(repos.registrations, loc)
	handler := v1.NewRegistrationHandler(checkout, svc, uSvc)

	return handler
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API))
}

func (s *Server) MountHandlers(h handlers) {
	const basePath = "/api/v1"

	public := s.Router.Group(basePath)
	{
		public.POST("/auth/signup", h.auth.HandleSignup)
		public.POST("/auth/login", h.auth.HandleLogin)
		public.POST("/auth/logout", h.auth.HandleLogout)

		public.GET("/events", h.event.HandleListEvents)
		public.GET("/events/:eventID", h.event.HandleGetEvent)
		public.POST("/events/:eventID/quote", h.event.HandleQuote)
		public.GET("/capacity/ws", h.capacityHub.HandleWebSocket)

		public.GET("/gallery", h.catalog.HandleListGallery)
		public.GET("/merchandise", h.catalog.HandleListMerchandise)

		public.POST("/payments/intent", h.payment.HandleCreateIntent)
		public.GET("/payments/config", h.payment.HandlePaymentConfig)
	}

	users := s.Router.Group(basePath, h.authenticator.VerifyJWT())
	{
		users.GET("/users/me", h.user.HandleGetMe)
		users.POST("/users/me/orders", h.user.HandlePlaceOrder)
		users.POST("/events/:eventID/registrations/team", h.registration.HandleRegisterTeam)
		users.POST("/events/:eventID/registrations/individual", h.registration.HandleRegisterIndividual)
	}

	admin := s.Router.Group(basePath+"/admin", middleware.NewAdminGate(s.Config.API, h.userSvc).Require())
	{
		admin.POST("/events", h.event.HandleCreateEvent)
		admin.PATCH("/events/:eventID", h.event.HandleUpdateEvent)
		admin.DELETE("/events/:eventID", h.event.HandleDeleteEvent)

		admin.POST("/gallery", h.catalog.HandleCreateGalleryItem)
		admin.PATCH("/gallery/:itemID", h.catalog.HandleUpdateGalleryItem)
		admin.DELETE("/gallery/:itemID", h.catalog.HandleDeleteGalleryItem)

		admin.POST("/merchandise", h.catalog.HandleCreateMerchandiseItem)
		admin.PATCH("/merchandise/:itemID", h.catalog.HandleUpdateMerchandiseItem)
		admin.DELETE("/merchandise/:itemID", h.catalog.HandleDeleteMerchandiseItem)

		admin.POST("/uploads/:collection", h.catalog.HandleUpload)

		admin.GET("/registrations", h.registration.HandleListRegistrations)
		admin.GET("/registrations/export.csv", h.registration.HandleExportCSV)
		admin.GET("/registrations/:registrationID", h.registration.HandleGetRegistration)
		admin.PATCH("/registrations/:registrationID/check-in", h.registration.HandleCheckIn)

		admin.GET("/reconciliations", h.payment.HandleListReconciliations)
		admin.POST("/reconciliations/:reconciliationID/retry", h.payment.HandleRetryReconciliation)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Rally API"
	docs.SwaggerInfo.Description = "Registrations, payments and content for the community car rally."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
