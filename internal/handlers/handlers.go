package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"flatfinder/internal/config"
	"flatfinder/internal/middleware"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
	"flatfinder/internal/service"
)

// Revocations is the token denylist: written on logout, read by the gateway.
type Revocations interface {
	service.TokenRevoker
	middleware.RevocationChecker
}

type Dependencies struct {
	Config       *config.AppConfig
	Log          zerolog.Logger
	Store        *repository.Store
	Revocations  Revocations
	LoginLimiter middleware.AttemptLimiter
	Tasks        service.TaskPublisher
	Objects      service.ObjectStore
	// PasswordParams overrides the argon2 cost; zero means the defaults.
	PasswordParams security.Argon2Params
	CachePing      func(ctx context.Context) error
}

type HandlerSet struct {
	log   zerolog.Logger
	cfg   *config.AppConfig
	deps  Dependencies
	auth  *service.AuthService
	users *service.UserService

	flats     *service.FlatService
	favorites *service.FavoriteService
	messages  *service.MessageService
	photos    *service.PhotoService
}

func NewHandlerSet(deps Dependencies) HandlerSet {
	params := deps.PasswordParams
	if params == (security.Argon2Params{}) {
		params = security.DefaultParams
	}
	store := deps.Store

	return HandlerSet{
		log:       deps.Log,
		cfg:       deps.Config,
		deps:      deps,
		auth:      service.NewAuthService(store.Users, deps.Revocations, deps.Config.Security, params, deps.Log),
		users:     service.NewUserService(store.Users, store.Flats, deps.Tasks, params, deps.Log),
		flats:     service.NewFlatService(store.Flats, deps.Tasks, deps.Log),
		favorites: service.NewFavoriteService(store.Favorites),
		messages:  service.NewMessageService(store.Messages, store.Flats, store.Users, deps.Log),
		photos:    service.NewPhotoService(store.Photos, store.Flats, deps.Objects, deps.Config, deps.Log),
	}
}

// Auth exposes the account service for startup tasks such as admin bootstrap.
func (h HandlerSet) Auth() *service.AuthService {
	return h.auth
}

// Register mounts every route. Routes outside the protected group are public.
func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	login := []gin.HandlerFunc{h.Login}
	if h.deps.LoginLimiter != nil {
		login = append([]gin.HandlerFunc{middleware.LoginRateLimit(h.deps.LoginLimiter, h.log)}, login...)
	}
	router.POST("/register", h.RegisterUser)
	router.POST("/login", login...)

	router.GET("/flats", h.ListFlats)
	router.GET("/flats/:id", h.GetFlat)
	router.GET("/flats/:id/photos", h.ListPhotos)
	router.GET("/photos/:id", h.DownloadPhoto)

	protected := router.Group("")
	protected.Use(middleware.Auth(h.cfg, h.deps.Store.Users, h.deps.Revocations, h.log))
	{
		protected.POST("/logout", h.Logout)
		protected.GET("/me", h.Me)

		protected.GET("/users", middleware.RequireAdmin(), h.ListUsers)
		protected.GET("/users/:id", h.GetUser)
		protected.PUT("/users/:id", h.UpdateUser)
		protected.DELETE("/users/:id", h.DeleteUser)
		protected.PUT("/users/:id/password", h.ChangePassword)
		protected.PUT("/users/:id/admin", middleware.RequireAdmin(), h.SetAdmin)

		protected.GET("/users/:id/favorites", h.ListFavorites)
		protected.POST("/users/:id/favorites", h.AddFavorite)
		protected.DELETE("/users/:id/favorites/:flatId", h.RemoveFavorite)

		protected.POST("/flats", h.CreateFlat)
		protected.PUT("/flats/:id", h.UpdateFlat)
		protected.DELETE("/flats/:id", h.DeleteFlat)

		protected.POST("/flats/:id/photos", h.UploadPhoto)
		protected.DELETE("/photos/:id", h.DeletePhoto)

		protected.GET("/messages", h.Inbox)
		protected.GET("/messages/sent", h.SentMessages)
		protected.POST("/messages", h.SendMessage)
		protected.PUT("/messages/:id/read", h.MarkMessageRead)
		protected.DELETE("/messages/:id", h.DeleteMessage)
	}
}

// identity is only called behind the Auth middleware.
func identity(c *gin.Context) (security.Identity, bool) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Access denied. No token provided."})
	}
	return id, ok
}

func message(c *gin.Context, status int, text string) {
	c.JSON(status, gin.H{"message": text})
}
