package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/internal/auth"
	"campus/internal/campus"
	"campus/internal/cloudinary"
	"campus/internal/httpmiddleware"
	"campus/internal/metrics"
	"campus/internal/store"
)

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Services *campus.Services
	Store    store.Store
	Redis    *store.Redis
	Verifier auth.Verifier

	// Limiter is optional; nil disables rate limiting.
	Limiter httpmiddleware.Limiter
	// Metrics is optional; nil disables instrumentation.
	Metrics *metrics.Metrics
	// MetricsHandler serves /metrics; defaults to the global prometheus registry.
	MetricsHandler http.Handler

	// Images uploads photos attached directly to lost-and-found items; nil answers 503.
	Images ImageUploader

	CORSOrigins []string
}

// ImageUploader stores an image and returns its public location.
type ImageUploader interface {
	UploadBase64(ctx context.Context, data string) (*cloudinary.UploadResult, error)
	UploadBytes(ctx context.Context, data []byte, filename string) (*cloudinary.UploadResult, error)
}

type handler struct {
	svc     *campus.Services
	store   store.Store
	redis   *store.Redis
	metrics *metrics.Metrics
	images  ImageUploader
}

// NewRouter builds the gin engine with middleware and every route mounted.
func NewRouter(d Deps) *gin.Engine {
	h := &handler{svc: d.Services, store: d.Store, redis: d.Redis, metrics: d.Metrics, images: d.Images}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware(d.CORSOrigins))
	r.Use(securityHeaders())
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware())
	}
	if d.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(d.Limiter))
	}

	metricsHandler := d.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))
	r.GET("/healthz", h.health)

	api := r.Group("/api", auth.Authenticate(d.Verifier))
	admin := auth.RequireAdmin()

	api.GET("/auth/me", auth.RequireUser(), h.me)

	ann := api.Group("/announcement/announcements")
	ann.POST("", admin, h.createAnnouncement)
	ann.GET("", h.listAnnouncements)
	ann.GET("/:id", h.getAnnouncement)
	ann.PUT("/:id", admin, h.updateAnnouncement)
	ann.DELETE("/:id", admin, h.deleteAnnouncement)

	complaints := api.Group("/complaints")
	complaints.POST("", h.createComplaint)
	complaints.GET("", h.listComplaints)
	complaints.GET("/:id", h.getComplaint)
	complaints.PUT("/:id", h.updateComplaint)
	complaints.PATCH("/:id/status", h.setComplaintStatus)
	complaints.DELETE("/:id", h.deleteComplaint)

	lost := api.Group("/lostfound")
	lost.POST("/report", h.reportItem)
	lost.GET("", h.listItems)
	lost.GET("/:id", h.getItem)
	lost.PUT("/:id", h.updateItem)
	lost.PUT("/resolve/:id", h.resolveItem)
	lost.POST("/:id/image", h.uploadItemImage)
	lost.DELETE("/:id", h.deleteItem)

	tt := api.Group("/timetable/timetable")
	tt.POST("", h.createTimetableEntry)
	tt.GET("/:userId", h.listTimetable)
	tt.PUT("/:id", h.updateTimetableEntry)
	tt.DELETE("/:id", h.deleteTimetableEntry)

	book := api.Group("/book")
	book.POST("", h.createBooking)
	book.GET("", h.listBookings)
	book.GET("/:id", h.getBooking)
	book.PUT("/:id", h.updateBooking)
	book.DELETE("/:id", h.deleteBooking)

	polls := api.Group("/polls")
	polls.POST("/create", h.createPoll)
	polls.GET("", h.listPolls)
	polls.POST("/vote", h.vote)
	polls.GET("/results/:pollId", h.pollResults)
	polls.GET("/:id", h.getPoll)
	polls.PUT("/:id", admin, h.updatePoll)
	polls.DELETE("/:id", admin, h.deletePoll)

	mentor := api.Group("/mentor")
	mentor.POST("/create", h.createMentor)
	mentor.GET("/getall", h.listMentors)
	mentor.GET("/:userId", h.mentorsForUser)
	mentor.GET("/id/:id", h.getMentor)
	mentor.PUT("/id/:id", h.updateMentor)
	mentor.DELETE("/id/:id", h.deleteMentor)

	up := api.Group("/upskilling")
	up.POST("/create", admin, h.createSession)
	up.GET("/open", h.openSessions)
	up.POST("/book", h.bookSession)
	up.GET("/:id", h.getSession)
	up.PUT("/:id", admin, h.updateSession)
	up.DELETE("/:id", admin, h.deleteSession)

	res := api.Group("/resources")
	res.POST("/add", h.addResource)
	res.GET("/all", h.listResources)
	res.GET("/type/:type", h.resourcesByType)
	res.GET("/:id", h.getResource)
	res.PUT("/:id", h.updateResource)
	res.DELETE("/:id", h.deleteResource)

	fb := api.Group("/feedback")
	fb.POST("/submit", h.submitFeedback)
	fb.GET("/event/:eventId", h.eventFeedback)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{cursorHeader},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}
	all := len(origins) == 0
	for _, o := range origins {
		if o == "*" {
			all = true
		}
	}
	if all {
		conf.AllowAllOrigins = true
		conf.AllowCredentials = false
	} else {
		conf.AllowOrigins = origins
	}
	return cors.New(conf)
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}
