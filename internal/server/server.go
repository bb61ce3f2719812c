// Package server exposes the webhook, the verification page and the operational endpoints.
package server

import (
	"context"
	"net/http"

	"topicrelay/internal/metrics"
	"topicrelay/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// SecretHeader carries the webhook secret set with setWebhook
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateProcessor dispatches one platform update. *tele.Bot satisfies it.
type UpdateProcessor interface {
	ProcessUpdate(u tele.Update)
}

// ConfigPresence reports which settings are configured, never their values
type ConfigPresence struct {
	BotToken      bool `json:"bot_token"`
	GroupID       bool `json:"group_id"`
	WebhookSecret bool `json:"webhook_secret"`
	Turnstile     bool `json:"turnstile"`
	PublicURL     bool `json:"public_url"`
}

// Options holds the HTTP layer settings
type Options struct {
	WebhookSecret   string
	SiteKey         string
	VerifyRateLimit float64
	Presence        ConfigPresence
}

// Deps holds the collaborators the routes call into
type Deps struct {
	Bot       UpdateProcessor
	Tickets   *service.Tickets
	Relay     *service.Relay
	Scheduler service.Scheduler
	Gatherer  prometheus.Gatherer
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	// Ping checks the backing store; nil skips the check
	Ping func(ctx context.Context) error
}

type server struct {
	opts Options
	deps Deps
	page *verifyPage
}

// NewRouter builds the gin engine with every route installed
func NewRouter(opts Options, deps Deps) *gin.Engine {
	s := &server{opts: opts, deps: deps, page: newVerifyPage()}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(
		RequestID(),
		Recovery(deps.Logger),
		Logger(deps.Logger),
		Metrics(deps.Metrics),
	)

	r.POST("/", s.handleWebhook)

	limiter := NewRateLimiter(opts.VerifyRateLimit, 5)
	verify := r.Group("/verify", limiter.Handler())
	verify.GET("", s.handleVerifyPage)
	verify.POST("", s.handleVerifySubmit)

	r.GET("/health", s.handleHealth)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	return r
}
