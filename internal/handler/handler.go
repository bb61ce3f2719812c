package handler

import (
	"topicrelay/internal/middleware"
	"topicrelay/internal/platform"
	"topicrelay/internal/service"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"
)

// Handler routes bot updates to the relay and staff services
type Handler struct {
	bot     *tele.Bot
	relay   *service.Relay
	admin   *service.Admin
	tickets *service.Tickets
	api     *platform.Client
	groupID int64
	logger  *zap.Logger
}

// NewHandler creates a new handler instance
func NewHandler(
	bot *tele.Bot,
	relay *service.Relay,
	admin *service.Admin,
	tickets *service.Tickets,
	api *platform.Client,
	groupID int64,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		bot:     bot,
		relay:   relay,
		admin:   admin,
		tickets: tickets,
		api:     api,
		groupID: groupID,
		logger:  logger,
	}
}

// RegisterHandlers registers all bot handlers
func (h *Handler) RegisterHandlers() {
	h.bot.Use(middleware.Recover(h.logger))

	// User-facing
	h.bot.Handle("/start", h.handleStart, middleware.PrivateOnly())
	h.bot.Handle(&btnRefresh, h.handleRefresh, middleware.PrivateOnly())

	// Messages from both sides; routed by chat
	h.bot.Handle(tele.OnText, h.handleMessage)
	h.bot.Handle(tele.OnMedia, h.handleMessage)
	h.bot.Handle(tele.OnEdited, h.handleEdited)

	// Staff commands
	staff := h.bot.Group()
	staff.Use(middleware.StaffOnly(h.groupID, h.logger))
	staff.Handle("/ban", h.threadCommand("ban", h.admin.Ban))
	staff.Handle("/unban", h.threadCommand("unban", h.admin.Unban))
	staff.Handle("/close", h.threadCommand("close", h.admin.Close))
	staff.Handle("/open", h.threadCommand("open", h.admin.Open))
	staff.Handle("/reset", h.threadCommand("reset", h.admin.Reset))
	staff.Handle("/info", h.threadCommand("info", h.admin.Info))
	staff.Handle("/verifyttl", h.handleVerifyTTL)
}

// Inline keyboard buttons
var btnRefresh = tele.Btn{
	Unique: service.RefreshUnique,
}
