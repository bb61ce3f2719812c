package server

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strconv"

	"topicrelay/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReasonInvalidTicket is returned for unknown, expired or foreign tickets
const ReasonInvalidTicket = "invalid-ticket"

type verifyResponse struct {
	Success bool     `json:"success"`
	Reasons []string `json:"reasons"`
}

// handleVerifyPage renders the challenge widget for a live ticket
func (s *server) handleVerifyPage(c *gin.Context) {
	if !s.deps.Tickets.Enabled() {
		c.String(http.StatusNotFound, "verification is disabled")
		return
	}

	ticketID := c.Query("ticket")
	userID, err := strconv.ParseInt(c.Query("user"), 10, 64)
	if err != nil {
		s.page.render(c, http.StatusBadRequest, pageData{Error: service.NoticeLinkExpired})
		return
	}

	if _, err := s.deps.Tickets.Lookup(c.Request.Context(), ticketID, userID); err != nil {
		if !errors.Is(err, service.ErrTicketInvalid) {
			s.deps.Logger.Error("Failed to look up ticket", zap.Int64("user_id", userID), zap.Error(err))
			s.page.render(c, http.StatusInternalServerError, pageData{Error: "Something went wrong, please try again later."})
			return
		}
		s.page.render(c, http.StatusBadRequest, pageData{Error: service.NoticeLinkExpired})
		return
	}

	s.page.render(c, http.StatusOK, pageData{
		SiteKey: s.opts.SiteKey,
		Ticket:  ticketID,
		User:    userID,
	})
}

// handleVerifySubmit redeems the submitted proof and replays the pending message on success
func (s *server) handleVerifySubmit(c *gin.Context) {
	if !s.deps.Tickets.Enabled() {
		c.JSON(http.StatusNotFound, verifyResponse{Reasons: []string{"verification-disabled"}})
		return
	}

	ticketID := c.PostForm("ticket")
	userID, err := strconv.ParseInt(c.PostForm("user"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, verifyResponse{Reasons: []string{ReasonInvalidTicket}})
		return
	}
	proof := c.PostForm("cf-turnstile-response")

	out, err := s.deps.Tickets.Redeem(c.Request.Context(), ticketID, userID, proof, c.ClientIP())
	if errors.Is(err, service.ErrTicketInvalid) {
		c.JSON(http.StatusBadRequest, verifyResponse{Reasons: []string{ReasonInvalidTicket}})
		return
	}
	if err != nil {
		s.deps.Logger.Error("Failed to redeem ticket", zap.Int64("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, verifyResponse{Reasons: []string{"internal-error"}})
		return
	}

	if out.Success {
		pending := out.PendingMessageID
		s.deps.Scheduler.After(0, "verify-replay", func(ctx context.Context) {
			s.deps.Relay.CompleteVerification(ctx, userID, pending)
		})
	}

	reasons := out.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	c.JSON(http.StatusOK, verifyResponse{Success: out.Success, Reasons: reasons})
}

type pageData struct {
	Error   string
	SiteKey string
	Ticket  string
	User    int64
}

type verifyPage struct {
	tmpl *template.Template
}

func newVerifyPage() *verifyPage {
	return &verifyPage{tmpl: template.Must(template.New("verify").Parse(verifyTemplate))}
}

func (p *verifyPage) render(c *gin.Context, status int, data pageData) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(status)
	if err := p.tmpl.Execute(c.Writer, data); err != nil {
		_ = c.Error(err)
	}
}

const verifyTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Verification</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 28rem; margin: 4rem auto; padding: 0 1rem; text-align: center; }
.cf-turnstile { display: inline-block; margin: 1.5rem 0; }
</style>
{{- if not .Error}}
<script src="https://challenges.cloudflare.com/turnstile/v0/api.js" async defer></script>
{{- end}}
</head>
<body>
{{- if .Error}}
<h1>Link expired</h1>
<p>{{.Error}}</p>
{{- else}}
<h1>Confirm you are human</h1>
<form id="verify" method="post" action="/verify">
<input type="hidden" name="ticket" value="{{.Ticket}}">
<input type="hidden" name="user" value="{{.User}}">
<div class="cf-turnstile" data-sitekey="{{.SiteKey}}" data-callback="onVerified"></div>
</form>
<p id="status"></p>
<script>
function onVerified() {
  var form = document.getElementById("verify");
  var status = document.getElementById("status");
  fetch(form.action, { method: "POST", body: new URLSearchParams(new FormData(form)) })
    .then(function (r) { return r.json(); })
    .then(function (res) {
      status.textContent = res.success
        ? "Done! You can return to the chat."
        : "Verification failed, please reload the page and try again.";
    })
    .catch(function () { status.textContent = "Network error, please try again."; });
}
</script>
{{- end}}
</body>
</html>
`
