package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/diegoclair/shift-notify-bot/internal/domain/contract"
	"github.com/diegoclair/shift-notify-bot/internal/domain/entity"
	slackcmd "github.com/diegoclair/shift-notify-bot/internal/domain/slack"
	"github.com/slack-go/slack"
)

// maxListedJobs caps the /shift jobs reply so it stays readable in Slack.
const maxListedJobs = 15

type SlackHandler struct {
	shiftService  contract.ShiftService
	signingSecret string
	loc           *time.Location
}

func New(shiftService contract.ShiftService, signingSecret string, loc *time.Location) *SlackHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SlackHandler{
		shiftService:  shiftService,
		signingSecret: signingSecret,
		loc:           loc,
	}
}

func (h *SlackHandler) HandleSlashCommand(w http.ResponseWriter, r *http.Request) {
	// Verify request from Slack
	body, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.Body = io.NopCloser(bytes.NewBuffer(body))

	verifier, err := slack.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if _, err := verifier.Write(body); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if err := verifier.Ensure(); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	s, err := slack.SlashCommandParse(r)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	cmd, err := slackcmd.ParseCommand(s.Text)
	if err != nil {
		h.respondWithError(w, err.Error())
		return
	}

	response := h.handleCommand(r, cmd)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

func (h *SlackHandler) handleCommand(r *http.Request, cmd *slackcmd.Command) *slack.Msg {
	switch cmd.Type {
	case slackcmd.CmdStatus:
		return h.handleStatus(r)
	case slackcmd.CmdJobs:
		return h.handleJobs(r)
	case slackcmd.CmdClear:
		return h.handleClear(r)
	case slackcmd.CmdHelp:
		return h.handleHelp()
	default:
		return h.createErrorResponse("Unknown command")
	}
}

func (h *SlackHandler) handleStatus(r *http.Request) *slack.Msg {
	status, err := h.shiftService.Status(r.Context())
	if err != nil {
		return h.createErrorResponse("Error loading status")
	}

	var b strings.Builder
	if status.Shift == nil {
		b.WriteString("No shift submitted yet.\n")
	} else {
		fmt.Fprintf(&b, "*Latest shift:* %s, order %s, task %s\n", status.Shift.ShiftType, status.Shift.ShiftOrder, status.Shift.TaskType)
	}
	fmt.Fprintf(&b, "*Pending alarms:* %d\n", status.Pending)
	if status.NextEvent != nil {
		fmt.Fprintf(&b, "*Next:* %s %s\n", h.formatTime(status.NextEvent.FireAt), firstLine(status.NextEvent.Content))
	}
	if status.LastDelivered != nil {
		fmt.Fprintf(&b, "*Last delivered:* %s %s\n", h.formatTime(status.LastDelivered.FireAt), firstLine(status.LastDelivered.Content))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         b.String(),
	}
}

func (h *SlackHandler) handleJobs(r *http.Request) *slack.Msg {
	jobs, err := h.shiftService.PendingJobs(r.Context())
	if err != nil {
		return h.createErrorResponse("Error listing alarms")
	}

	if len(jobs) == 0 {
		return &slack.Msg{
			ResponseType: slack.ResponseTypeEphemeral,
			Text:         "No pending alarms.",
		}
	}

	var b strings.Builder
	b.WriteString("*Pending alarms:*\n")
	for i, job := range jobs {
		if i == maxListedJobs {
			fmt.Fprintf(&b, "...and %d more\n", len(jobs)-maxListedJobs)
			break
		}
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, h.formatTime(job.FireAt), describeJob(job))
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         b.String(),
	}
}

func (h *SlackHandler) handleClear(r *http.Request) *slack.Msg {
	cancelled, err := h.shiftService.ClearAll(r.Context())
	if err != nil {
		return h.createErrorResponse("Error clearing alarms")
	}

	return &slack.Msg{
		ResponseType: slack.ResponseTypeInChannel,
		Text:         fmt.Sprintf("🧹 All schedules cleared (%d alarms cancelled)", cancelled),
	}
}

func (h *SlackHandler) handleHelp() *slack.Msg {
	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         slackcmd.GetHelpText(),
	}
}

func (h *SlackHandler) formatTime(t time.Time) string {
	return t.In(h.loc).Format("Mon 15:04")
}

func describeJob(job *entity.Event) string {
	if job.Kind == entity.KindDelete {
		return "(retract message)"
	}
	return firstLine(job.Content)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func (h *SlackHandler) createErrorResponse(message string) *slack.Msg {
	return &slack.Msg{
		ResponseType: slack.ResponseTypeEphemeral,
		Text:         fmt.Sprintf("❌ %s", message),
	}
}

func (h *SlackHandler) respondWithError(w http.ResponseWriter, message string) {
	response := h.createErrorResponse(message)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}
