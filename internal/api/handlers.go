package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tg_analytics/internal/analytics"
	"tg_analytics/internal/model"
	"tg_analytics/internal/pdf"
)

const lastMessageLayout = "2006-01-02 15:04"

type channelRequest struct {
	ChannelUsername string          `json:"channel_username"`
	ChannelID       json.RawMessage `json:"channel_id"`
	HoursBack       json.RawMessage `json:"hours_back"`
}

// identifier prefers the username over the numeric id.
func (r channelRequest) identifier() string {
	if s := strings.TrimSpace(r.ChannelUsername); s != "" {
		return s
	}
	return rawString(r.ChannelID)
}

type reportRequest struct {
	Report   json.RawMessage `json:"report"`
	AIReport string          `json:"ai_report"`
}

type settingsRequest struct {
	ChannelID  json.RawMessage `json:"channel_id"`
	FocusAreas []string        `json:"focus_areas"`
	Niche      string          `json:"niche"`
}

type noDataResponse struct {
	ChannelInfo     model.ChannelInfo `json:"channel_info"`
	Period          string            `json:"period"`
	TotalPosts      int               `json:"total_posts"`
	Message         string            `json:"message"`
	LastMessageDate string            `json:"last_message_date"`
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": h.now().Format(time.RFC3339),
	})
}

// Analyze handles POST /analyze.
func (h *Handler) Analyze(c *gin.Context) {
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON format", err)
		return
	}
	channel := req.identifier()
	if channel == "" {
		badRequest(c, "channel_username or channel_id is required", nil)
		return
	}
	hours := hoursBack(req.HoursBack)

	rep, err := h.svc.Analyze(c.Request.Context(), "api", channel, hours)
	var noData *model.NoDataError
	if errors.As(err, &noData) {
		c.JSON(http.StatusOK, h.noData(noData, hours))
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *Handler) noData(e *model.NoDataError, hours int) noDataResponse {
	last := "unknown"
	if e.LastMessageAt != nil {
		last = e.LastMessageAt.In(h.svc.Location()).Format(lastMessageLayout)
	}
	return noDataResponse{
		ChannelInfo:     e.Channel,
		Period:          strconv.Itoa(hours) + " hours",
		TotalPosts:      0,
		Message:         "No posts in the selected period",
		LastMessageDate: last,
	}
}

// AIAnalyze handles POST /ai_analyze.
func (h *Handler) AIAnalyze(c *gin.Context) {
	rep, ok := bindReport(c)
	if !ok {
		return
	}

	text, cached, err := h.svc.Narrative(c.Request.Context(), rep)
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := gin.H{"ai_report": text}
	if cached {
		resp["cached"] = true
	}
	c.JSON(http.StatusOK, resp)
}

// AISettings handles POST /ai_settings.
func (h *Handler) AISettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON format", err)
		return
	}
	id, err := strconv.ParseInt(rawString(req.ChannelID), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "Channel ID is required", nil)
		return
	}

	st := &model.AISettings{ChannelID: id, FocusAreas: req.FocusAreas, Niche: req.Niche}
	if err := h.svc.SaveSettings(c.Request.Context(), st); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GeneratePDF handles POST /generate_pdf.
func (h *Handler) GeneratePDF(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON format", err)
		return
	}
	rep, err := decodeReport(req.Report)
	if err != nil {
		badRequest(c, "No report data provided", err)
		return
	}

	data, err := h.svc.PDF(c.Request.Context(), rep, req.AIReport)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pdf_base64": base64.StdEncoding.EncodeToString(data),
		"filename":   pdf.Filename(rep),
	})
}

// ChannelSubscribers handles POST /channel_subscribers.
func (h *Handler) ChannelSubscribers(c *gin.Context) {
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON format", err)
		return
	}
	channel := req.identifier()
	if channel == "" {
		badRequest(c, "channel_username or channel_id is required", nil)
		return
	}

	info, err := h.svc.Subscribers(c.Request.Context(), channel)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"channel":     info.Title,
		"username":    info.Username,
		"subscribers": info.Subscribers,
		"timestamp":   h.now().Format(time.RFC3339),
	})
}

// FindChannel handles POST /find_channel.
func (h *Handler) FindChannel(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON format", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		badRequest(c, "query is required", nil)
		return
	}

	refs, err := h.svc.FindChannels(c.Request.Context(), req.Query)
	if err != nil {
		h.fail(c, err)
		return
	}
	if refs == nil {
		refs = []model.ChannelRef{}
	}
	c.JSON(http.StatusOK, gin.H{"results": refs})
}

func bindReport(c *gin.Context) (*model.Report, bool) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid JSON format", err)
		return nil, false
	}
	rep, err := decodeReport(req.Report)
	if err != nil {
		badRequest(c, "No report data provided", err)
		return nil, false
	}
	return rep, true
}

func decodeReport(raw json.RawMessage) (*model.Report, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("report is missing")
	}
	var rep model.Report
	if err := json.Unmarshal(raw, &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

// hoursBack accepts a JSON number or numeric string. Anything else, and
// non-positive values, select the default window. Oversized windows are capped.
func hoursBack(raw json.RawMessage) int {
	n, err := strconv.Atoi(rawString(raw))
	if err != nil {
		return analytics.DefaultHoursBack
	}
	return analytics.NormalizeHoursBack(n)
}

// rawString returns a JSON string value unquoted and any other literal as is.
func rawString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return ""
		}
		return strings.TrimSpace(v)
	}
	return s
}
