package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ymkit/discobridge/internal/discord"
	"github.com/ymkit/discobridge/internal/web"
)

// historyLimit caps how many messages a history read returns.
const historyLimit = 50

// Gateway is the slice of the Discord client the HTTP surface needs.
// Read-only from the handler side; connection state is owned elsewhere.
type Gateway interface {
	Ready() bool
	Status() discord.Status
	ResolveChannel(channelID string) (discord.Channel, error)
	PostableChannels() ([]discord.Channel, error)
	RecentMessages(ctx context.Context, channelID string, limit int) ([]discord.Message, error)
	SendMessage(ctx context.Context, channelID, content string) error
	SendFile(ctx context.Context, channelID, content, filename string, r io.Reader) error
}

// Handler serves the bridge API.
type Handler struct {
	gateway          Gateway
	defaultChannelID string
	tmpDir           string
	log              *zap.Logger
}

// NewHandler builds the handler set. defaultChannelID may be empty, in
// which case every upload must name its channel.
func NewHandler(gateway Gateway, defaultChannelID string, log *zap.Logger) *Handler {
	return &Handler{
		gateway:          gateway,
		defaultChannelID: defaultChannelID,
		tmpDir:           os.TempDir(),
		log:              log,
	}
}

// Index serves the embedded upload page.
func (h *Handler) Index(c *gin.Context) {
	page, err := web.Index()
	if err != nil {
		h.log.Error("upload page missing from build", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "index page not available"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

// Health reports liveness plus the gateway connection status.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"discord": h.gateway.Status().String(),
	})
}

// Channels lists guild text channels the bot can post to.
func (h *Handler) Channels(c *gin.Context) {
	channels, err := h.gateway.PostableChannels()
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

// Messages returns the most recent messages of a channel, newest first.
func (h *Handler) Messages(c *gin.Context) {
	channelID := c.Param("channel_id")
	messages, err := h.gateway.RecentMessages(c.Request.Context(), channelID, historyLimit)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": channelID, "messages": messages})
}

// Upload relays a multipart form into a channel. The file, when present,
// is staged under a unique temp path and removed on every exit path.
func (h *Handler) Upload(c *gin.Context) {
	channelID := strings.TrimSpace(c.PostForm("channel_id"))
	if channelID == "" {
		channelID = h.defaultChannelID
	}
	if channelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel_id is required"})
		return
	}

	message := strings.TrimSpace(c.PostForm("message"))
	fileHeader, fileErr := c.FormFile("file")
	if message == "" && fileErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "either message or file must be provided"})
		return
	}

	if !h.gateway.Ready() {
		h.renderError(c, discord.ErrNotReady)
		return
	}
	if _, err := h.gateway.ResolveChannel(channelID); err != nil {
		h.renderError(c, err)
		return
	}

	ctx := c.Request.Context()
	log := h.log.With(zap.String("channel_id", channelID))

	if fileErr != nil {
		if err := h.gateway.SendMessage(ctx, channelID, message); err != nil {
			log.Error("message forwarding failed", zap.Error(err))
			h.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "message sent"})
		return
	}

	filename := filepath.Base(fileHeader.Filename)
	tmpPath := filepath.Join(h.tmpDir, fmt.Sprintf("discobridge-%s-%s", uuid.NewString(), filename))
	log = log.With(zap.String("filename", filename))

	log.Info("receiving file", zap.Int64("size", fileHeader.Size))
	if err := c.SaveUploadedFile(fileHeader, tmpPath); err != nil {
		log.Error("staging upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store upload: " + err.Error()})
		return
	}
	defer func() {
		if err := os.Remove(tmpPath); err != nil {
			log.Warn("temp file cleanup failed", zap.Error(err))
		}
	}()

	f, err := os.Open(tmpPath)
	if err != nil {
		log.Error("reading staged upload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload: " + err.Error()})
		return
	}
	defer f.Close()

	content := message
	if content == "" {
		content = fmt.Sprintf("File uploaded: `%s`", filename)
	}
	if err := h.gateway.SendFile(ctx, channelID, content, filename, f); err != nil {
		log.Error("file forwarding failed", zap.Error(err))
		h.renderError(c, err)
		return
	}

	log.Info("file forwarded")
	c.JSON(http.StatusOK, gin.H{"message": "file uploaded successfully", "filename": filename})
}

// renderError maps the gateway error taxonomy onto HTTP statuses:
// not-ready → 503, unknown channel → 404, anything else is a forwarding
// failure surfaced as 502 with the underlying cause.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, discord.ErrNotReady):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": discord.ErrNotReady.Error()})
	case errors.Is(err, discord.ErrChannelNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
