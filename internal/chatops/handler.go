package chatops

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/config"
	"vaultgallery/internal/curation"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/resolver"
	"vaultgallery/internal/selection"
	"vaultgallery/internal/vaulterr"
)

const (
	notAuthorized = "❌ You are not authorized to use this command."
	helpText      = "📂 VaultGallery Help\n\n" +
		"/start – Check bot status\n" +
		"/help – Show this help message\n" +
		"/upload <model> – Upload image or video\n" +
		"/random [model] – Get random media\n" +
		"/latest [model] [count] – Get the newest media\n" +
		"/stats [model] – Show vault statistics\n" +
		"/listmodels – List models with media counts\n" +
		"/deletemedia <model> [count] – Delete random media of a model\n" +
		"/deleteallmedia confirm – Delete all media, keeping models"
)

// Command is one inbound chat command.
type Command struct {
	ChatID int64  `json:"chat_id"`
	UserID int64  `json:"user_id"`
	Text   string `json:"text"`
}

// Media references a stored asset to send back.
type Media struct {
	AssetID   int64             `json:"asset_id"`
	MediaType catalog.MediaType `json:"media_type"`
	Locator   string            `json:"locator"`
}

// Reply is the response to a command.
type Reply struct {
	Text  string  `json:"text,omitempty"`
	Media []Media `json:"media,omitempty"`
}

// Handler dispatches chat commands.
type Handler struct {
	cfg      *config.Config
	resolver *resolver.Resolver
	engine   *selection.Engine
	curation *curation.Service
	store    *catalog.Store
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(cfg *config.Config, store *catalog.Store, res *resolver.Resolver, engine *selection.Engine, cur *curation.Service, logger *slog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		resolver: res,
		engine:   engine,
		curation: cur,
		store:    store,
		logger:   logging.NewComponentLogger(logger, "chatops"),
	}
}

// Handle runs cmd. User-facing failures (unknown names, empty results,
// validation) are rendered into the reply; only internal failures are
// returned as errors.
func (h *Handler) Handle(ctx context.Context, cmd Command) (Reply, error) {
	ctx = logging.WithChatID(ctx, cmd.ChatID)
	name, args := splitCommand(cmd.Text)
	if name == "" {
		return Reply{Text: "Send /help to see available commands."}, nil
	}
	if !h.cfg.IsAuthorized(cmd.UserID) {
		if name == "start" || name == "help" {
			return Reply{Text: "❌ You are not authorized to use this bot."}, nil
		}
		return Reply{Text: notAuthorized}, nil
	}

	var (
		reply Reply
		err   error
	)
	switch name {
	case "start":
		reply = Reply{Text: "✅ VaultGallery is online.\nSend /help to see available commands."}
	case "help":
		reply = Reply{Text: helpText}
	case "random":
		reply, err = h.random(ctx, args)
	case "latest":
		reply, err = h.latest(ctx, args)
	case "stats":
		reply, err = h.stats(ctx, args)
	case "listmodels":
		reply, err = h.listModels(ctx)
	case "deletemedia":
		reply, err = h.deleteMedia(ctx, args)
	case "deleteallmedia":
		reply, err = h.deleteAll(ctx, args)
	default:
		reply = Reply{Text: fmt.Sprintf("Unknown command /%s. Send /help to see available commands.", name)}
	}
	if err != nil {
		if isUserFacing(err) {
			return Reply{Text: "❌ " + vaulterr.UserMessage(err)}, nil
		}
		logging.WithContext(ctx, h.logger).Error("command failed",
			logging.String("command", name),
			logging.Error(err),
		)
		return Reply{}, err
	}
	return reply, nil
}

func (h *Handler) random(ctx context.Context, args []string) (Reply, error) {
	category, err := h.resolver.ResolveOptional(ctx, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	asset, err := h.engine.Random(ctx, category)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Media: []Media{mediaFor(asset)}}, nil
}

func (h *Handler) latest(ctx context.Context, args []string) (Reply, error) {
	count := 1
	if n := len(args); n > 0 {
		if v, err := strconv.Atoi(args[n-1]); err == nil {
			count = max(v, 1)
			args = args[:n-1]
		}
	}
	category, err := h.resolver.ResolveOptional(ctx, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	result, err := h.engine.Latest(ctx, category, count)
	if err != nil {
		return Reply{}, err
	}
	var reply Reply
	if result.Clamped {
		reply.Text = fmt.Sprintf("⚠️ Max count is %d.", h.engine.MaxLatest())
	}
	if len(result.Assets) == 0 {
		reply.Text = joinLines(reply.Text, "❌ No media found.")
		return reply, nil
	}
	for _, asset := range result.Assets {
		reply.Media = append(reply.Media, mediaFor(asset))
	}
	return reply, nil
}

func (h *Handler) stats(ctx context.Context, args []string) (Reply, error) {
	category, err := h.resolver.ResolveOptional(ctx, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	stats, err := h.engine.Stats(ctx, category)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: FormatStats(category, stats)}, nil
}

// FormatStats renders stats the way the chat surface shows them.
func FormatStats(category *catalog.Category, stats catalog.Stats) string {
	var lines []string
	if category != nil {
		lines = append(lines, fmt.Sprintf("📊 Stats for %s:", category.DisplayName))
	} else {
		lines = append(lines, "📊 Vault stats:", fmt.Sprintf("• Models: %d", stats.Categories))
	}
	lines = append(lines,
		fmt.Sprintf("• Media: %d", stats.Total),
		fmt.Sprintf("• Images: %d", stats.Images),
		fmt.Sprintf("• Videos: %d", stats.Videos),
		fmt.Sprintf("• Rated images: %d", stats.RatedImages),
		"• Avg rating: "+formatAverage(stats.AverageRating),
	)
	if category != nil && stats.LatestUpload != nil {
		lines = append(lines, "• Last upload: "+stats.LatestUpload.Format("2006-01-02"))
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) listModels(ctx context.Context) (Reply, error) {
	summaries, err := h.engine.Insights(ctx)
	if err != nil {
		return Reply{}, err
	}
	if len(summaries) == 0 {
		return Reply{Text: "📭 No models found."}, nil
	}
	lines := []string{"📂 Available Models:"}
	for _, s := range summaries {
		lines = append(lines, fmt.Sprintf("• %s (%d)", s.DisplayName, s.Total))
	}
	return Reply{Text: strings.Join(lines, "\n")}, nil
}

func (h *Handler) deleteMedia(ctx context.Context, args []string) (Reply, error) {
	if len(args) == 0 {
		return Reply{Text: "Usage: /deletemedia <model> [count]"}, nil
	}
	count := 1
	if n := len(args); n > 1 {
		if v, err := strconv.Atoi(args[n-1]); err == nil {
			count = max(v, 1)
			args = args[:n-1]
		}
	}
	category, err := h.resolver.Require(ctx, strings.Join(args, " "))
	if err != nil {
		return Reply{}, err
	}
	deleted, err := h.curation.DeleteRandom(ctx, category, count)
	if err != nil {
		return Reply{}, err
	}
	if deleted == 0 {
		return Reply{Text: fmt.Sprintf("ℹ️ No media found to delete for %s.", category.DisplayName)}, nil
	}
	return Reply{Text: fmt.Sprintf("🗑️ Deleted %d media item(s) from %s.", deleted, category.DisplayName)}, nil
}

func (h *Handler) deleteAll(ctx context.Context, args []string) (Reply, error) {
	if len(args) == 0 || !strings.EqualFold(args[0], "confirm") {
		return Reply{Text: "⚠️ This will delete ALL media.\nRun: /deleteallmedia confirm"}, nil
	}
	deleted, err := h.curation.WipeAll(ctx)
	if err != nil {
		return Reply{}, err
	}
	return Reply{Text: fmt.Sprintf("🧹 Deleted %d media item(s).\nModels preserved.", deleted)}, nil
}

// splitCommand returns the lowercased command name without its slash or
// @bot suffix, and the remaining whitespace-separated arguments.
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	name := strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	return strings.ToLower(name), fields[1:]
}

func mediaFor(asset *catalog.Asset) Media {
	return Media{AssetID: asset.ID, MediaType: asset.MediaType, Locator: asset.StorageLocator}
}

func formatAverage(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *v)
}

func joinLines(a, b string) string {
	if a == "" {
		return b
	}
	return a + "\n" + b
}

func isUserFacing(err error) bool {
	switch vaulterr.Kind(err) {
	case vaulterr.KindValidation, vaulterr.KindAmbiguous, vaulterr.KindNotFound, vaulterr.KindConflict:
		return true
	default:
		return false
	}
}
