package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"vaultgallery/internal/catalog"
	"vaultgallery/internal/chatops"
	"vaultgallery/internal/ingest"
	"vaultgallery/internal/logging"
	"vaultgallery/internal/mediastore"
	"vaultgallery/internal/scoring"
	"vaultgallery/internal/selection"
	"vaultgallery/internal/vaulterr"
)

const maxRequestBody = 1 << 20

var errScoringDisabled = vaulterr.Wrap(vaulterr.ErrConfiguration, "scoring", "refresh", "scoring is not enabled", nil)

type mediaRef struct {
	AssetID   int64             `json:"asset_id"`
	MediaType catalog.MediaType `json:"media_type"`
	URL       string            `json:"url"`
}

type commandResponse struct {
	Text  string     `json:"text,omitempty"`
	Media []mediaRef `json:"media,omitempty"`
}

type latestResponse struct {
	Requested int              `json:"requested"`
	Count     int              `json:"count"`
	Clamped   bool             `json:"clamped"`
	Warning   string           `json:"warning,omitempty"`
	Assets    []*catalog.Asset `json:"assets"`
}

type categoryView struct {
	catalog.CategorySummary
	Card scoring.Card `json:"card"`
}

type createCategoryRequest struct {
	Name string `json:"name"`
}

type ratingRequest struct {
	Rating  int    `json:"rating"`
	Caption string `json:"caption"`
}

type deleteRandomRequest struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type countResponse struct {
	Deleted int `json:"deleted"`
}

func contentURL(id int64) string {
	return fmt.Sprintf("/api/assets/%d/content", id)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleSubmission(w http.ResponseWriter, r *http.Request) {
	var sub ingest.Submission
	if err := decodeBody(r, &sub); err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.daemon.ingest.Submit(r.Context(), sub)
	if err != nil {
		if errors.Is(err, ingest.ErrClosed) {
			s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: "closed"})
			return
		}
		s.writeError(w, r, err)
		return
	}
	status := http.StatusOK
	switch result.Status {
	case ingest.StatusSaved:
		status = http.StatusCreated
	case ingest.StatusBuffered:
		status = http.StatusAccepted
	}
	s.writeJSON(w, status, result)
}

func (s *apiServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	var cmd chatops.Command
	if err := decodeBody(r, &cmd); err != nil {
		s.writeError(w, r, err)
		return
	}
	reply, err := s.daemon.chat.Handle(r.Context(), cmd)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := commandResponse{Text: reply.Text}
	for _, m := range reply.Media {
		resp.Media = append(resp.Media, mediaRef{AssetID: m.AssetID, MediaType: m.MediaType, URL: contentURL(m.AssetID)})
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleRandom(w http.ResponseWriter, r *http.Request) {
	category, err := s.daemon.resolver.ResolveOptional(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := s.daemon.engine.Random(r.Context(), category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.serveAsset(w, r, asset)
}

func (s *apiServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	count := 1
	if raw := r.URL.Query().Get("count"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, vaulterr.Validation("count must be a number"))
			return
		}
		count = v
	}
	category, err := s.daemon.resolver.ResolveOptional(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, err := s.daemon.engine.Latest(r.Context(), category, count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := latestResponse{
		Requested: result.Requested,
		Count:     result.Count,
		Clamped:   result.Clamped,
		Assets:    result.Assets,
	}
	if resp.Assets == nil {
		resp.Assets = []*catalog.Asset{}
	}
	if result.Clamped {
		resp.Warning = fmt.Sprintf("Max count is %d", s.daemon.engine.MaxLatest())
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleStats(w http.ResponseWriter, r *http.Request) {
	category, err := s.daemon.resolver.ResolveOptional(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stats, err := s.daemon.engine.Stats(r.Context(), category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

func (s *apiServer) handleAssetContent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := s.daemon.store.AssetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if asset == nil {
		s.writeError(w, r, vaulterr.NotFound(fmt.Sprintf("asset %d not found", id)))
		return
	}
	s.serveAsset(w, r, asset)
}

func (s *apiServer) serveAsset(w http.ResponseWriter, r *http.Request, asset *catalog.Asset) {
	reader, err := s.daemon.media.Open(r.Context(), asset.StorageLocator)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", mediastore.ContentType(asset.StorageLocator))
	w.Header().Set("X-Asset-ID", strconv.FormatInt(asset.ID, 10))
	w.Header().Set("X-Media-Type", string(asset.MediaType))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Warn("media stream interrupted",
			logging.Int64(logging.FieldAssetID, asset.ID),
			logging.Error(err),
		)
	}
}

func (s *apiServer) handleListCategories(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.daemon.engine.Insights(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]categoryView, 0, len(summaries))
	for _, summary := range summaries {
		views = append(views, categoryView{CategorySummary: summary, Card: scoring.CardFor(&summary.Category)})
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *apiServer) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.daemon.resolver.Create(r.Context(), req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, category)
}

func (s *apiServer) handleCategoryAssets(w http.ResponseWriter, r *http.Request) {
	category, err := s.categoryFromPath(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	page, err := s.daemon.engine.CategoryAssets(r.Context(), category, queryInt(r, "page", 1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *apiServer) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.daemon.curation.DeleteCategory(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, countResponse{Deleted: deleted})
}

func (s *apiServer) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req ratingRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	asset, err := s.daemon.store.SubmitRating(r.Context(), id, req.Rating, req.Caption)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, asset)
}

func (s *apiServer) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.daemon.curation.DeleteAsset(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, countResponse{Deleted: 1})
}

func (s *apiServer) handleDeleteRandom(w http.ResponseWriter, r *http.Request) {
	var req deleteRandomRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := s.daemon.resolver.Require(r.Context(), req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	deleted, err := s.daemon.curation.DeleteRandom(r.Context(), category, max(req.Count, 1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, countResponse{Deleted: deleted})
}

func (s *apiServer) handleWipe(w http.ResponseWriter, r *http.Request) {
	if confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); !confirm {
		s.writeError(w, r, vaulterr.Validation("wipe requires confirm=true"))
		return
	}
	deleted, err := s.daemon.curation.WipeAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, countResponse{Deleted: deleted})
}

func (s *apiServer) handleMerge(w http.ResponseWriter, r *http.Request) {
	report, err := s.daemon.resolver.MergeDuplicates(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleBackfill(w http.ResponseWriter, r *http.Request) {
	report, err := s.daemon.ratings.Backfill(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleScores(w http.ResponseWriter, r *http.Request) {
	report, err := s.daemon.RefreshScores(r.Context())
	if err != nil {
		if errors.Is(err, errScoringDisabled) {
			s.writeJSON(w, http.StatusConflict, errorResponse{Error: "scoring is not enabled", Kind: vaulterr.KindConfiguration})
			return
		}
		s.writeError(w, r, vaulterr.Wrap(vaulterr.ErrStorage, "scoring", "refresh", "", err))
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *apiServer) handleInsights(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.daemon.engine.Insights(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summaries == nil {
		summaries = []catalog.CategorySummary{}
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *apiServer) handleTopRated(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, r, s.daemon.engine.TopRated)
}

func (s *apiServer) handleRecent(w http.ResponseWriter, r *http.Request) {
	s.writePage(w, r, s.daemon.engine.Recent)
}

func (s *apiServer) writePage(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, page int) (selection.Page, error)) {
	page, err := fetch(r.Context(), queryInt(r, "page", 1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func (s *apiServer) handlePendingCaptions(w http.ResponseWriter, r *http.Request) {
	assets, err := s.daemon.engine.PendingCaptions(r.Context(), queryInt(r, "limit", selection.DefaultPendingCaptions))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if assets == nil {
		assets = []*catalog.Asset{}
	}
	s.writeJSON(w, http.StatusOK, assets)
}

func (s *apiServer) categoryFromPath(r *http.Request) (*catalog.Category, error) {
	id, err := pathID(r)
	if err != nil {
		return nil, err
	}
	category, err := s.daemon.store.CategoryByID(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, vaulterr.NotFound(fmt.Sprintf("category %d not found", id))
	}
	return category, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, vaulterr.Validation(fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return vaulterr.Validation(fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}
