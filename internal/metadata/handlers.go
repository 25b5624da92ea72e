package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"launchpad/internal/model"
	"launchpad/internal/storage"
)

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".webp": "image/webp",
}

// formOverhead is the allowance for the non-file form fields.
const formOverhead = 1 << 20

var errBadRequest = errors.New("bad request")

type uploadResponse struct {
	Success     bool   `json:"success"`
	MetadataURI string `json:"metadataUri"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) getMetadata(w http.ResponseWriter, r *http.Request) {
	pool := chi.URLParam(r, "pool")
	if !common.IsHexAddress(pool) {
		writeError(w, http.StatusBadRequest, "invalid pool address")
		return
	}
	meta, err := s.meta.GetMetadata(r.Context(), pool)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "metadata not found")
			return
		}
		s.logger.Error("get metadata", zap.String("pool", pool), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

type tradesResponse struct {
	Pool   string        `json:"pool"`
	Trades []model.Trade `json:"trades"`
}

// getTrades serves stored trade history newest first. ?limit caps the page
// at MaxTradeLimit.
func (s *Server) getTrades(w http.ResponseWriter, r *http.Request) {
	pool := chi.URLParam(r, "pool")
	if !common.IsHexAddress(pool) {
		writeError(w, http.StatusBadRequest, "invalid pool address")
		return
	}
	limit := DefaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, MaxTradeLimit)
	}

	list, err := s.trades.ListTrades(r.Context(), s.cfg.ChainID, pool, limit)
	if err != nil {
		s.logger.Error("list trades", zap.String("pool", pool), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tradesResponse{Pool: common.HexToAddress(pool).Hex(), Trades: list})
}

func (s *Server) postMetadata(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageBytes+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	meta, err := s.metadataFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	existing, err := s.meta.GetMetadata(ctx, meta.PoolAddress)
	switch {
	case err == nil:
		meta.ImageURL = existing.ImageURL
	case !errors.Is(err, storage.ErrNotFound):
		s.logger.Error("load metadata", zap.String("pool", meta.PoolAddress), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	file, header, err := r.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		img, err := s.readImage(file, header)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.images.PutImage(ctx, img); err != nil {
			s.logger.Error("store image", zap.String("key", img.Key), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		s.metrics.RecordImage(len(img.Data))
		meta.ImageURL = s.cfg.PublicURL + "/images/" + img.Key
	case !errors.Is(err, http.ErrMissingFile):
		writeError(w, http.StatusBadRequest, "invalid image part")
		return
	}

	if err := s.meta.UpsertMetadata(ctx, meta); err != nil {
		s.logger.Error("upsert metadata", zap.String("pool", meta.PoolAddress), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.logger.Info("metadata saved", zap.String("pool", meta.PoolAddress), zap.Bool("has_image", meta.ImageURL != ""))
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:     true,
		MetadataURI: s.cfg.PublicURL + "/metadata/" + meta.PoolAddress,
		ImageURL:    meta.ImageURL,
	})
}

func (s *Server) metadataFromForm(r *http.Request) (model.TokenMetadata, error) {
	field := func(name string) string {
		return strings.TrimSpace(r.FormValue(name))
	}

	pool := field("poolAddress")
	if !common.IsHexAddress(pool) {
		return model.TokenMetadata{}, fmt.Errorf("%w: poolAddress must be a 20-byte hex address", errBadRequest)
	}
	meta := model.TokenMetadata{
		PoolAddress: storage.NormalizeAddress(pool),
		ChainID:     s.cfg.ChainID,
		LaunchType:  model.LaunchBondingCurve,
		Name:        field("name"),
		Symbol:      field("symbol"),
		Description: field("description"),
		Website:     field("website"),
		Twitter:     field("twitter"),
		Telegram:    field("telegram"),
		CreatedAt:   s.now().UTC(),
	}
	if meta.Name == "" || meta.Symbol == "" {
		return model.TokenMetadata{}, fmt.Errorf("%w: name and symbol are required", errBadRequest)
	}
	if raw := field("chainId"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return model.TokenMetadata{}, fmt.Errorf("%w: invalid chainId", errBadRequest)
		}
		meta.ChainID = id
	}
	switch lt := model.LaunchType(field("launchType")); lt {
	case "":
	case model.LaunchBondingCurve, model.LaunchFairLaunch:
		meta.LaunchType = lt
	default:
		return model.TokenMetadata{}, fmt.Errorf("%w: unknown launchType %q", errBadRequest, lt)
	}
	return meta, nil
}

func (s *Server) readImage(file multipart.File, header *multipart.FileHeader) (model.Image, error) {
	ext := strings.ToLower(path.Ext(header.Filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return model.Image{}, fmt.Errorf("%w: unsupported image type %q", errBadRequest, ext)
	}
	if header.Size > s.cfg.MaxImageBytes {
		return model.Image{}, fmt.Errorf("%w: image exceeds %d bytes", errBadRequest, s.cfg.MaxImageBytes)
	}
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxImageBytes+1))
	if err != nil {
		return model.Image{}, fmt.Errorf("%w: read image: %v", errBadRequest, err)
	}
	if int64(len(data)) > s.cfg.MaxImageBytes {
		return model.Image{}, fmt.Errorf("%w: image exceeds %d bytes", errBadRequest, s.cfg.MaxImageBytes)
	}
	if len(data) == 0 {
		return model.Image{}, fmt.Errorf("%w: empty image", errBadRequest)
	}

	// Content addressed.
	key := crypto.Keccak256Hash(data).Hex()[2:34] + ext
	return model.Image{
		Key:         key,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   s.now().UTC(),
	}, nil
}

func (s *Server) getImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	img, err := s.images.GetImage(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "image not found")
			return
		}
		s.logger.Error("get image", zap.String("key", key), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", imageCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img.Data)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
