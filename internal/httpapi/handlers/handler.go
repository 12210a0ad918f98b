package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"imgbridge/internal/common"
	"imgbridge/internal/config"
	"imgbridge/internal/storage"
	"imgbridge/internal/workflow"
	"imgbridge/pkg/apperrors"
)

type Handler struct {
	Svc   *workflow.Service
	Store storage.BlobStore
	Cfg   *config.Config
	Log   *slog.Logger
}

func NewHandler(svc *workflow.Service, store storage.BlobStore, cfg *config.Config, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Svc: svc, Store: store, Cfg: cfg, Log: log}
}

// failErr maps an application error to the envelope. Unrecognized errors are
// reported as 500 without leaking internals.
func failErr(c *gin.Context, err error) {
	code, _ := apperrors.CodeOf(err)
	switch code {
	case apperrors.CodeNotFound:
		common.Fail(c, http.StatusNotFound, 40400, err.Error())
	case apperrors.CodeInvalidParam, apperrors.CodeInvalidIndex:
		common.Fail(c, http.StatusBadRequest, 40000, err.Error())
	case apperrors.CodeAlreadySelected:
		common.Fail(c, http.StatusConflict, 40900, err.Error())
	case apperrors.CodePreviewMissing:
		common.Fail(c, http.StatusGone, 41000, err.Error())
	case apperrors.CodeUpstreamProvider:
		common.Fail(c, http.StatusBadGateway, 50200, err.Error())
	case apperrors.CodeUpstreamStorage:
		common.Fail(c, http.StatusBadGateway, 50201, err.Error())
	default:
		common.Fail(c, http.StatusInternalServerError, 50000, "internal error")
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func (h *Handler) Healthz(c *gin.Context) {
	if err := h.Store.HealthCheck(c.Request.Context()); err != nil {
		h.Log.Warn("storage health check failed", "err", err)
		common.Fail(c, http.StatusServiceUnavailable, 50300, "storage unreachable")
		return
	}
	common.OK(c, gin.H{"status": "ok"})
}
