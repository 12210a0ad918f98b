package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"imgbridge/internal/common"
	"imgbridge/internal/workflow"
)

type generateReq struct {
	Prompt         string `json:"prompt" binding:"required"`
	NegativePrompt string `json:"negative_prompt"`
	Count          int    `json:"count"`
	AspectRatio    string `json:"aspect_ratio"`
	Context        string `json:"context"`
}

func (h *Handler) CreateGeneration(c *gin.Context) {
	var req generateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	out, err := h.Svc.Generate(c.Request.Context(), workflow.GenerateInput{
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Count:          req.Count,
		AspectRatio:    req.AspectRatio,
		Context:        req.Context,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, out)
}

type selectReq struct {
	Index         *int   `json:"index" binding:"required"`
	Filename      string `json:"filename"`
	CleanupOthers *bool  `json:"cleanup_others"`
}

func (h *Handler) SelectImage(c *gin.Context) {
	var req selectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	out, err := h.Svc.Select(c.Request.Context(), workflow.SelectInput{
		GenerationID:  c.Param("id"),
		Index:         *req.Index,
		Filename:      req.Filename,
		CleanupOthers: req.CleanupOthers,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, out)
}

func (h *Handler) ListGenerations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	gens, err := h.Svc.List(c.Request.Context(), limit)
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, gin.H{"generations": gens})
}

func (h *Handler) GetCosts(c *gin.Context) {
	sum, err := h.Svc.Costs(c.Request.Context(), c.Query("period"))
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, sum)
}

type cleanupReq struct {
	OlderThanDays int  `json:"older_than_days"`
	DryRun        bool `json:"dry_run"`
}

func (h *Handler) CleanupPreviews(c *gin.Context) {
	var req cleanupReq
	// allow empty body
	_ = c.ShouldBindJSON(&req)

	out, err := h.Svc.Sweep(workflow.SweepInput{
		OlderThanDays: req.OlderThanDays,
		DryRun:        req.DryRun,
	})
	if err != nil {
		failErr(c, err)
		return
	}
	common.OK(c, out)
}
