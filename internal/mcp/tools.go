package mcp

import (
	"context"
	"encoding/json"

	"imgbridge/internal/workflow"
	"imgbridge/pkg/apperrors"
)

// Tool is one entry in the tools/list catalog.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

type toolHandler func(ctx context.Context, args json.RawMessage) (any, error)

func (s *Server) tools() []Tool {
	return []Tool{
		{
			Name:        "generate_image",
			Description: "Generate candidate images from a prompt and write local previews.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"prompt": {"type": "string", "description": "What to draw"},
					"negative_prompt": {"type": "string", "description": "What to avoid"},
					"count": {"type": "integer", "minimum": 1, "description": "Number of candidates"},
					"aspect_ratio": {"type": "string", "description": "e.g. 1:1, 16:9, 9:16"},
					"context": {"type": "string", "description": "Free-text hint used later as alt text"}
				},
				"required": ["prompt"]
			}`),
		},
		{
			Name:        "select_image",
			Description: "Promote one candidate to durable storage and clean up previews.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"generation_id": {"type": "string"},
					"index": {"type": "integer", "minimum": 0},
					"filename": {"type": "string", "description": "Used verbatim when given"},
					"cleanup_others": {"type": "boolean", "description": "Delete unselected previews too (default true)"}
				},
				"required": ["generation_id", "index"]
			}`),
		},
		{
			Name:        "list_generations",
			Description: "List recent generations, newest first.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"limit": {"type": "integer", "minimum": 1}
				}
			}`),
		},
		{
			Name:        "get_costs",
			Description: "Aggregate spend for a period, grouped by provider and model.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"period": {"type": "string", "enum": ["day", "week", "month", "all"]}
				}
			}`),
		},
		{
			Name:        "cleanup_previews",
			Description: "Purge preview directories older than a threshold.",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"older_than_days": {"type": "integer", "minimum": 1},
					"dry_run": {"type": "boolean"}
				}
			}`),
		},
	}
}

func (s *Server) handlers() map[string]toolHandler {
	return map[string]toolHandler{
		"generate_image":   s.handleGenerate,
		"select_image":     s.handleSelect,
		"list_generations": s.handleList,
		"get_costs":        s.handleCosts,
		"cleanup_previews": s.handleCleanup,
	}
}

func (s *Server) handleGenerate(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Prompt         string `json:"prompt"`
		NegativePrompt string `json:"negative_prompt"`
		Count          int    `json:"count"`
		AspectRatio    string `json:"aspect_ratio"`
		Context        string `json:"context"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "bad arguments")
	}
	if in.Prompt == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "prompt is required")
	}
	return s.svc.Generate(ctx, workflow.GenerateInput{
		Prompt:         in.Prompt,
		NegativePrompt: in.NegativePrompt,
		Count:          in.Count,
		AspectRatio:    in.AspectRatio,
		Context:        in.Context,
	})
}

func (s *Server) handleSelect(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		GenerationID  string `json:"generation_id"`
		Index         *int   `json:"index"`
		Filename      string `json:"filename"`
		CleanupOthers *bool  `json:"cleanup_others"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "bad arguments")
	}
	if in.GenerationID == "" || in.Index == nil {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "generation_id and index are required")
	}
	return s.svc.Select(ctx, workflow.SelectInput{
		GenerationID:  in.GenerationID,
		Index:         *in.Index,
		Filename:      in.Filename,
		CleanupOthers: in.CleanupOthers,
	})
}

func (s *Server) handleList(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Limit int `json:"limit"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "bad arguments")
	}
	gens, err := s.svc.List(ctx, in.Limit)
	if err != nil {
		return nil, err
	}
	return map[string]any{"generations": gens}, nil
}

func (s *Server) handleCosts(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		Period string `json:"period"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "bad arguments")
	}
	return s.svc.Costs(ctx, in.Period)
}

func (s *Server) handleCleanup(ctx context.Context, args json.RawMessage) (any, error) {
	var in struct {
		OlderThanDays int  `json:"older_than_days"`
		DryRun        bool `json:"dry_run"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "bad arguments")
	}
	return s.svc.Sweep(workflow.SweepInput{
		OlderThanDays: in.OlderThanDays,
		DryRun:        in.DryRun,
	})
}
