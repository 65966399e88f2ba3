package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const draftConclusionPrompt = "draft_conclusion"

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(&mcp.Prompt{
		Name:        draftConclusionPrompt,
		Description: "Ask for a draft of the report conclusion (CONCLUSAO_ANALISE_LIVRE) from the classified test results.",
		Arguments: []*mcp.PromptArgument{
			{Name: "patient_name", Description: "patient's full name", Required: true},
			{Name: "scores", Description: "raw test scores as a JSON object, e.g. {\"AC_BPA\": 95}"},
			{Name: "demand", Description: "reason for the evaluation"},
		},
	}, s.handleDraftConclusion)
}

func (s *Server) handleDraftConclusion(_ context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	args := req.Params.Arguments
	name := strings.TrimSpace(args["patient_name"])
	if name == "" {
		return nil, fmt.Errorf("%s: patient_name is required", draftConclusionPrompt)
	}

	summary := "(nenhum resultado de teste informado)"
	if raw := strings.TrimSpace(args["scores"]); raw != "" {
		scores := make(map[string]any)
		if err := json.Unmarshal([]byte(raw), &scores); err != nil {
			return nil, fmt.Errorf("%s: scores must be a JSON object: %w", draftConclusionPrompt, err)
		}
		if text := s.services.Summary.BuildSummaryText(s.services.Classifier.ClassifyResults(scores)); text != "" {
			summary = text
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Redija a conclusão de um laudo psicológico para %s.\n", s.services.Patients.ExtractFirstName(name))
	if demand := strings.TrimSpace(args["demand"]); demand != "" {
		fmt.Fprintf(&b, "Motivo da avaliação: %s\n", demand)
	}
	b.WriteString("\nResultados dos testes:\n")
	b.WriteString(summary)
	b.WriteString("\n\nUse linguagem técnica e objetiva, cite apenas os instrumentos acima ")
	b.WriteString("e não invente resultados. O texto será inserido no campo {CONCLUSAO_ANALISE_LIVRE}.")

	s.logger.WithField("prompt", draftConclusionPrompt).Debug("Prompt rendered")
	return &mcp.GetPromptResult{
		Description: "Rascunho da conclusão do laudo",
		Messages: []*mcp.PromptMessage{{
			Role:    "user",
			Content: &mcp.TextContent{Text: b.String()},
		}},
	}, nil
}
