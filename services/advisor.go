package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/revrost/go-openrouter"

	"tenderpricing/workflow"
)

// maxAdvisorNotes caps how many lines of model output become notes.
const maxAdvisorNotes = 5

// OpenRouterAdvisor asks a hosted model for short review notes on a
// finished result.
type OpenRouterAdvisor struct {
	client  *openrouter.Client
	model   string
	timeout time.Duration
}

var _ workflow.Advisor = (*OpenRouterAdvisor)(nil)

// NewOpenRouterAdvisor returns an advisor that calls model with apiKey.
func NewOpenRouterAdvisor(apiKey, model string, timeout time.Duration) *OpenRouterAdvisor {
	return &OpenRouterAdvisor{
		client:  openrouter.NewClient(apiKey),
		model:   model,
		timeout: timeout,
	}
}

// Advise implements workflow.Advisor.
func (a *OpenRouterAdvisor) Advise(ctx context.Context, req workflow.AdvisoryRequest) ([]string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	resp, err := a.client.CreateChatCompletion(ctx, openrouter.ChatCompletionRequest{
		Model: a.model,
		Messages: []openrouter.ChatCompletionMessage{
			{Role: openrouter.ChatMessageRoleSystem, Content: openrouter.Content{Text: advisorInstructions}},
			{Role: openrouter.ChatMessageRoleUser, Content: openrouter.Content{Text: BuildAdvisoryPrompt(req)}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("advisor: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("advisor: empty response")
	}
	return ParseAdvisoryNotes(resp.Choices[0].Message.Content.Text), nil
}

const advisorInstructions = "أنت مستشار تسعير مناقصات إنشائية في المملكة العربية السعودية. " +
	"راجع ملخص التسعير وأعد ملاحظات قصيرة باللغة العربية، كل ملاحظة في سطر مستقل، بحد أقصى خمس ملاحظات. " +
	"لا تقترح أرقاماً بديلة للسعر النهائي."

// BuildAdvisoryPrompt renders the figures of req as the user message.
func BuildAdvisoryPrompt(req workflow.AdvisoryRequest) string {
	s := req.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "المشروع: %s\n", req.ProjectName)
	fmt.Fprintf(&b, "الاستراتيجية: %s\n", req.Strategy)
	fmt.Fprintf(&b, "التكاليف المباشرة: %s\n", FormatAmount(s.DirectTotal))
	fmt.Fprintf(&b, "التكاليف غير المباشرة: %s\n", FormatAmount(s.IndirectTotal))
	fmt.Fprintf(&b, "تكلفة المخاطر: %s\n", FormatAmount(s.RiskTotal))
	fmt.Fprintf(&b, "ضريبة القيمة المضافة (%s): %s\n", FormatRate(s.VATRate), FormatAmount(s.VATAmount))
	fmt.Fprintf(&b, "السعر النهائي: %s\n", FormatAmount(s.FinalPrice))
	fmt.Fprintf(&b, "نسبة المحتوى المحلي: %s\n", FormatPercent(s.LocalContentPercent))
	if len(req.Risks) > 0 {
		b.WriteString("المخاطر:\n")
		for _, r := range req.Risks {
			fmt.Fprintf(&b, "- [%s] %s، الدرجة %d، التكلفة %s\n",
				r.Category.Label(), r.Description, r.Score, FormatAmount(r.Applied))
		}
	}
	return b.String()
}

var listMarker = regexp.MustCompile(`^\s*(?:[-*•·]|[0-9٠-٩]+[.)])\s*`)

// ParseAdvisoryNotes splits model output into trimmed, non-empty notes with
// list markers removed.
func ParseAdvisoryNotes(text string) []string {
	var notes []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(listMarker.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		notes = append(notes, line)
		if len(notes) == maxAdvisorNotes {
			break
		}
	}
	return notes
}
