package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"SurfSense/internal/modules/indexing/domain/capability"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const summarySystemPrompt = `You are an expert document analyst. Read the document below and write a comprehensive summary in markdown.
Rules:
1) Keep every key fact, entity, date, number and decision; do not invent anything.
2) Organize the summary with short headings and bullet points.
3) Write in the same language as the document.
4) Output only the summary.`

// Summarizer 调用 chat model 生成摘要，metadata 非空时在摘要前输出元数据段
type Summarizer struct {
	cm       model.BaseChatModel
	maxRunes int
}

func NewSummarizer(cm model.BaseChatModel, maxRunes int) *Summarizer {
	if maxRunes <= 0 {
		maxRunes = 24000
	}
	return &Summarizer{cm: cm, maxRunes: maxRunes}
}

func (s *Summarizer) Summarize(ctx context.Context, sourceMarkdown string, metadata map[string]any) (string, error) {
	if s == nil || s.cm == nil {
		return "", fmt.Errorf("chat model is nil")
	}

	// 1) 组装提示词
	mdJSON := "{}"
	if len(metadata) > 0 {
		if bs, err := json.Marshal(metadata); err == nil {
			mdJSON = string(bs)
		}
	}
	doc := fmt.Sprintf(
		"<DOCUMENT><DOCUMENT_METADATA>\n\n%s\n\n</DOCUMENT_METADATA>\n\n<DOCUMENT_CONTENT>\n\n%s\n\n</DOCUMENT_CONTENT></DOCUMENT>",
		mdJSON, truncateRunes(sourceMarkdown, s.maxRunes),
	)
	msgs := []*schema.Message{
		{Role: schema.System, Content: summarySystemPrompt},
		{Role: schema.User, Content: doc},
	}

	// 2) 调用模型
	resp, err := s.cm.Generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", capability.ErrInvalidResponse
	}
	summary := strings.TrimSpace(resp.Content)

	// 3) 拼接元数据段
	section := metadataSection(metadata)
	if section == "" {
		return summary, nil
	}
	return section + "\n\n# DOCUMENT SUMMARY\n\n" + summary, nil
}

// metadataSection 空值跳过，key 按字典序输出保证结果稳定
func metadataSection(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := []string{"# DOCUMENT METADATA"}
	for _, k := range keys {
		v := metadata[k]
		if isEmptyValue(v) {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%s:** %v", titleKey(k), v))
	}
	return strings.Join(lines, "\n")
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// titleKey FILE_NAME -> File Name
func titleKey(k string) string {
	words := strings.Fields(strings.ReplaceAll(k, "_", " "))
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

var _ capability.Summarizer = (*Summarizer)(nil)
