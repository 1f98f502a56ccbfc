package document

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var ErrValidation = errors.New("invalid connector document")

// 与 documents 表列宽一致
const (
	MaxTitleRunes     = 512
	MaxCreatedByBytes = 64
)

// ConnectorDocument 连接器适配器产出的规范化文档，构造后不可变
type ConnectorDocument struct {
	Title           string
	SourceMarkdown  string
	UniqueID        string
	DocumentType    DocumentType
	ShouldSummarize bool
	ContentKind     ContentKind
	Metadata        map[string]any
	FallbackSummary string
	ConnectorID     *int64
	SearchSpaceID   int64
	CreatedByID     string
}

// ConnectorDocumentParams 构造参数。DisableSummary 为 false 时默认做摘要
type ConnectorDocumentParams struct {
	Title           string         `json:"title"`
	SourceMarkdown  string         `json:"source_markdown"`
	UniqueID        string         `json:"unique_id"`
	DocumentType    DocumentType   `json:"document_type"`
	DisableSummary  bool           `json:"disable_summary,omitempty"`
	ContentKind     ContentKind    `json:"content_kind,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	FallbackSummary string         `json:"fallback_summary,omitempty"`
	ConnectorID     *int64         `json:"connector_id,omitempty"`
	SearchSpaceID   int64          `json:"search_space_id"`
	CreatedByID     string         `json:"created_by_id"`
}

func NewConnectorDocument(p ConnectorDocumentParams) (*ConnectorDocument, error) {
	// 超长标题按字符截断，不整条拒绝
	title := truncateRunes(p.Title, MaxTitleRunes)
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", title},
		{"source_markdown", p.SourceMarkdown},
		{"unique_id", p.UniqueID},
		{"created_by_id", p.CreatedByID},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, fmt.Errorf("%w: %s must not be empty or whitespace", ErrValidation, f.name)
		}
	}
	if len(p.CreatedByID) > MaxCreatedByBytes {
		return nil, fmt.Errorf("%w: created_by_id exceeds %d bytes", ErrValidation, MaxCreatedByBytes)
	}
	if p.SearchSpaceID <= 0 {
		return nil, fmt.Errorf("%w: search_space_id must be positive", ErrValidation)
	}
	if p.ConnectorID != nil && *p.ConnectorID <= 0 {
		return nil, fmt.Errorf("%w: connector_id must be positive", ErrValidation)
	}
	if !p.DocumentType.Valid() {
		return nil, fmt.Errorf("%w: unknown document_type %q", ErrValidation, p.DocumentType)
	}

	kind := p.ContentKind
	if kind == "" {
		kind = ContentKindText
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown content_kind %q", ErrValidation, p.ContentKind)
	}

	md := make(map[string]any, len(p.Metadata))
	for k, v := range p.Metadata {
		md[k] = v
	}

	var connectorID *int64
	if p.ConnectorID != nil {
		id := *p.ConnectorID
		connectorID = &id
	}

	return &ConnectorDocument{
		Title:           title,
		SourceMarkdown:  p.SourceMarkdown,
		UniqueID:        p.UniqueID,
		DocumentType:    p.DocumentType,
		ShouldSummarize: !p.DisableSummary,
		ContentKind:     kind,
		Metadata:        md,
		FallbackSummary: p.FallbackSummary,
		ConnectorID:     connectorID,
		SearchSpaceID:   p.SearchSpaceID,
		CreatedByID:     p.CreatedByID,
	}, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
