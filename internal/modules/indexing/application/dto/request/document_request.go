package request

import "SurfSense/internal/modules/indexing/domain/document"

// UploadDocumentRequest 上传已转换为 markdown 的文件，同步索引
type UploadDocumentRequest struct {
	Filename        string `json:"filename" binding:"required"`
	Markdown        string `json:"markdown" binding:"required"`
	ETLService      string `json:"etl_service"`
	SearchSpaceID   int64  `json:"search_space_id" binding:"required"`
	ShouldSummarize bool   `json:"should_summarize"`
}

// IndexBatchItem 批次中的单个连接器文档（search space / connector / 创建人由批次统一填充）
type IndexBatchItem struct {
	Title           string                `json:"title"`
	SourceMarkdown  string                `json:"source_markdown"`
	UniqueID        string                `json:"unique_id"`
	DocumentType    document.DocumentType `json:"document_type"`
	DisableSummary  bool                  `json:"disable_summary,omitempty"`
	ContentKind     document.ContentKind  `json:"content_kind,omitempty"`
	Metadata        map[string]any        `json:"metadata,omitempty"`
	FallbackSummary string                `json:"fallback_summary,omitempty"`
}

// IndexBatchRequest 投递到索引队列的连接器批次
type IndexBatchRequest struct {
	ConnectorID   *int64           `json:"connector_id"`
	SearchSpaceID int64            `json:"search_space_id" binding:"required"`
	Documents     []IndexBatchItem `json:"documents" binding:"required"`
}

// IndexBatchMessage 索引队列中的消息体
type IndexBatchMessage struct {
	TraceID   string                             `json:"trace_id"`
	Documents []document.ConnectorDocumentParams `json:"documents"`
}

// SearchRequest 知识库检索
type SearchRequest struct {
	SearchSpaceID int64  `json:"search_space_id" binding:"required"`
	Query         string `json:"query" binding:"required"`
	TopK          int    `json:"top_k"` // 默认 5，范围 1-50
}
