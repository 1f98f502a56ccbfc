package respond

import "time"

// DocumentStatusRespond 文档索引状态
type DocumentStatusRespond struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	DocumentType  string    `json:"document_type"`
	SearchSpaceID int64     `json:"search_space_id"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	ChunkCount    int64     `json:"chunk_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IndexBatchRespond 一个批次的处理结果
type IndexBatchRespond struct {
	Received  int                     `json:"received"`
	Prepared  int                     `json:"prepared"`
	Ready     int                     `json:"ready"`
	Failed    int                     `json:"failed"`
	Skipped   int                     `json:"skipped"`
	Documents []DocumentStatusRespond `json:"documents"`
}

// EnqueueRespond 批次已进入索引队列
type EnqueueRespond struct {
	TraceID   string `json:"trace_id"`
	Documents int    `json:"documents"`
	Partition int32  `json:"partition"`
	Offset    int64  `json:"offset"`
}

// SearchHit 单个召回切片及其引用
type SearchHit struct {
	DocumentID    int64   `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	DocumentType  string  `json:"document_type"`
	ChunkID       int64   `json:"chunk_id"`
	Position      int     `json:"position"`
	Score         float32 `json:"score"`
	Content       string  `json:"content"`
}

type SearchRespond struct {
	Query      string      `json:"query"`
	Hits       []SearchHit `json:"hits"`
	TotalHits  int         `json:"total_hits"` // 向量库返回的条数（过滤前）
	DurationMs int64       `json:"duration_ms"`
}
