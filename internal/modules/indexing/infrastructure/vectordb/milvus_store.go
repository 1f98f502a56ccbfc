package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	FieldID            = "id"
	FieldVector        = "vector"
	FieldSearchSpaceID = "search_space_id"
	FieldDocumentID    = "document_id"
	FieldChunkID       = "chunk_id"
	FieldContent       = "content"

	maxContentRunes = 4096
)

type UpsertItem struct {
	ID            string
	Vector        []float32
	SearchSpaceID int64
	DocumentID    int64
	ChunkID       int64
	Content       string
}

type SearchHit struct {
	ID            string
	Score         float32
	SearchSpaceID int64
	DocumentID    int64
	ChunkID       int64
	Content       string
}

// MilvusStore 切片向量集合的读写
type MilvusStore struct {
	cli         mclient.Client
	collection  string
	metricType  entity.MetricType
	vectorDim   int
	searchParam entity.SearchParam
}

func NewMilvusStore(cli mclient.Client, collection string, vectorDim int, metricType entity.MetricType) (*MilvusStore, error) {
	if cli == nil {
		return nil, errors.New("milvus client is nil")
	}
	if strings.TrimSpace(collection) == "" {
		return nil, errors.New("collection is empty")
	}
	if vectorDim <= 0 {
		return nil, fmt.Errorf("invalid vectorDim: %d", vectorDim)
	}
	sp, err := entity.NewIndexAUTOINDEXSearchParam(1)
	if err != nil {
		return nil, err
	}
	return &MilvusStore{cli: cli, collection: collection, metricType: metricType, vectorDim: vectorDim, searchParam: sp}, nil
}

func (s *MilvusStore) Upsert(ctx context.Context, items []UpsertItem) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	vectors := make([][]float32, 0, len(items))
	spaceIDs := make([]int64, 0, len(items))
	docIDs := make([]int64, 0, len(items))
	chunkIDs := make([]int64, 0, len(items))
	contents := make([]string, 0, len(items))

	for _, it := range items {
		if it.ID == "" {
			return errors.New("upsert item missing ID")
		}
		if len(it.Vector) != s.vectorDim {
			return fmt.Errorf("vector dim mismatch for id=%s, got=%d want=%d", it.ID, len(it.Vector), s.vectorDim)
		}
		ids = append(ids, it.ID)
		vectors = append(vectors, it.Vector)
		spaceIDs = append(spaceIDs, it.SearchSpaceID)
		docIDs = append(docIDs, it.DocumentID)
		chunkIDs = append(chunkIDs, it.ChunkID)
		contents = append(contents, truncateRunes(it.Content, maxContentRunes))
	}

	_, err := s.cli.Upsert(
		ctx,
		s.collection,
		"",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnFloatVector(FieldVector, s.vectorDim, vectors),
		entity.NewColumnInt64(FieldSearchSpaceID, spaceIDs),
		entity.NewColumnInt64(FieldDocumentID, docIDs),
		entity.NewColumnInt64(FieldChunkID, chunkIDs),
		entity.NewColumnVarChar(FieldContent, contents),
	)
	return err
}

// DeleteByDocumentID 删除文档的全部切片向量
func (s *MilvusStore) DeleteByDocumentID(ctx context.Context, documentID int64) error {
	return s.cli.Delete(ctx, s.collection, "", fmt.Sprintf("%s == %d", FieldDocumentID, documentID))
}

// Search 在 search space 内召回 topK
func (s *MilvusStore) Search(ctx context.Context, vector []float32, topK int, searchSpaceID int64) ([]SearchHit, error) {
	if len(vector) != s.vectorDim {
		return nil, fmt.Errorf("vector dim mismatch, got=%d want=%d", len(vector), s.vectorDim)
	}
	if topK <= 0 {
		topK = 5
	}
	res, err := s.cli.Search(
		ctx,
		s.collection,
		[]string{},
		fmt.Sprintf("%s == %d", FieldSearchSpaceID, searchSpaceID),
		[]string{FieldSearchSpaceID, FieldDocumentID, FieldChunkID, FieldContent},
		[]entity.Vector{entity.FloatVector(vector)},
		FieldVector,
		s.metricType,
		topK,
		s.searchParam,
	)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return []SearchHit{}, nil
	}
	return parseSearchResult(res[0])
}

func parseSearchResult(sr mclient.SearchResult) ([]SearchHit, error) {
	if sr.Err != nil {
		return nil, sr.Err
	}
	hits := make([]SearchHit, 0, sr.ResultCount)
	spaceCol := columnByName(sr.Fields, FieldSearchSpaceID)
	docCol := columnByName(sr.Fields, FieldDocumentID)
	chunkCol := columnByName(sr.Fields, FieldChunkID)
	contentCol := columnByName(sr.Fields, FieldContent)

	for i := 0; i < sr.ResultCount; i++ {
		h := SearchHit{}
		if sr.IDs != nil {
			h.ID, _ = sr.IDs.GetAsString(i)
		}
		if i < len(sr.Scores) {
			h.Score = sr.Scores[i]
		}
		if spaceCol != nil {
			h.SearchSpaceID, _ = spaceCol.GetAsInt64(i)
		}
		if docCol != nil {
			h.DocumentID, _ = docCol.GetAsInt64(i)
		}
		if chunkCol != nil {
			h.ChunkID, _ = chunkCol.GetAsInt64(i)
		}
		if contentCol != nil {
			h.Content, _ = contentCol.GetAsString(i)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

func columnByName(cols mclient.ResultSet, name string) entity.Column {
	for _, c := range cols {
		if c != nil && c.Name() == name {
			return c
		}
	}
	return nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
