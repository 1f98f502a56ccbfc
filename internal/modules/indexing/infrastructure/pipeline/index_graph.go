package pipeline

import (
	"context"
	"fmt"
	"time"

	"SurfSense/internal/modules/indexing/domain/document"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"
)

type indexState struct {
	Prepared *PreparedDocument
	Log      logContext

	Content   string
	Embedding []float32
	Texts     []string
	Chunks    []document.Chunk

	Start time.Time
	Err   *StageError
}

func (p *IndexingPipelineService) buildGraph(ctx context.Context) (compose.Runnable[*indexState, *indexState], error) {
	const (
		Summarize = "Summarize"
		Chunk     = "Chunk"
		Embed     = "Embed"
		Persist   = "Persist"
	)

	g := compose.NewGraph[*indexState, *indexState]()

	_ = g.AddLambdaNode(Summarize, compose.InvokableLambdaWithOption(p.summarizeNode), compose.WithNodeName(Summarize))
	_ = g.AddLambdaNode(Chunk, compose.InvokableLambdaWithOption(p.chunkNode), compose.WithNodeName(Chunk))
	_ = g.AddLambdaNode(Embed, compose.InvokableLambdaWithOption(p.embedNode), compose.WithNodeName(Embed))
	_ = g.AddLambdaNode(Persist, compose.InvokableLambdaWithOption(p.persistNode), compose.WithNodeName(Persist))

	_ = g.AddEdge(compose.START, Summarize)
	_ = g.AddEdge(Summarize, Chunk)
	_ = g.AddEdge(Chunk, Embed)
	_ = g.AddEdge(Embed, Persist)
	_ = g.AddEdge(Persist, compose.END)

	return g.Compile(ctx, compose.WithGraphName("DocumentIndexPipeline"), compose.WithNodeTriggerMode(compose.AllPredecessor))
}

// Index 驱动单个文档完成 processing -> ready/failed。
// 任何失败都只落到文档状态上，调用方通过 Record.Document.Status 判断结果
func (p *IndexingPipelineService) Index(ctx context.Context, prepared *PreparedDocument) {
	if prepared == nil || prepared.Record == nil || prepared.Record.Document == nil || prepared.Source == nil {
		logWarn("index called with incomplete prepared document", logContext{})
		return
	}
	doc := prepared.Record.Document
	lc := newLogContext(prepared.Source).withDoc(doc.ID)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			p.persistFailure(ctx, prepared, lc, &StageError{Stage: StagePersist, Kind: KindUnexpected, Message: safeMessage(err), Err: err})
		}
	}()

	// 1) 标记 processing 并提交
	now := p.now()
	if err := p.repo.UpdateStatus(ctx, doc.ID, document.StatusProcessing, "", now); err != nil {
		p.persistFailure(ctx, prepared, lc, classify(StagePersist, err))
		return
	}
	doc.Status = document.StatusProcessing
	doc.Error = ""
	doc.UpdatedAt = now
	logInfo(logIndexStarted, lc)

	// 2) Summarize -> Chunk -> Embed -> Persist
	st, err := p.r.Invoke(ctx, &indexState{Prepared: prepared, Log: lc, Start: time.Now()})
	switch {
	case err != nil:
		p.persistFailure(ctx, prepared, lc, classify(StagePersist, err))
		return
	case st == nil:
		p.persistFailure(ctx, prepared, lc, classify(StagePersist, fmt.Errorf("nil state")))
		return
	case st.Err != nil:
		p.persistFailure(ctx, prepared, lc, st.Err)
		return
	}

	logInfo(logIndexSuccess, lc, zap.Int("chunk_count", len(prepared.Record.Chunks)), zap.Int64("ms", time.Since(st.Start).Milliseconds()))

	// 3) 同步外部向量索引，失败不影响文档状态
	if p.chunkIndex != nil {
		if err := p.chunkIndex.SyncDocument(ctx, doc, prepared.Record.Chunks); err != nil {
			logWarn(logMirrorFailed, lc, zap.Error(err))
		}
	}
}

func (p *IndexingPipelineService) summarizeNode(ctx context.Context, st *indexState, _ ...any) (*indexState, error) {
	if st.Err != nil {
		return st, nil
	}
	src := st.Prepared.Source

	switch {
	case !src.ShouldSummarize:
		st.Content = src.SourceMarkdown
	case p.summarizer != nil:
		summary, err := p.summarizer.Summarize(ctx, src.SourceMarkdown, src.Metadata)
		if err != nil {
			st.Err = classify(StageSummarize, err)
			return st, nil
		}
		st.Content = summary
	case src.FallbackSummary != "":
		st.Content = src.FallbackSummary
	default:
		st.Content = src.SourceMarkdown
	}
	return st, nil
}

func (p *IndexingPipelineService) chunkNode(ctx context.Context, st *indexState, _ ...any) (*indexState, error) {
	if st.Err != nil {
		return st, nil
	}
	src := st.Prepared.Source
	chunker := p.chunkers.For(src.ContentKind)
	if chunker == nil {
		st.Err = classify(StageChunk, fmt.Errorf("no chunker for content kind %q", src.ContentKind))
		return st, nil
	}
	texts, err := chunker.Chunk(ctx, src.SourceMarkdown)
	if err != nil {
		st.Err = classify(StageChunk, err)
		return st, nil
	}
	st.Texts = texts
	return st, nil
}

func (p *IndexingPipelineService) embedNode(ctx context.Context, st *indexState, _ ...any) (*indexState, error) {
	if st.Err != nil {
		return st, nil
	}

	// 文档内容在前，切片按顺序在后，分批请求
	inputs := make([]string, 0, len(st.Texts)+1)
	inputs = append(inputs, st.Content)
	inputs = append(inputs, st.Texts...)
	vecs, err := p.embedBatched(ctx, inputs)
	if err != nil {
		st.Err = classify(StageEmbed, err)
		return st, nil
	}

	st.Embedding = vecs[0]
	st.Chunks = make([]document.Chunk, 0, len(st.Texts))
	for i, text := range st.Texts {
		st.Chunks = append(st.Chunks, document.Chunk{Position: i, Content: text, Embedding: vecs[i+1]})
	}
	return st, nil
}

// embedBatched 输出与 inputs 一一对应
func (p *IndexingPipelineService) embedBatched(ctx context.Context, inputs []string) ([][]float32, error) {
	vecs := make([][]float32, 0, len(inputs))
	for start := 0; start < len(inputs); start += p.embedBatch {
		end := min(start+p.embedBatch, len(inputs))
		part, err := p.embedder.EmbedMany(ctx, inputs[start:end])
		if err != nil {
			return nil, err
		}
		if len(part) != end-start {
			return nil, fmt.Errorf("embedding result missing: got=%d want=%d", len(part), end-start)
		}
		vecs = append(vecs, part...)
	}
	return vecs, nil
}

func (p *IndexingPipelineService) persistNode(ctx context.Context, st *indexState, _ ...any) (*indexState, error) {
	if st.Err != nil {
		return st, nil
	}
	out := &document.IndexOutput{Content: st.Content, Embedding: st.Embedding, Chunks: st.Chunks}
	now := p.now()
	if err := p.repo.ReplaceChunks(ctx, st.Prepared.Record, out, now); err != nil {
		st.Err = classify(StagePersist, err)
		return st, nil
	}

	doc := st.Prepared.Record.Document
	doc.Content = out.Content
	doc.Embedding = out.Embedding
	doc.Status = document.StatusReady
	doc.Error = ""
	doc.UpdatedAt = now
	st.Prepared.Record.Chunks = out.Chunks
	return st, nil
}

// persistFailure 失败分支：丢弃内存状态，重新读取后写入 failed。
// 使用 WithoutCancel，调用方取消后文档也不会停留在 processing
func (p *IndexingPipelineService) persistFailure(ctx context.Context, prepared *PreparedDocument, lc logContext, se *StageError) {
	ctx = context.WithoutCancel(ctx)
	logIndexFailure(lc, se)

	doc := prepared.Record.Document
	msg := se.Message
	if msg == "" {
		msg = msgUnknown
	}

	fresh, err := p.repo.Reload(ctx, doc.ID)
	if err != nil {
		logError(logPersistFailed, lc, zap.Error(err))
		doc.Status = document.StatusFailed
		doc.Error = msg
		return
	}

	now := p.now()
	if err := p.repo.UpdateStatus(ctx, doc.ID, document.StatusFailed, msg, now); err != nil {
		logError(logPersistFailed, lc, zap.Error(err))
	}
	fresh.Document.Status = document.StatusFailed
	fresh.Document.Error = msg
	fresh.Document.UpdatedAt = now
	*prepared.Record = *fresh
}
