package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"SurfSense/internal/modules/indexing/application/dto/request"
	"SurfSense/internal/modules/indexing/application/dto/respond"
	"SurfSense/pkg/xerr"
	"SurfSense/pkg/zlog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

const (
	ToolSearchKnowledgeBase = "search_knowledge_base"
	ToolGetDocumentStatus   = "get_document_status"
)

type Searcher interface {
	Search(ctx context.Context, req request.SearchRequest) (*respond.SearchRespond, error)
}

type DocumentStatusReader interface {
	GetDocument(ctx context.Context, id int64) (*respond.DocumentStatusRespond, error)
}

// KnowledgeServerConfig 知识库 MCP Server 配置
type KnowledgeServerConfig struct {
	Name    string
	Version string
}

type knowledgeToolHandler struct {
	search Searcher
	status DocumentStatusReader
}

// NewKnowledgeServer 创建知识库 MCP Server，依赖为 nil 的工具不注册
func NewKnowledgeServer(conf KnowledgeServerConfig, search Searcher, status DocumentStatusReader) *server.MCPServer {
	s := server.NewMCPServer(conf.Name, conf.Version, server.WithToolCapabilities(true))
	h := &knowledgeToolHandler{search: search, status: status}

	if search != nil {
		s.AddTool(mcp.NewTool(ToolSearchKnowledgeBase,
			mcp.WithDescription("在指定 search space 的知识库中做语义检索，返回带文档引用的切片。"),
			mcp.WithNumber("search_space_id", mcp.Required(), mcp.Description("search space ID")),
			mcp.WithString("query", mcp.Required(), mcp.Description("检索问题")),
			mcp.WithNumber("top_k", mcp.Description("返回条数，默认 5，最大 50")),
		), h.handleSearch)
	}
	if status != nil {
		s.AddTool(mcp.NewTool(ToolGetDocumentStatus,
			mcp.WithDescription("查询文档的索引状态（pending/processing/ready/failed）及失败原因。"),
			mcp.WithNumber("document_id", mcp.Required(), mcp.Description("文档 ID")),
		), h.handleStatus)
	}
	return s
}

func (h *knowledgeToolHandler) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	spaceID, ok := intArg(args, "search_space_id")
	if !ok || spaceID <= 0 {
		return mcp.NewToolResultError("search_space_id must be a positive integer"), nil
	}
	query, _ := args["query"].(string)
	if strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query cannot be empty"), nil
	}
	topK, _ := intArg(args, "top_k")

	res, err := h.search.Search(ctx, request.SearchRequest{SearchSpaceID: spaceID, Query: query, TopK: int(topK)})
	if err != nil {
		zlog.Warn("mcp search failed", zap.Int64("search_space_id", spaceID), zap.Error(err))
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return jsonResult(res)
}

func (h *knowledgeToolHandler) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := intArg(req.GetArguments(), "document_id")
	if !ok || id <= 0 {
		return mcp.NewToolResultError("document_id must be a positive integer"), nil
	}
	res, err := h.status.GetDocument(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(toolError(err)), nil
	}
	return jsonResult(res)
}

// intArg JSON 数字解码为 float64，也接受字符串形式
func intArg(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), v == float64(int64(v))
	case int:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func toolError(err error) string {
	var ce *xerr.CodeError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return "internal error"
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError("failed to encode result"), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
