package adapter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"SurfSense/internal/modules/indexing/domain/document"
)

// fallbackSummaryRunes 摘要不可用时截取原文的长度
const fallbackSummaryRunes = 4000

// FileUpload 上传文件（已转换为 markdown）
type FileUpload struct {
	Filename        string
	Markdown        string
	ETLService      string
	SearchSpaceID   int64
	UserID          string
	ShouldSummarize bool
}

// FromFileUpload 文件名同时作为标题与唯一标识
func FromFileUpload(in FileUpload) (*document.ConnectorDocument, error) {
	return document.NewConnectorDocument(document.ConnectorDocumentParams{
		Title:           in.Filename,
		SourceMarkdown:  in.Markdown,
		UniqueID:        in.Filename,
		DocumentType:    document.TypeFile,
		DisableSummary:  !in.ShouldSummarize,
		ContentKind:     document.ContentKindText,
		FallbackSummary: truncateRunes(in.Markdown, fallbackSummaryRunes),
		SearchSpaceID:   in.SearchSpaceID,
		CreatedByID:     in.UserID,
		Metadata: map[string]any{
			"FILE_NAME":   in.Filename,
			"ETL_SERVICE": in.ETLService,
		},
	})
}

// GithubFile 仓库中的单个文件
type GithubFile struct {
	Repo          string
	Path          string
	Ref           string
	Content       string
	ConnectorID   int64
	SearchSpaceID int64
	UserID        string
}

// FromGithubFile 源码走代码切片器，不做摘要
func FromGithubFile(in GithubFile) (*document.ConnectorDocument, error) {
	// 包装前校验，空文件不能靠代码块标记通过
	if strings.TrimSpace(in.Content) == "" {
		return nil, fmt.Errorf("%w: github file %s is empty", document.ErrValidation, in.Path)
	}
	connectorID := in.ConnectorID
	lang := languageOf(in.Path)
	md := map[string]any{
		"REPOSITORY": in.Repo,
		"FILE_PATH":  in.Path,
	}
	if in.Ref != "" {
		md["REF"] = in.Ref
	}
	if lang != "" {
		md["LANGUAGE"] = lang
	}
	return document.NewConnectorDocument(document.ConnectorDocumentParams{
		Title:          in.Repo + "/" + in.Path,
		SourceMarkdown: "```" + lang + "\n" + in.Content + "\n```",
		UniqueID:       in.Repo + ":" + in.Path,
		DocumentType:   document.TypeGithubConnector,
		DisableSummary: true,
		ContentKind:    document.ContentKindCode,
		Metadata:       md,
		ConnectorID:    &connectorID,
		SearchSpaceID:  in.SearchSpaceID,
		CreatedByID:    in.UserID,
	})
}

type SlackMessage struct {
	ChannelID     string
	ChannelName   string
	TS            string
	Author        string
	Text          string
	ConnectorID   int64
	SearchSpaceID int64
	UserID        string
}

// FromSlackMessage 消息较短，直接以原文作为文档内容
func FromSlackMessage(in SlackMessage) (*document.ConnectorDocument, error) {
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: slack message %s has no text", document.ErrValidation, in.TS)
	}
	connectorID := in.ConnectorID
	title := in.ChannelName
	if title == "" {
		title = in.ChannelID
	}
	return document.NewConnectorDocument(document.ConnectorDocumentParams{
		Title:          fmt.Sprintf("#%s %s", title, in.TS),
		SourceMarkdown: fmt.Sprintf("**%s**: %s", in.Author, in.Text),
		UniqueID:       in.ChannelID + ":" + in.TS,
		DocumentType:   document.TypeSlackConnector,
		DisableSummary: true,
		Metadata: map[string]any{
			"CHANNEL_ID":   in.ChannelID,
			"CHANNEL_NAME": in.ChannelName,
			"AUTHOR":       in.Author,
			"TS":           in.TS,
		},
		ConnectorID:   &connectorID,
		SearchSpaceID: in.SearchSpaceID,
		CreatedByID:   in.UserID,
	})
}

type NotionPage struct {
	PageID        string
	Title         string
	Markdown      string
	URL           string
	ConnectorID   int64
	SearchSpaceID int64
	UserID        string
}

func FromNotionPage(in NotionPage) (*document.ConnectorDocument, error) {
	connectorID := in.ConnectorID
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = "Untitled"
	}
	md := map[string]any{"PAGE_ID": in.PageID}
	if in.URL != "" {
		md["URL"] = in.URL
	}
	return document.NewConnectorDocument(document.ConnectorDocumentParams{
		Title:           title,
		SourceMarkdown:  in.Markdown,
		UniqueID:        in.PageID,
		DocumentType:    document.TypeNotionConnector,
		FallbackSummary: truncateRunes(in.Markdown, fallbackSummaryRunes),
		Metadata:        md,
		ConnectorID:     &connectorID,
		SearchSpaceID:   in.SearchSpaceID,
		CreatedByID:     in.UserID,
	})
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

var languages = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".ts":   "typescript",
	".tsx":  "tsx",
	".java": "java",
	".rs":   "rust",
	".rb":   "ruby",
	".c":    "c",
	".h":    "c",
	".cpp":  "cpp",
	".cs":   "csharp",
	".sh":   "bash",
}

func languageOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return languages[strings.ToLower(path[i:])]
}
