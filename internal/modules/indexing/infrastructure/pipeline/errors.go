package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
	"unicode/utf8"

	"SurfSense/internal/modules/indexing/domain/capability"
)

// Stage 处理阶段
type Stage string

const (
	StageSummarize Stage = "summarize"
	StageChunk     Stage = "chunk"
	StageEmbed     Stage = "embed"
	StagePersist   Stage = "persist"
)

// ErrorKind 失败分类，决定落库的错误信息与日志级别
type ErrorKind string

const (
	KindLLMRetryable ErrorKind = "llm_retryable"
	KindLLMPermanent ErrorKind = "llm_permanent"
	KindEmbedding    ErrorKind = "embedding"
	KindChunking     ErrorKind = "chunking"
	KindUnexpected   ErrorKind = "unexpected"
)

const (
	MsgRateLimit      = "LLM rate limit exceeded. Will retry on next sync."
	MsgLLMTimeout     = "LLM request timed out. Will retry on next sync."
	MsgLLMUnavailable = "LLM service temporarily unavailable. Will retry on next sync."
	MsgLLMBadGateway  = "LLM gateway error. Will retry on next sync."
	MsgLLMServerError = "LLM internal server error. Will retry on next sync."
	MsgLLMConnection  = "Could not reach the LLM service. Check network connectivity."

	MsgLLMAuth          = "LLM authentication failed. Check your API key."
	MsgLLMPermission    = "LLM request denied. Check your account permissions."
	MsgLLMNotFound      = "LLM model not found. Check your model configuration."
	MsgLLMBadRequest    = "LLM rejected the request. Document content may be invalid."
	MsgLLMUnprocessable = "Document exceeds the LLM context window even after optimization."
	MsgLLMResponse      = "LLM returned an invalid response."

	MsgEmbeddingFailed = "Embedding failed. Check your embedding model configuration or service."
	MsgEmbeddingModel  = "Embedding model files are missing or corrupted."
	MsgEmbeddingMemory = "Not enough memory to embed this document."

	MsgChunkingOverflow = "Document structure is too deeply nested to chunk."

	msgUnknown = "Something went wrong during indexing. Error details could not be retrieved."
)

// StageError 某个阶段的失败，Message 为可展示给用户的错误信息
type StageError struct {
	Stage   Stage
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

var statusCodeRe = regexp.MustCompile(`\b([45]\d\d)\b`)

// apiKeyRe OpenAI 风格的密钥
var apiKeyRe = regexp.MustCompile(`\bsk-[A-Za-z0-9_-]{16,}`)

var retryableByCode = map[string]string{
	"429": MsgRateLimit,
	"408": MsgLLMTimeout,
	"503": MsgLLMUnavailable,
	"504": MsgLLMTimeout,
	"502": MsgLLMBadGateway,
	"500": MsgLLMServerError,
}

var permanentByCode = map[string]string{
	"401": MsgLLMAuth,
	"403": MsgLLMPermission,
	"404": MsgLLMNotFound,
	"400": MsgLLMBadRequest,
	"422": MsgLLMUnprocessable,
}

// classify 把原始错误包装为 StageError
func classify(stage Stage, err error) *StageError {
	var se *StageError
	if errors.As(err, &se) {
		return se
	}
	switch stage {
	case StageSummarize:
		kind, msg := classifyLLM(err)
		return &StageError{Stage: stage, Kind: kind, Message: msg, Err: err}
	case StageEmbed:
		return &StageError{Stage: stage, Kind: KindEmbedding, Message: embeddingMessage(err), Err: err}
	case StageChunk:
		if errors.Is(err, capability.ErrChunkingOverflow) {
			return &StageError{Stage: stage, Kind: KindChunking, Message: MsgChunkingOverflow, Err: err}
		}
	}
	return &StageError{Stage: stage, Kind: KindUnexpected, Message: safeMessage(err), Err: err}
}

func classifyLLM(err error) (ErrorKind, string) {
	if errors.Is(err, capability.ErrInvalidResponse) {
		return KindLLMPermanent, MsgLLMResponse
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindLLMRetryable, MsgLLMTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) {
		if ne.Timeout() {
			return KindLLMRetryable, MsgLLMTimeout
		}
		return KindLLMRetryable, MsgLLMConnection
	}

	text := err.Error()
	if m := statusCodeRe.FindStringSubmatch(text); m != nil {
		if msg, ok := retryableByCode[m[1]]; ok {
			return KindLLMRetryable, msg
		}
		if msg, ok := permanentByCode[m[1]]; ok {
			return KindLLMPermanent, msg
		}
	}

	low := strings.ToLower(text)
	switch {
	case strings.Contains(low, "rate limit"):
		return KindLLMRetryable, MsgRateLimit
	case strings.Contains(low, "timeout") || strings.Contains(low, "timed out"):
		return KindLLMRetryable, MsgLLMTimeout
	case strings.Contains(low, "connection refused") || strings.Contains(low, "no such host") || strings.Contains(low, "connection reset"):
		return KindLLMRetryable, MsgLLMConnection
	}
	return KindLLMPermanent, safeMessage(err)
}

func embeddingMessage(err error) string {
	switch {
	case errors.Is(err, capability.ErrEmbeddingModel):
		return MsgEmbeddingModel
	case strings.Contains(strings.ToLower(err.Error()), "out of memory"):
		return MsgEmbeddingMemory
	default:
		return MsgEmbeddingFailed
	}
}

func safeMessage(err error) string {
	if err == nil {
		return msgUnknown
	}
	msg := scrubErrMsg(err.Error())
	if msg == "" {
		return msgUnknown
	}
	return msg
}

// scrubErrMsg 截断到 255 字节并屏蔽可能携带密钥的信息
func scrubErrMsg(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	low := strings.ToLower(s)
	if strings.Contains(low, "api_key") || strings.Contains(low, "apikey") || strings.Contains(low, "secret") ||
		strings.Contains(low, "authorization") || apiKeyRe.MatchString(s) {
		return "redacted"
	}
	if len(s) > 255 {
		s = s[:255]
		// 避免截断在多字节字符中间
		for len(s) > 0 && !utf8.ValidString(s) {
			s = s[:len(s)-1]
		}
	}
	return s
}
