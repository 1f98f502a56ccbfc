package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"SurfSense/internal/config"

	arkModel "github.com/cloudwego/eino-ext/components/model/ark"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
)

// ErrNotConfigured 未配置摘要模型，流水线退化为使用 fallback summary 或原文
var ErrNotConfigured = errors.New("chat model provider not configured")

type ChatModelMeta struct {
	Provider string
	Model    string
}

func NewChatModelFromConfig(ctx context.Context, conf *config.Config) (model.BaseChatModel, ChatModelMeta, error) {
	if conf == nil {
		return nil, ChatModelMeta{}, fmt.Errorf("nil config")
	}
	cc := conf.AIConfig.ChatModel
	meta := ChatModelMeta{
		Provider: strings.ToLower(strings.TrimSpace(cc.Provider)),
		Model:    strings.TrimSpace(cc.Model),
	}
	timeout := 2 * time.Minute
	if cc.TimeoutSeconds > 0 {
		timeout = time.Duration(cc.TimeoutSeconds) * time.Second
	}

	switch meta.Provider {
	case "", "disabled", "none":
		return nil, ChatModelMeta{}, ErrNotConfigured

	case "openai":
		apiKey := orEnv(cc.APIKey, "OPENAI_API_KEY")
		meta.Model = orEnv(meta.Model, "OPENAI_MODEL")
		if apiKey == "" || meta.Model == "" {
			return nil, ChatModelMeta{}, fmt.Errorf("openai chat model missing apiKey/model")
		}
		cm, err := openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:     apiKey,
			Model:      meta.Model,
			BaseURL:    orEnv(cc.BaseURL, "OPENAI_BASE_URL"),
			ByAzure:    cc.ByAzure,
			APIVersion: strings.TrimSpace(cc.AzureAPIVersion),
			Timeout:    timeout,
		})
		if err != nil {
			return nil, ChatModelMeta{}, err
		}
		return cm, meta, nil

	case "ark":
		apiKey := orEnv(cc.APIKey, "ARK_API_KEY")
		accessKey := orEnv(cc.AccessKey, "ARK_ACCESS_KEY")
		secretKey := orEnv(cc.SecretKey, "ARK_SECRET_KEY")
		meta.Model = orEnv(meta.Model, "ARK_MODEL_ID")
		if apiKey == "" && (accessKey == "" || secretKey == "") {
			return nil, ChatModelMeta{}, fmt.Errorf("ark chat model missing apiKey or accessKey/secretKey")
		}
		if meta.Model == "" {
			return nil, ChatModelMeta{}, fmt.Errorf("ark chat model missing model")
		}
		retryTimes := 2
		if cc.RetryTimes > 0 {
			retryTimes = cc.RetryTimes
		}
		cm, err := arkModel.NewChatModel(ctx, &arkModel.ChatModelConfig{
			APIKey:     apiKey,
			AccessKey:  accessKey,
			SecretKey:  secretKey,
			Model:      meta.Model,
			BaseURL:    orEnv(cc.BaseURL, "ARK_BASE_URL"),
			Region:     orEnv(cc.Region, "ARK_REGION"),
			Timeout:    &timeout,
			RetryTimes: &retryTimes,
		})
		if err != nil {
			return nil, ChatModelMeta{}, err
		}
		return cm, meta, nil

	default:
		return nil, ChatModelMeta{}, fmt.Errorf("unknown chat model provider: %s", meta.Provider)
	}
}

func orEnv(v, env string) string {
	v = strings.TrimSpace(v)
	if v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(env))
}
