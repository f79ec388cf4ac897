package messaging

import (
	"context"
	"fmt"

	apperrors "notegen-api/pkg/errors"
	"notegen-api/pkg/logger"
)

// RunFunc 执行一次生成
type RunFunc func(ctx context.Context, generationID string) error

// NewGenerationRunHandler 消费 generation_run 消息。
// 流程失败已记录在生成状态中，不再让消息重投；只有存储不可用时返回错误等待重试。
func NewGenerationRunHandler(run RunFunc) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		var payload GenerationRunMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("decode generation_run payload: %w", err)
		}
		if payload.GenerationID == "" {
			logger.Warn(ctx, "generation_run message without generation id", "message_id", msg.ID)
			return nil
		}

		ctx = logger.WithContext(ctx, logger.GenerationIDKey, payload.GenerationID)
		err := run(ctx, payload.GenerationID)
		switch {
		case err == nil:
			return nil
		case apperrors.IsCode(err, apperrors.CodeCacheError):
			return err
		case apperrors.IsCode(err, apperrors.CodeGenerationNotFound),
			apperrors.IsCode(err, apperrors.CodeGenerationInProgress):
			logger.Warn(ctx, "generation_run skipped", "reason", err.Error())
			return nil
		default:
			logger.Info(ctx, "generation_run finished with error", "error", err.Error())
			return nil
		}
	}
}
