package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"notegen-api/internal/domain/entity"
	"notegen-api/internal/domain/repository"
	apperrors "notegen-api/pkg/errors"
)

var _ repository.UserRepository = (*UserRepository)(nil)

// UserRepository users 表读写；查询邮箱前统一做规范化
type UserRepository struct {
	client *Client
}

// NewUserRepository 创建用户仓储
func NewUserRepository(client *Client) *UserRepository {
	return &UserRepository{client: client}
}

// spanErr 把非预期错误记录到 span 上，原样返回
func spanErr(span trace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

// Create 写入新用户，邮箱冲突返回 ErrDuplicateEmail
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	ctx, span := tracer.Start(ctx, "postgres.users.create")
	defer span.End()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	err := getDB(ctx, r.client.db).Create(newUserModel(user)).Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrDuplicateEmail
	default:
		return spanErr(span, fmt.Errorf("create user: %w", err))
	}
}

// GetByID 用户不存在时返回 nil, nil
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.findOne(ctx, "postgres.users.get_by_id", "id = ?", id)
}

// GetByEmail 用户不存在时返回 nil, nil
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.findOne(ctx, "postgres.users.get_by_email", "email = ?", entity.NormalizeEmail(email))
}

func (r *UserRepository) findOne(ctx context.Context, spanName, cond string, arg any) (*entity.User, error) {
	ctx, span := tracer.Start(ctx, spanName)
	defer span.End()

	var m userModel
	err := getDB(ctx, r.client.db).Where(cond, arg).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, spanErr(span, fmt.Errorf("find user: %w", err))
	}
	return m.toEntity(), nil
}

// UpdateLastLogin 登录成功后记录时间
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.users.update_last_login")
	defer span.End()

	now := time.Now()
	err := getDB(ctx, r.client.db).Model(&userModel{}).Where("id = ?", id).
		Updates(map[string]any{"last_login_at": now, "updated_at": now}).Error
	if err != nil {
		return spanErr(span, fmt.Errorf("update last login: %w", err))
	}
	return nil
}

// ExistsByEmail 邮箱是否已注册
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := tracer.Start(ctx, "postgres.users.exists_by_email")
	defer span.End()

	var n int64
	err := getDB(ctx, r.client.db).Model(&userModel{}).
		Where("email = ?", entity.NormalizeEmail(email)).Limit(1).Count(&n).Error
	if err != nil {
		return false, spanErr(span, fmt.Errorf("check email: %w", err))
	}
	return n > 0, nil
}
