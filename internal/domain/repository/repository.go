// Package repository 定义领域层依赖的存储端口
package repository

import "context"

// Transactor 在同一事务中执行 fn；fn 内的仓储调用须使用传入的 ctx
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
