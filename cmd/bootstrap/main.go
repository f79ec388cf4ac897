package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"notegen-api/internal/config"
	"notegen-api/internal/domain/entity"
	"notegen-api/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化数据层（仅 PostgreSQL）
	dataLayer, cleanup, err := wire.InitializePostgresOnly(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize data layer: %v", err)
	}
	defer cleanup()

	// 3. 建表
	if err := dataLayer.PgClient.AutoMigrate(ctx); err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}
	fmt.Println("Schema migrated.")

	// 4. 可选的初始账号
	email := os.Getenv("BOOTSTRAP_EMAIL")
	password := os.Getenv("BOOTSTRAP_PASSWORD")
	if email == "" || password == "" {
		fmt.Println("BOOTSTRAP_EMAIL/BOOTSTRAP_PASSWORD not set, skipping seed user.")
		fmt.Println("Bootstrap completed successfully.")
		return
	}
	if !entity.ValidPassword(password) {
		log.Fatalf("BOOTSTRAP_PASSWORD must be at least %d characters", entity.MinPasswordLength)
	}

	// 检查与创建放在同一事务中，重复执行时保持幂等
	err = dataLayer.TxManager.WithTransaction(ctx, func(txCtx context.Context) error {
		exists, err := dataLayer.UserRepo.ExistsByEmail(txCtx, email)
		if err != nil {
			return fmt.Errorf("check user existence: %w", err)
		}
		if exists {
			fmt.Printf("User %s already exists.\n", email)
			return nil
		}

		fmt.Printf("Creating user: %s...\n", email)
		user := entity.NewUser(email, os.Getenv("BOOTSTRAP_NAME"))
		if err := user.SetPassword(password); err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := dataLayer.UserRepo.Create(txCtx, user); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		fmt.Printf("User created with ID: %s\n", user.ID)
		return nil
	})
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}

	fmt.Println("Bootstrap completed successfully.")
}
