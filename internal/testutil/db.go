// Package testutil 测试辅助：内存 SQLite 数据库与测试数据
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/bingooyong/apphub/internal/config"
	"github.com/bingooyong/apphub/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresDSNEnv 集成测试使用的 PostgreSQL 连接串
const PostgresDSNEnv = "APPHUB_TEST_POSTGRES_DSN"

// NewDB 创建一个独立的内存 SQLite 数据库并执行全部迁移
// 单连接保证同一测试内所有查询看到同一个内存库，代价是并发事务在连接池上串行执行，
// 行锁相关的并发行为需要用 NewPostgresDB 验证
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:       database.DriverSQLite,
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxIdleConns: 1,
		MaxOpenConns: 1,
		LogLevel:     "silent",
	}

	db, err := database.Open(cfg, zap.NewNop())
	require.NoError(t, err, "初始化数据库失败")
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverSQLite, zap.NewNop()), "数据库迁移失败")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}

// NewPostgresDB 连接 APPHUB_TEST_POSTGRES_DSN 指定的数据库并执行迁移，未设置时跳过测试。
// 数据库在测试之间共享，调用方应使用唯一的测试数据
func NewPostgresDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := os.Getenv(PostgresDSNEnv)
	if dsn == "" {
		t.Skipf("%s is not set", PostgresDSNEnv)
	}

	cfg := &config.DatabaseConfig{
		Driver:       database.DriverPostgres,
		DSN:          dsn,
		MaxIdleConns: 4,
		MaxOpenConns: 16,
		LogLevel:     "silent",
	}

	db, err := database.Open(cfg, zap.NewNop())
	require.NoError(t, err, "连接 PostgreSQL 失败")
	require.NoError(t, database.Migrate(context.Background(), db, database.DriverPostgres, zap.NewNop()), "数据库迁移失败")

	t.Cleanup(func() {
		_ = database.Close(db)
	})
	return db
}
