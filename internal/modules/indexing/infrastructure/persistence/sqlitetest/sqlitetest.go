// Package sqlitetest 提供测试用的内存 SQLite 数据库
package sqlitetest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"SurfSense/internal/modules/indexing/domain/document"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// Open 创建独立的内存库并完成迁移，同一测试内多次调用互不共享
func Open(t testing.TB) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("%s_%d", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()), seq.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	// 单连接，事务内外串行
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&document.Document{}, &document.Chunk{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
