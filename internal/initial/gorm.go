package initial

import (
	"fmt"
	"log"
	"os"
	"time"

	"SurfSense/internal/config"
	"SurfSense/internal/modules/indexing/domain/document"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenGorm 连接 MySQL；TranslateError 打开后唯一约束冲突会映射为 gorm.ErrDuplicatedKey
func OpenGorm(conf config.MysqlConfig) (*gorm.DB, error) {
	port := conf.Port
	if port <= 0 {
		port = 3306
	}
	dbName := conf.DatabaseName
	if dbName == "" {
		dbName = "surfsense"
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local", conf.User, conf.Password, conf.Host, port, dbName)

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(32)
	sqlDB.SetMaxIdleConns(8)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Migrate 建表 / 补列 / 补索引
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&document.Document{}, &document.Chunk{})
}
