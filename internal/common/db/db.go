package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewMySQL 打开 MySQL 连接并设置连接池参数。
func NewMySQL(host string, port int, user, password, database string, maxIdle, maxOpen int) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		user, password, host, port, database)
	return Open(mysql.Open(dsn), maxIdle, maxOpen)
}

// NewMySQLFromDSN 使用完整 DSN 打开（如 .env 中的 DATABASE_DSN 覆盖时）。
func NewMySQLFromDSN(dsn string, maxIdle, maxOpen int) (*gorm.DB, error) {
	return Open(mysql.Open(dsn), maxIdle, maxOpen)
}

// Open 打开任意方言的 GORM 连接。
// TranslateError 让方言驱动把唯一键冲突等错误翻译成 gorm.ErrDuplicatedKey，
// 供仓储层统一判断，不必针对各数据库的错误码分别处理。
func Open(dialector gorm.Dialector, maxIdle, maxOpen int) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if maxIdle > 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return gdb, nil
}
