// Package repository 提供数据访问层
package repository

import (
	"context"
	"database/sql"
)

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store 支持事务与占位符改写的数据库，*database.DB 实现该接口
type Store interface {
	DB
	Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error
	Rebind(query string) string
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}
