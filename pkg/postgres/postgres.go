package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPostgresDB создает новый пул соединений PostgreSQL. maxConns <= 0 оставляет значение pgxpool по умолчанию.
func NewPostgresDB(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfgPool, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка при разборе конфигурации postgres: %w", err)
	}
	if maxConns > 0 {
		cfgPool.MaxConns = maxConns
	}

	dbpool, err := pgxpool.NewWithConfig(ctx, cfgPool)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать пул соединений: %w", err)
	}

	// Проверяем соединение с базой данных
	if err := dbpool.Ping(ctx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("не удалось выполнить ping к postgres: %w", err)
	}

	return dbpool, nil
}
