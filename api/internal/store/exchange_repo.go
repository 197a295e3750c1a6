package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"schedule-assistant/api/internal/chat"
)

type ExchangeRepo struct{ DB *sql.DB }

func NewExchangeRepo(db *sql.DB) *ExchangeRepo { return &ExchangeRepo{DB: db} }

var schema = []string{`
create table if not exists chat_exchanges (
  id         uuid primary key,
  channel    text not null default '',
  question   text not null,
  answer     text not null,
  safe       boolean not null,
  created_at timestamptz not null default now()
)`,
	`create index if not exists chat_exchanges_created_at_idx on chat_exchanges (created_at)`,
}

// EnsureSchema создаёт таблицу журнала, если её ещё нет.
func (r *ExchangeRepo) EnsureSchema(ctx context.Context) error {
	for _, q := range schema {
		if _, err := r.DB.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Record сохраняет отданный пользователю ответ (апологию или экранированный текст).
func (r *ExchangeRepo) Record(ctx context.Context, ex chat.Exchange) error {
	const q = `
insert into chat_exchanges (id, channel, question, answer, safe, created_at)
values ($1,$2,$3,$4,$5,$6)`
	_, err := r.DB.ExecContext(ctx, q, ex.ID.String(), ex.Channel, ex.Question, ex.Answer, ex.Safe, ex.CreatedAt)
	return err
}

// PurgeOlderThan удаляет старые записи, чтобы не раздувать БД.
func (r *ExchangeRepo) PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, errors.New("olderThan must be > 0")
	}
	cutoff := time.Now().Add(-olderThan)
	const q = `delete from chat_exchanges where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, cutoff)
	if err != nil {
		return 0, err
	}
	aff, _ := res.RowsAffected()
	return aff, nil
}

// ApplyRetention чистит журнал при старте; retention <= 0 означает «хранить всё».
func (r *ExchangeRepo) ApplyRetention(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	return r.PurgeOlderThan(ctx, retention)
}
