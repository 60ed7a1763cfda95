package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/iurnickita/coursebot/internal/model"
	"github.com/iurnickita/coursebot/internal/store/config"
)

type postgresStore struct {
	database *sql.DB
	timeout  time.Duration
}

func NewPostgresStore(cfg config.Config) (Store, error) {
	db, err := sql.Open("pgx", cfg.DBDsn)
	if err != nil {
		return nil, err
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	// Таблица пользователей.
	// Одна строка на пользователя, записи о курсах и уведомления - JSONB внутри строки,
	// так документ читается и пишется целиком в одной транзакции
	_, err = db.ExecContext(ctx,
		"CREATE TABLE IF NOT EXISTS users ("+
			" telegram_id BIGINT PRIMARY KEY,"+
			" full_name TEXT NOT NULL DEFAULT '',"+
			" phone TEXT NOT NULL DEFAULT '',"+
			" email TEXT NOT NULL DEFAULT '',"+
			" last_active TIMESTAMPTZ NOT NULL,"+
			" created_at TIMESTAMPTZ NOT NULL,"+
			" courses JSONB NOT NULL DEFAULT '[]'::jsonb,"+
			" notifications JSONB NOT NULL DEFAULT '[]'::jsonb"+
			" );")
	if err != nil {
		db.Close()
		return nil, unavailable(err)
	}

	return &postgresStore{
		database: db,
		timeout:  timeout,
	}, nil
}

const selectUser = "SELECT telegram_id, full_name, phone, email, last_active, created_at, courses, notifications" +
	" FROM users"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (model.User, error) {
	var (
		user          model.User
		courses       []byte
		notifications []byte
	)
	err := row.Scan(&user.TelegramID,
		&user.FullName,
		&user.Phone,
		&user.Email,
		&user.LastActive,
		&user.CreatedAt,
		&courses,
		&notifications)
	if err != nil {
		return model.User{}, err
	}
	if err := json.Unmarshal(courses, &user.Courses); err != nil {
		return model.User{}, err
	}
	if err := json.Unmarshal(notifications, &user.Notifications); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (store *postgresStore) GetUser(ctx context.Context, telegramID int64) (model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, store.timeout)
	defer cancel()

	row := store.database.QueryRowContext(ctx, selectUser+" WHERE telegram_id = $1", telegramID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, unavailable(err)
	}
	return user, nil
}

func (store *postgresStore) EnsureUser(ctx context.Context, telegramID int64) (model.User, error) {
	user, err := store.GetUser(ctx, telegramID)
	if !errors.Is(err, ErrNotFound) {
		return user, err
	}

	user = model.NewUser(telegramID)
	insCtx, cancel := context.WithTimeout(ctx, store.timeout)
	defer cancel()
	_, err = store.database.ExecContext(insCtx,
		"INSERT INTO users (telegram_id, last_active, created_at)"+
			" VALUES ($1, $2, $3)",
		user.TelegramID,
		user.LastActive,
		user.CreatedAt)
	if err != nil {
		// Проверка: пользователя уже создал параллельный запрос
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return store.GetUser(ctx, telegramID)
		}
		return model.User{}, unavailable(err)
	}
	return user, nil
}

func (store *postgresStore) UpdateUser(ctx context.Context, telegramID int64, fn func(*model.User) error) (model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, store.timeout)
	defer cancel()

	tx, err := store.database.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, unavailable(err)
	}
	// после Commit откат ничего не делает
	defer tx.Rollback()

	// Блокировка строки пользователя до конца транзакции
	row := tx.QueryRowContext(ctx, selectUser+" WHERE telegram_id = $1 FOR UPDATE", telegramID)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, unavailable(err)
	}

	if err := fn(&user); err != nil {
		return model.User{}, err
	}

	courses, err := json.Marshal(nonNil(user.Courses))
	if err != nil {
		return model.User{}, err
	}
	notifications, err := json.Marshal(nonNil(user.Notifications))
	if err != nil {
		return model.User{}, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE users"+
			" SET full_name = $1, phone = $2, email = $3, last_active = $4,"+
			"     courses = $5, notifications = $6"+
			" WHERE telegram_id = $7",
		user.FullName,
		user.Phone,
		user.Email,
		user.LastActive,
		string(courses),
		string(notifications),
		user.TelegramID)
	if err != nil {
		return model.User{}, unavailable(err)
	}

	if err := tx.Commit(); err != nil {
		return model.User{}, unavailable(err)
	}
	return user, nil
}

func (store *postgresStore) ListUsers(ctx context.Context) ([]model.User, error) {
	return store.queryUsers(ctx, selectUser+" ORDER BY telegram_id")
}

func (store *postgresStore) ListPending(ctx context.Context) ([]model.PendingEnrollment, error) {
	users, err := store.queryUsers(ctx,
		selectUser+
			" WHERE courses @> '[{\"approval_status\": \"pending\"}]'::jsonb"+
			" ORDER BY telegram_id")
	if err != nil {
		return nil, err
	}
	return pendingOf(users), nil
}

func (store *postgresStore) Stats(ctx context.Context) (model.Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, store.timeout)
	defer cancel()

	var stats model.Stats
	row := store.database.QueryRowContext(ctx,
		"SELECT (SELECT count(*) FROM users),"+
			" count(*) FILTER (WHERE e->>'approval_status' = 'pending'),"+
			" count(*) FILTER (WHERE e->>'approval_status' = 'approved'),"+
			" count(*) FILTER (WHERE e->>'approval_status' = 'rejected')"+
			" FROM users, jsonb_array_elements(courses) AS e")
	err := row.Scan(&stats.Users, &stats.Pending, &stats.Approved, &stats.Rejected)
	if err != nil {
		return model.Stats{}, unavailable(err)
	}
	return stats, nil
}

func (store *postgresStore) queryUsers(ctx context.Context, query string) ([]model.User, error) {
	ctx, cancel := context.WithTimeout(ctx, store.timeout)
	defer cancel()

	rows, err := store.database.QueryContext(ctx, query)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, unavailable(err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return users, nil
}

func (store *postgresStore) Close() error {
	return store.database.Close()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
