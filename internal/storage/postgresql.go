// Package storage реализует каталог пользователей на основе PostgreSQL:
// поиск по идентификатору чата и email, обновление полей подписки и
// привязку email. Поля подписки изменяют только движок сверки и linking flow.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"subsync-bot/internal/models"
)

// ErrUserNotFound возвращается, когда пользователь отсутствует в каталоге.
var ErrUserNotFound = errors.New("user not found")

// Storage инкапсулирует соединение с базой данных PostgreSQL.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{DB: db}, nil
}

const userColumns = `chat_id, username, first_name, email, subscription_status,
	subscription_end_date, is_russian_payment, last_reminder_sent, joined_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	var email sql.NullString
	var endDate, lastReminder sql.NullTime

	if err := row.Scan(&u.ChatID, &u.Username, &u.FirstName, &email,
		&u.SubscriptionStatus, &endDate, &u.IsRussianPayment,
		&lastReminder, &u.JoinedAt); err != nil {
		return nil, err
	}

	if email.Valid {
		u.Email = &email.String
	}
	if endDate.Valid {
		u.SubscriptionEndDate = &endDate.Time
	}
	if lastReminder.Valid {
		u.LastReminderSent = &lastReminder.Time
	}
	return &u, nil
}

// UpsertUser регистрирует пользователя при первом обращении к боту.
// Повторный вызов обновляет username и имя, не трогая поля подписки.
func (s *Storage) UpsertUser(ctx context.Context, chatID int64, username, firstName string) (*models.User, error) {
	const op = "storage.UpsertUser"

	query := `INSERT INTO users (chat_id, username, first_name, subscription_status, joined_at)
			  VALUES ($1, $2, $3, 'none', NOW())
			  ON CONFLICT (chat_id) DO UPDATE
			      SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
			  RETURNING ` + userColumns
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, chatID, username, firstName))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByChatID возвращает пользователя по идентификатору чата,
// ErrUserNotFound если записи нет.
func (s *Storage) FindByChatID(ctx context.Context, chatID int64) (*models.User, error) {
	const op = "storage.FindByChatID"

	query := `SELECT ` + userColumns + ` FROM users WHERE chat_id = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// FindByEmail возвращает пользователя по привязанному email (точное совпадение,
// email в каталоге хранится нормализованным), ErrUserNotFound если записи нет.
func (s *Storage) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.FindByEmail"

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdateSubscription записывает результат сверки для одного пользователя.
// Однострочный UPDATE: одновременные записи разных пользователей не
// конфликтуют, гонка по одному пользователю разрешается last-write-wins.
func (s *Storage) UpdateSubscription(ctx context.Context, chatID int64,
	status models.SubscriptionStatus, endDate *time.Time, isRussian bool) error {
	const op = "storage.UpdateSubscription"

	query := `UPDATE users
			  SET subscription_status = $1,
			      subscription_end_date = $2,
			      is_russian_payment = $3
			  WHERE chat_id = $4`
	res, err := s.DB.ExecContext(ctx, query, status, endDate, isRussian, chatID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// UpdateEmail привязывает email к пользователю и в том же операторе сбрасывает
// поля подписки в исходное состояние: смена адреса делает прежние данные
// подписки недостоверными.
func (s *Storage) UpdateEmail(ctx context.Context, chatID int64, email string) error {
	const op = "storage.UpdateEmail"

	query := `UPDATE users
			  SET email = $1,
			      subscription_status = 'none',
			      subscription_end_date = NULL
			  WHERE chat_id = $2`
	res, err := s.DB.ExecContext(ctx, query, email, chatID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	return nil
}

// FindExpiringWithin возвращает пользователей с активной подпиской,
// заканчивающейся в ближайшие days дней, и пользователей, чья подписка
// истекла не раньше чем days дней назад. Давно истекшие подписки из
// выборки выпадают, иначе напоминания шли бы им бесконечно. В обоих
// случаях исключаются те, кому напоминание уходило за последние сутки.
func (s *Storage) FindExpiringWithin(ctx context.Context, days int) ([]*models.User, error) {
	const op = "storage.FindExpiringWithin"

	query := `SELECT ` + userColumns + `
			  FROM users
			  WHERE (
			        (subscription_status = 'active'
			         AND subscription_end_date IS NOT NULL
			         AND subscription_end_date < NOW() + $1 * INTERVAL '1 day')
			     OR (subscription_status = 'expired'
			         AND subscription_end_date IS NOT NULL
			         AND subscription_end_date > NOW() - $1 * INTERVAL '1 day')
			  )
			  AND (last_reminder_sent IS NULL OR last_reminder_sent < NOW() - INTERVAL '24 hours')`
	rows, err := s.DB.QueryContext(ctx, query, days)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, u)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// MarkReminderSent фиксирует время отправки напоминания.
func (s *Storage) MarkReminderSent(ctx context.Context, chatID int64) error {
	const op = "storage.MarkReminderSent"

	query := `UPDATE users SET last_reminder_sent = NOW() WHERE chat_id = $1`
	if _, err := s.DB.ExecContext(ctx, query, chatID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
