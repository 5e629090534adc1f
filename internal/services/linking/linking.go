// Package linking реализует диалог привязки email к аккаунту Telegram.
// Состояние диалога живет в Redis с TTL, равным таймауту всего диалога:
// просроченная сессия просто исчезает, и бот предлагает начать заново.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/models"
	"subsync-bot/internal/storage"
)

// FlowTTL ограничивает время жизни диалога привязки.
const FlowTTL = 5 * time.Minute

// Состояния диалога.
const (
	stateAwaitingEmail        = "awaiting_email"
	stateAwaitingConfirmation = "awaiting_confirmation"
)

// Варианты ответа на шаге подтверждения.
const (
	ChoiceConfirm     = "confirm"
	ChoiceReject      = "reject"
	ChoiceKeepEmail   = "keep_email"
	ChoiceChangeEmail = "change_email"
)

// Outcome описывает, чем закончился шаг диалога. Бот превращает
// Outcome в текст ответа, сервис текстов не знает.
type Outcome int

const (
	// OutcomeNoFlow: активного диалога нет (не начат или истек TTL).
	OutcomeNoFlow Outcome = iota
	// OutcomePromptEmail: бот должен запросить email.
	OutcomePromptEmail
	// OutcomeConfirmExisting: у пользователя уже есть email, спросить
	// оставить его или заменить.
	OutcomeConfirmExisting
	// OutcomeConfirmNew: введенный адрес принят, спросить подтверждение.
	OutcomeConfirmNew
	// OutcomeInvalidEmail: текст не похож на email, диалог продолжается.
	OutcomeInvalidEmail
	// OutcomeRetryEmail: адрес отвергнут, бот снова запрашивает email.
	OutcomeRetryEmail
	// OutcomeKeptExisting: пользователь оставил прежний email, в каталог
	// ничего не записывалось.
	OutcomeKeptExisting
	// OutcomeLinkedActive: email привязан, активная подписка найдена.
	OutcomeLinkedActive
	// OutcomeLinkedInactive: email привязан, активной подписки нет.
	OutcomeLinkedInactive
)

// Result — исход одного шага диалога.
type Result struct {
	Outcome Outcome
	// Email, о котором идет речь в ответе (для Confirm* и Linked*).
	Email string
	// Record заполнен для OutcomeLinkedActive.
	Record *models.SubscriptionRecord
}

type session struct {
	State string `json:"state"`
	Email string `json:"email,omitempty"`
}

// Sessions хранит состояние диалога по chat ID.
type Sessions interface {
	Get(ctx context.Context, chatID int64, result any) (bool, error)
	Set(ctx context.Context, chatID int64, value any, ttl time.Duration) error
	Delete(ctx context.Context, chatID int64) error
}

// Directory — часть каталога пользователей, нужная привязке.
type Directory interface {
	FindByChatID(ctx context.Context, chatID int64) (*models.User, error)
	UpdateEmail(ctx context.Context, chatID int64, email string) error
	UpdateSubscription(ctx context.Context, chatID int64,
		status models.SubscriptionStatus, endDate *time.Time, isRussian bool) error
}

// Verifier выполняет разовую проверку подписки по email.
type Verifier interface {
	Verify(ctx context.Context, email string) (bool, *models.SubscriptionRecord)
}

// Service управляет диалогом привязки.
type Service struct {
	sessions  Sessions
	directory Directory
	verifier  Verifier
	log       *slog.Logger
}

// New создает новый сервис привязки email.
func New(sessions Sessions, directory Directory, verifier Verifier, log *slog.Logger) *Service {
	return &Service{
		sessions:  sessions,
		directory: directory,
		verifier:  verifier,
		log:       log,
	}
}

// Start начинает диалог привязки. Если у пользователя уже есть email,
// диалог начинается с вопроса оставить его или заменить.
func (s *Service) Start(ctx context.Context, chatID int64) (Result, error) {
	const op = "services.linking.Start"

	user, err := s.directory.FindByChatID(ctx, chatID)
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	// Неизвестный чат не считается сбоем: диалог начинается с запроса email.
	if err == nil && user.Email != nil && *user.Email != "" {
		sess := session{State: stateAwaitingConfirmation, Email: *user.Email}
		if err := s.sessions.Set(ctx, chatID, sess, FlowTTL); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return Result{Outcome: OutcomeConfirmExisting, Email: *user.Email}, nil
	}

	if err := s.sessions.Set(ctx, chatID, session{State: stateAwaitingEmail}, FlowTTL); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return Result{Outcome: OutcomePromptEmail}, nil
}

// HandleText обрабатывает текстовое сообщение внутри диалога. Вне
// диалога возвращает OutcomeNoFlow, и бот отвечает обычной подсказкой.
func (s *Service) HandleText(ctx context.Context, chatID int64, text string) (Result, error) {
	const op = "services.linking.HandleText"

	var sess session
	found, err := s.sessions.Get(ctx, chatID, &sess)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found || sess.State != stateAwaitingEmail {
		return Result{Outcome: OutcomeNoFlow}, nil
	}

	email := strings.ToLower(strings.TrimSpace(text))
	if !looksLikeEmail(email) {
		s.log.Info("text does not look like an email", slog.Int64("chat_id", chatID))
		return Result{Outcome: OutcomeInvalidEmail}, nil
	}

	sess = session{State: stateAwaitingConfirmation, Email: email}
	if err := s.sessions.Set(ctx, chatID, sess, FlowTTL); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	return Result{Outcome: OutcomeConfirmNew, Email: email}, nil
}

// HandleChoice обрабатывает нажатие кнопки на шаге подтверждения.
func (s *Service) HandleChoice(ctx context.Context, chatID int64, choice string) (Result, error) {
	const op = "services.linking.HandleChoice"

	var sess session
	found, err := s.sessions.Get(ctx, chatID, &sess)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !found || sess.State != stateAwaitingConfirmation {
		return Result{Outcome: OutcomeNoFlow}, nil
	}

	switch choice {
	case ChoiceConfirm:
		res, err := s.link(ctx, chatID, sess.Email)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		if err := s.sessions.Delete(ctx, chatID); err != nil {
			s.log.Error("failed to delete linking session", slog.Int64("chat_id", chatID), sl.Err(err))
		}
		return res, nil
	case ChoiceKeepEmail:
		// Прежний email остается как есть, каталог не трогаем.
		if err := s.sessions.Delete(ctx, chatID); err != nil {
			s.log.Error("failed to delete linking session", slog.Int64("chat_id", chatID), sl.Err(err))
		}
		return Result{Outcome: OutcomeKeptExisting, Email: sess.Email}, nil
	case ChoiceChangeEmail:
		if err := s.sessions.Set(ctx, chatID, session{State: stateAwaitingEmail}, FlowTTL); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return Result{Outcome: OutcomePromptEmail}, nil
	case ChoiceReject:
		// Отказ возвращает к вводу адреса, неподтвержденный email забыт.
		if err := s.sessions.Set(ctx, chatID, session{State: stateAwaitingEmail}, FlowTTL); err != nil {
			return Result{}, fmt.Errorf("%s: %w", op, err)
		}
		return Result{Outcome: OutcomeRetryEmail}, nil
	default:
		s.log.Warn("unknown linking choice", slog.Int64("chat_id", chatID), slog.String("choice", choice))
		return Result{Outcome: OutcomeNoFlow}, nil
	}
}

// link сохраняет email и запускает проверку подписки. Статус сбрасывается
// до проверки: даже при недоступных провайдерах пользователь не остается
// с подпиской от прежнего адреса.
func (s *Service) link(ctx context.Context, chatID int64, email string) (Result, error) {
	const op = "services.linking.link"

	if err := s.directory.UpdateEmail(ctx, chatID, email); err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	found, rec := s.verifier.Verify(ctx, email)
	if !found {
		s.log.Info("email linked, no active subscription", slog.Int64("chat_id", chatID), sl.Email(email))
		return Result{Outcome: OutcomeLinkedInactive, Email: email}, nil
	}

	err := s.directory.UpdateSubscription(ctx, chatID, models.StatusActive,
		rec.EndDate, rec.PaymentMethod == models.PaymentRussian)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("email linked, subscription activated", slog.Int64("chat_id", chatID), sl.Email(email))
	return Result{Outcome: OutcomeLinkedActive, Email: email, Record: rec}, nil
}

// looksLikeEmail намеренно нестрогая проверка: @ не с краю и точка в
// доменной части. Настоящая валидация происходит на стороне провайдеров.
func looksLikeEmail(s string) bool {
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return false
	}
	domain := s[at+1:]
	dot := strings.Index(domain, ".")
	return dot > 0 && dot < len(domain)-1
}
