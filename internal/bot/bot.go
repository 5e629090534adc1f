// Package bot содержит Telegram-поверхность: команды, текстовый ввод
// диалога привязки email и callback-кнопки. Вся логика живет в сервисах,
// бот только маршрутизирует обновления и рендерит ответы.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	tu "github.com/mymmrac/telego/telegoutil"

	"subsync-bot/internal/config"
	"subsync-bot/internal/lib/dateutil"
	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/models"
	"subsync-bot/internal/services/linking"
)

// Префикс callback-данных кнопок диалога привязки.
const linkCallbackPrefix = "link:"

// Directory — часть каталога пользователей, нужная боту.
type Directory interface {
	UpsertUser(ctx context.Context, chatID int64, username, firstName string) (*models.User, error)
	FindByChatID(ctx context.Context, chatID int64) (*models.User, error)
}

// Linker управляет диалогом привязки email.
type Linker interface {
	Start(ctx context.Context, chatID int64) (linking.Result, error)
	HandleText(ctx context.Context, chatID int64, text string) (linking.Result, error)
	HandleChoice(ctx context.Context, chatID int64, choice string) (linking.Result, error)
}

// Reconciler запускает полную сверку по запросу администратора.
type Reconciler interface {
	ReconcileAll(ctx context.Context)
}

// Unsubscriber строит персональную ссылку отмены российской подписки.
type Unsubscriber interface {
	UnsubscribeLink(ctx context.Context, email string) string
}

// Bot — Telegram-поверхность приложения.
type Bot struct {
	instance     *telego.Bot
	directory    Directory
	linker       Linker
	reconciler   Reconciler
	unsubscriber Unsubscriber
	links        config.Links
	admins       map[int64]struct{}
	log          *slog.Logger
}

// New создает бота и проверяет токен.
func New(token string, directory Directory, linker Linker, reconciler Reconciler,
	unsubscriber Unsubscriber, links config.Links, adminIDs []int64, log *slog.Logger) (*Bot, error) {
	const op = "bot.New"

	instance, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}

	return &Bot{
		instance:     instance,
		directory:    directory,
		linker:       linker,
		reconciler:   reconciler,
		unsubscriber: unsubscriber,
		links:        links,
		admins:       admins,
		log:          log,
	}, nil
}

// SendMessage отправляет текст в чат. Метод используется и обработчиками,
// и воркером напоминаний как транспорт.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	const op = "bot.SendMessage"
	_, err := b.instance.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Run запускает long polling и блокируется до отмены контекста.
func (b *Bot) Run(ctx context.Context) error {
	const op = "bot.Run"

	updates, err := b.instance.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	handler, err := th.NewBotHandler(b.instance, updates)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	b.registerHandlers(handler)

	b.log.Info("bot started long polling")
	// канал updates привязан к контексту: при отмене он закрывается,
	// и Start завершается сам
	handler.Start()
	return nil
}

func (b *Bot) registerHandlers(handler *th.BotHandler) {
	handler.Handle(b.handleStart, th.CommandEqual("start"))
	handler.Handle(b.handleHelp, th.CommandEqual("help"))
	handler.Handle(b.handleStatus, th.CommandEqual("status"))
	handler.Handle(b.handleSubscribe, th.CommandEqual("subscribe"))
	handler.Handle(b.handleCancel, th.CommandEqual("cancel"))
	handler.Handle(b.handleLinkEmail, th.CommandEqual("link_email"))
	handler.Handle(b.handleSync, th.CommandEqual("sync_subscriptions"))
	handler.Handle(b.handleLinkChoice, th.CallbackDataPrefix(linkCallbackPrefix))
	handler.Handle(b.handlePayment, th.CallbackDataPrefix("pay:"))
	handler.Handle(b.handleText, th.AnyMessageWithText())
}

func (b *Bot) handleStart(ctx *th.Context, update telego.Update) error {
	message := update.Message
	chatID := message.Chat.ID

	_, err := b.directory.UpsertUser(ctx.Context(), chatID, message.From.Username, message.From.FirstName)
	if err != nil {
		b.log.Error("failed to upsert user", slog.Int64("chat_id", chatID), sl.Err(err))
		return b.SendMessage(ctx.Context(), chatID, msgTryAgainLater)
	}

	if err := b.SendMessage(ctx.Context(), chatID, msgStart); err != nil {
		return err
	}
	return b.SendMessage(ctx.Context(), chatID, msgHelp)
}

func (b *Bot) handleHelp(ctx *th.Context, update telego.Update) error {
	return b.SendMessage(ctx.Context(), update.Message.Chat.ID, msgHelp)
}

func (b *Bot) handleStatus(ctx *th.Context, update telego.Update) error {
	chatID := update.Message.Chat.ID

	user, err := b.directory.FindByChatID(ctx.Context(), chatID)
	if err != nil {
		b.log.Error("failed to find user", slog.Int64("chat_id", chatID), sl.Err(err))
		return b.SendMessage(ctx.Context(), chatID, msgTryAgainLater)
	}

	switch user.SubscriptionStatus {
	case models.StatusActive:
		return b.SendMessage(ctx.Context(), chatID,
			fmt.Sprintf(msgSubscriptionActive, dateutil.FormatDate(user.SubscriptionEndDate)))
	case models.StatusExpired:
		return b.SendMessage(ctx.Context(), chatID,
			fmt.Sprintf(msgSubscriptionExpired, dateutil.FormatDate(user.SubscriptionEndDate)))
	default:
		return b.SendMessage(ctx.Context(), chatID, msgNoSubscription)
	}
}

func (b *Bot) handleSubscribe(ctx *th.Context, update telego.Update) error {
	chatID := update.Message.Chat.ID

	keyboard := tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(msgSubscribeInternational).WithCallbackData("pay:international"),
		),
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(msgSubscribeRussian).WithCallbackData("pay:russian"),
		),
	)

	_, err := b.instance.SendMessage(ctx.Context(), tu.Message(
		tu.ID(chatID), msgSubscribePrompt,
	).WithReplyMarkup(keyboard))
	if err != nil {
		return fmt.Errorf("bot.handleSubscribe: %w", err)
	}
	return nil
}

func (b *Bot) handlePayment(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	chatID := callback.From.ID

	var text string
	switch strings.TrimPrefix(callback.Data, "pay:") {
	case "russian":
		text = fmt.Sprintf(msgPaymentRussian, b.links.PaymentRussian)
	default:
		text = fmt.Sprintf(msgPaymentInternational, b.links.PaymentInternational)
	}

	if err := b.SendMessage(ctx.Context(), chatID, text); err != nil {
		return err
	}
	return ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
}

func (b *Bot) handleCancel(ctx *th.Context, update telego.Update) error {
	chatID := update.Message.Chat.ID

	user, err := b.directory.FindByChatID(ctx.Context(), chatID)
	if err != nil {
		b.log.Error("failed to find user", slog.Int64("chat_id", chatID), sl.Err(err))
		return b.SendMessage(ctx.Context(), chatID, msgTryAgainLater)
	}

	if user.IsRussianPayment && user.Email != nil && *user.Email != "" {
		link := b.unsubscriber.UnsubscribeLink(ctx.Context(), *user.Email)
		return b.SendMessage(ctx.Context(), chatID, fmt.Sprintf(msgCancelRussian, link))
	}
	return b.SendMessage(ctx.Context(), chatID,
		fmt.Sprintf(msgCancelInternational, b.links.CancelInternational))
}

func (b *Bot) handleLinkEmail(ctx *th.Context, update telego.Update) error {
	message := update.Message
	chatID := message.Chat.ID

	if _, err := b.directory.UpsertUser(ctx.Context(), chatID, message.From.Username, message.From.FirstName); err != nil {
		b.log.Error("failed to upsert user", slog.Int64("chat_id", chatID), sl.Err(err))
		return b.SendMessage(ctx.Context(), chatID, msgTryAgainLater)
	}

	res, err := b.linker.Start(ctx.Context(), chatID)
	if err != nil {
		b.log.Error("failed to start linking", slog.Int64("chat_id", chatID), sl.Err(err))
		return b.SendMessage(ctx.Context(), chatID, msgTryAgainLater)
	}
	return b.renderLinkResult(ctx, chatID, res)
}

func (b *Bot) handleSync(ctx *th.Context, update telego.Update) error {
	chatID := update.Message.Chat.ID

	if _, ok := b.admins[chatID]; !ok {
		return b.SendMessage(ctx.Context(), chatID, msgSyncDenied)
	}

	// сверка может занять минуты, не держим обработчик обновлений
	go b.reconciler.ReconcileAll(context.WithoutCancel(ctx.Context()))
	b.log.Info("manual reconciliation triggered", slog.Int64("chat_id", chatID))
	return b.SendMessage(ctx.Context(), chatID, msgSyncStarted)
}

func (b *Bot) handleText(ctx *th.Context, update telego.Update) error {
	chatID := update.Message.Chat.ID
	text := update.Message.Text

	res, err := b.linker.HandleText(ctx.Context(), chatID, text)
	if err != nil {
		b.log.Error("failed to handle linking text", slog.Int64("chat_id", chatID), sl.Err(err))
		return b.SendMessage(ctx.Context(), chatID, msgTryAgainLater)
	}
	if res.Outcome == linking.OutcomeNoFlow {
		return b.SendMessage(ctx.Context(), chatID, msgUnknownInput)
	}
	return b.renderLinkResult(ctx, chatID, res)
}

func (b *Bot) handleLinkChoice(ctx *th.Context, update telego.Update) error {
	callback := update.CallbackQuery
	chatID := callback.From.ID
	choice := strings.TrimPrefix(callback.Data, linkCallbackPrefix)

	res, err := b.linker.HandleChoice(ctx.Context(), chatID, choice)
	if err != nil {
		b.log.Error("failed to handle linking choice", slog.Int64("chat_id", chatID), sl.Err(err))
		if sendErr := b.SendMessage(ctx.Context(), chatID, msgTryAgainLater); sendErr != nil {
			return sendErr
		}
		return ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
	}

	if err := b.renderLinkResult(ctx, chatID, res); err != nil {
		return err
	}
	return ctx.Bot().AnswerCallbackQuery(ctx.Context(), tu.CallbackQuery(callback.ID))
}

// renderLinkResult превращает исход шага привязки в сообщение с нужной
// клавиатурой.
func (b *Bot) renderLinkResult(ctx *th.Context, chatID int64, res linking.Result) error {
	switch res.Outcome {
	case linking.OutcomePromptEmail:
		return b.SendMessage(ctx.Context(), chatID, msgLinkStart)
	case linking.OutcomeInvalidEmail:
		return b.SendMessage(ctx.Context(), chatID, msgEmailInvalid)
	case linking.OutcomeConfirmNew:
		keyboard := tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton(msgBtnYes).WithCallbackData(linkCallbackPrefix+linking.ChoiceConfirm),
				tu.InlineKeyboardButton(msgBtnNo).WithCallbackData(linkCallbackPrefix+linking.ChoiceReject),
			),
		)
		_, err := b.instance.SendMessage(ctx.Context(), tu.Message(
			tu.ID(chatID), fmt.Sprintf(msgEmailConfirm, res.Email),
		).WithReplyMarkup(keyboard))
		return err
	case linking.OutcomeConfirmExisting:
		keyboard := tu.InlineKeyboard(
			tu.InlineKeyboardRow(
				tu.InlineKeyboardButton(msgBtnKeepEmail).WithCallbackData(linkCallbackPrefix+linking.ChoiceKeepEmail),
				tu.InlineKeyboardButton(msgBtnChangeEmail).WithCallbackData(linkCallbackPrefix+linking.ChoiceChangeEmail),
			),
		)
		_, err := b.instance.SendMessage(ctx.Context(), tu.Message(
			tu.ID(chatID), fmt.Sprintf(msgAlreadyLinked, res.Email),
		).WithReplyMarkup(keyboard))
		return err
	case linking.OutcomeLinkedActive:
		if err := b.SendMessage(ctx.Context(), chatID, msgEmailLinked); err != nil {
			return err
		}
		return b.SendMessage(ctx.Context(), chatID,
			fmt.Sprintf(msgSubscriptionActive, dateutil.FormatDate(res.Record.EndDate)))
	case linking.OutcomeLinkedInactive:
		if err := b.SendMessage(ctx.Context(), chatID, msgEmailLinked); err != nil {
			return err
		}
		return b.SendMessage(ctx.Context(), chatID, msgNoSubscription)
	case linking.OutcomeRetryEmail:
		return b.SendMessage(ctx.Context(), chatID, msgEmailRetry)
	case linking.OutcomeKeptExisting:
		return b.SendMessage(ctx.Context(), chatID, msgEmailKept)
	default:
		return b.SendMessage(ctx.Context(), chatID, msgLinkNoFlow)
	}
}
