// Package ainox реализует адаптер российского биллинга. API принимает
// POST-запросы с телом {request, type, limit, offset, filter, fields}
// и авторизацией через пару статических заголовков.
//
// Ошибки провайдера мягкие: лог и пустой результат, без паник и ошибок
// наружу — одна недоступность биллинга не должна срывать сверку.
package ainox

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"subsync-bot/internal/config"
	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/models"
)

// statusActive — числовой код активной подписки в Ainox. Только точное
// совпадение с этим кодом считается активностью, прочие ненулевые
// статусы (заморожена, ожидает оплаты) — нет.
const statusActive = 1

// paymentDateLayout — формат next_payment_date в ответах биллинга.
const paymentDateLayout = "2006-01-02 15:04:05"

// Subscriber — сырая запись подписчика из ответа биллинга.
type Subscriber struct {
	ID              json.Number `json:"id"`
	Email           string      `json:"email"`
	Status          int         `json:"status"`
	NextPaymentDate string      `json:"next_payment_date"`
}

type listResponse struct {
	Data []Subscriber `json:"data"`
}

type listRequest struct {
	Request string            `json:"request"`
	Type    string            `json:"type"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	Filter  map[string]string `json:"filter,omitempty"`
	Fields  []string          `json:"fields"`
}

// Client — HTTP-клиент API Ainox.
type Client struct {
	url            string
	login          string
	key            string
	unsubscribeURL string
	httpClient     *http.Client
	log            *slog.Logger
}

// NewClient создаёт клиента с таймаутом 10 секунд.
func NewClient(cfg config.Ainox, log *slog.Logger) *Client {
	return &Client{
		url:            cfg.URL,
		login:          cfg.Login,
		key:            cfg.Key,
		unsubscribeURL: cfg.UnsubscribeURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		log:            log,
	}
}

func (c *Client) post(ctx context.Context, body listRequest, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("api-login", c.login)
	req.Header.Set("api-key", c.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, raw)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListSubscribers возвращает полный набор подписчиков без серверной
// фильтрации. При ошибке возвращает пустой список.
func (c *Client) ListSubscribers(ctx context.Context) []Subscriber {
	const op = "ainox.ListSubscribers"

	var resp listResponse
	err := c.post(ctx, listRequest{
		Request: "subscriber",
		Type:    "output",
		Fields:  []string{"id", "email", "status", "next_payment_date"},
	}, &resp)
	if err != nil {
		c.log.Error("failed to list subscribers", slog.String("op", op), sl.Err(err))
		return nil
	}
	return resp.Data
}

// FindByEmail возвращает подписчиков по серверному фильтру email.
// Фильтр провайдера может отдавать частичные совпадения, поэтому
// вызывающая сторона обязана перепроверить точное равенство адреса.
func (c *Client) FindByEmail(ctx context.Context, email string) []Subscriber {
	const op = "ainox.FindByEmail"

	var resp listResponse
	err := c.post(ctx, listRequest{
		Request: "subscriber",
		Type:    "output",
		Filter:  map[string]string{"email": email},
		Fields:  []string{"id", "email", "status", "next_payment_date"},
	}, &resp)
	if err != nil {
		c.log.Error("failed to find subscriber", slog.String("op", op), sl.Email(email), sl.Err(err))
		return nil
	}
	return resp.Data
}

// ResolveRecord переводит сырую запись подписчика в нормализованную.
// Активность — только точное равенство кода статуса; непарсящаяся дата
// следующего платежа остаётся nil и ошибкой не считается.
func (c *Client) ResolveRecord(sub Subscriber) *models.SubscriptionRecord {
	email := strings.ToLower(strings.TrimSpace(sub.Email))
	if email == "" {
		return nil
	}

	var endDate *time.Time
	if sub.NextPaymentDate != "" {
		if ts, err := time.Parse(paymentDateLayout, sub.NextPaymentDate); err == nil {
			endDate = &ts
		} else {
			c.log.Warn("unparsable next_payment_date",
				slog.String("subscriber_id", sub.ID.String()), slog.String("value", sub.NextPaymentDate))
		}
	}

	return &models.SubscriptionRecord{
		Email:             email,
		IsActive:          sub.Status == statusActive,
		EndDate:           endDate,
		PaymentMethod:     models.PaymentRussian,
		ProviderReference: sub.ID.String(),
	}
}

// Records возвращает нормализованные записи по всем подписчикам.
func (c *Client) Records(ctx context.Context) []models.SubscriptionRecord {
	var records []models.SubscriptionRecord
	for _, sub := range c.ListSubscribers(ctx) {
		if rec := c.ResolveRecord(sub); rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// RecordsByEmail возвращает нормализованные записи по серверному фильтру
// email. Перепроверка точного совпадения адреса остаётся за вызывающим.
func (c *Client) RecordsByEmail(ctx context.Context, email string) []models.SubscriptionRecord {
	var records []models.SubscriptionRecord
	for _, sub := range c.FindByEmail(ctx, email) {
		if rec := c.ResolveRecord(sub); rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// UnsubscribeLink формирует персональную ссылку отписки по схеме самого
// провайдера: hex(md5(email + ":" + subscriber_id)). Если подписчик не
// найден или биллинг недоступен, возвращает общую страницу отписки.
func (c *Client) UnsubscribeLink(ctx context.Context, email string) string {
	const op = "ainox.UnsubscribeLink"

	normalized := strings.ToLower(strings.TrimSpace(email))
	for _, sub := range c.FindByEmail(ctx, normalized) {
		id := sub.ID.String()
		if id == "" {
			continue
		}
		sum := md5.Sum([]byte(normalized + ":" + id))
		return fmt.Sprintf("%s::%s::%s", c.unsubscribeURL, id, hex.EncodeToString(sum[:]))
	}

	c.log.Warn("could not build personal unsubscribe link", slog.String("op", op), sl.Email(email))
	return c.unsubscribeURL
}
