// Package wix реализует адаптер международной коммерц-платформы.
// Адаптер переводит заказы pricing-plans в нормализованные записи
// SubscriptionRecord; сырые форматы API наружу не выходят.
//
// Все ошибки провайдера — мягкие: метод логирует и возвращает пустой
// результат, одна битая запись не срывает сверку остальных.
package wix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"subsync-bot/internal/config"
	"subsync-bot/internal/lib/dateutil"
	"subsync-bot/internal/lib/sl"
	"subsync-bot/internal/models"
)

const defaultBaseURL = "https://www.wixapis.com"

// pageSize — максимум заказов в одном ответе orders API.
const pageSize = 100

// maxPages ограничивает обход страниц: провайдер, игнорирующий offset,
// отдает одну и ту же страницу бесконечно.
const maxPages = 50

// Client — HTTP-клиент API Wix с авторизацией по ключу и идентификатору сайта.
type Client struct {
	baseURL    string
	apiKey     string
	siteID     string
	httpClient *http.Client
	// Лимит на обращения к contacts API: по записи на заказ при полной
	// сверке, провайдер режет частые запросы.
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient создаёт клиента с таймаутом 10 секунд.
func NewClient(cfg config.Wix, log *slog.Logger) *Client {
	return &Client{
		baseURL:    defaultBaseURL,
		apiKey:     cfg.APIKey,
		siteID:     cfg.SiteID,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
		log:        log,
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("wix-site-id", c.siteID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ListActiveOrders возвращает все заказы со статусом active. Фильтрация
// по статусу выполняется на нашей стороне без учёта регистра: серверный
// фильтр провайдера ненадёжен. При ошибке возвращает пустой список.
func (c *Client) ListActiveOrders(ctx context.Context) []Order {
	const op = "wix.ListActiveOrders"

	var active []Order
	for pageNum := 0; ; pageNum++ {
		if pageNum == maxPages {
			c.log.Warn("order listing truncated at page limit",
				slog.String("op", op), slog.Int("orders", len(active)))
			break
		}

		var page ordersResponse
		path := fmt.Sprintf("/pricing-plans/v2/orders?limit=%d&offset=%d", pageSize, pageNum*pageSize)
		if err := c.get(ctx, path, &page); err != nil {
			c.log.Error("failed to list orders", slog.String("op", op), sl.Err(err))
			return nil
		}

		for _, order := range page.Orders {
			if strings.EqualFold(order.Status, "active") {
				active = append(active, order)
			}
		}
		if len(page.Orders) < pageSize {
			break
		}
	}
	return active
}

// ResolveRecord находит email покупателя через contacts API и собирает
// нормализованную запись. Дата окончания — не дата продления провайдера,
// а последний момент месяца создания заказа: собственные метки продления
// Wix не совпадают с нашим биллинговым циклом. При любой ошибке возвращает
// nil, вызывающая сторона пропускает заказ.
func (c *Client) ResolveRecord(ctx context.Context, order Order) *models.SubscriptionRecord {
	const op = "wix.ResolveRecord"

	if order.Buyer.ContactID == "" {
		c.log.Warn("order without buyer contact", slog.String("op", op), slog.String("order_id", order.ID))
		return nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil
	}

	var contact contactResponse
	if err := c.get(ctx, "/contacts/v4/contacts/"+order.Buyer.ContactID, &contact); err != nil {
		c.log.Error("failed to get contact", slog.String("op", op),
			slog.String("order_id", order.ID), sl.Err(err))
		return nil
	}

	email := strings.ToLower(strings.TrimSpace(contact.Contact.PrimaryEmail.Email))
	if email == "" {
		c.log.Warn("contact without primary email", slog.String("op", op), slog.String("order_id", order.ID))
		return nil
	}

	endDate := dateutil.EndOfMonth(c.orderCreationDate(order))
	return &models.SubscriptionRecord{
		Email:             email,
		IsActive:          strings.EqualFold(order.Status, "active"),
		EndDate:           &endDate,
		PaymentMethod:     models.PaymentInternational,
		ProviderReference: order.ID,
	}
}

// ActiveRecords возвращает нормализованные записи по всем активным заказам.
// Заказы, для которых не удалось получить email, пропускаются.
func (c *Client) ActiveRecords(ctx context.Context) []models.SubscriptionRecord {
	var records []models.SubscriptionRecord
	for _, order := range c.ListActiveOrders(ctx) {
		if rec := c.ResolveRecord(ctx, order); rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// orderCreationDate берёт startDate, при его отсутствии createdDate.
// Если ни одна дата не парсится, опорой становится текущий момент:
// активная запись всегда получает вычисленную дату окончания.
func (c *Client) orderCreationDate(order Order) time.Time {
	for _, raw := range []string{order.StartDate, order.CreatedDate} {
		if raw == "" {
			continue
		}
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			return ts
		}
		c.log.Warn("unparsable order date", slog.String("order_id", order.ID), slog.String("value", raw))
	}
	return time.Now().UTC()
}
