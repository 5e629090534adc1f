package wix

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subsync-bot/internal/config"
	"subsync-bot/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.Wix{APIKey: "key", SiteID: "site"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.baseURL = srv.URL
	return c
}

func TestListActiveOrders_FiltersClientSide(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("Authorization"))
		assert.Equal(t, "site", r.Header.Get("wix-site-id"))

		_ = json.NewEncoder(w).Encode(ordersResponse{Orders: []Order{
			{ID: "1", Status: "ACTIVE"},
			{ID: "2", Status: "Active"},
			{ID: "3", Status: "canceled"},
			{ID: "4", Status: "PENDING"},
		}})
	})

	orders := c.ListActiveOrders(context.Background())

	require.Len(t, orders, 2)
	assert.Equal(t, "1", orders[0].ID)
	assert.Equal(t, "2", orders[1].ID)
}

func TestListActiveOrders_Pagination(t *testing.T) {
	var offsets []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)

		var orders []Order
		if offset == "0" {
			for i := range pageSize {
				orders = append(orders, Order{ID: fmt.Sprintf("o%d", i), Status: "ACTIVE"})
			}
		} else {
			orders = []Order{{ID: "last", Status: "ACTIVE"}}
		}
		_ = json.NewEncoder(w).Encode(ordersResponse{Orders: orders})
	})

	orders := c.ListActiveOrders(context.Background())

	assert.Len(t, orders, pageSize+1)
	assert.Equal(t, []string{"0", "100"}, offsets)
}

func TestListActiveOrders_PageLimitStopsRunawayProvider(t *testing.T) {
	var requests int
	// сервер игнорирует offset и всегда отдает полную страницу
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		requests++
		var orders []Order
		for i := range pageSize {
			orders = append(orders, Order{ID: fmt.Sprintf("o%d", i), Status: "ACTIVE"})
		}
		_ = json.NewEncoder(w).Encode(ordersResponse{Orders: orders})
	})

	orders := c.ListActiveOrders(context.Background())

	assert.Equal(t, maxPages, requests)
	assert.Len(t, orders, maxPages*pageSize)
}

func TestListActiveOrders_ServerError_ReturnsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Empty(t, c.ListActiveOrders(context.Background()))
}

func TestResolveRecord_EndOfCreationMonth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/contacts/v4/contacts/contact-7", r.URL.Path)
		_, _ = w.Write([]byte(`{"contact":{"primaryEmail":{"email":"  Buyer@Example.COM "}}}`))
	})

	order := Order{ID: "order-1", Status: "ACTIVE", StartDate: "2024-03-05T10:00:00Z"}
	order.Buyer.ContactID = "contact-7"

	rec := c.ResolveRecord(context.Background(), order)

	require.NotNil(t, rec)
	assert.Equal(t, "buyer@example.com", rec.Email)
	assert.True(t, rec.IsActive)
	assert.Equal(t, models.PaymentInternational, rec.PaymentMethod)
	assert.Equal(t, "order-1", rec.ProviderReference)
	require.NotNil(t, rec.EndDate)
	assert.Equal(t, time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC), rec.EndDate.UTC())
}

func TestResolveRecord_FallsBackToCreatedDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"contact":{"primaryEmail":{"email":"a@x.com"}}}`))
	})

	order := Order{ID: "order-2", Status: "active", CreatedDate: "2024-02-10T00:00:00Z"}
	order.Buyer.ContactID = "c"

	rec := c.ResolveRecord(context.Background(), order)

	require.NotNil(t, rec)
	require.NotNil(t, rec.EndDate)
	assert.Equal(t, time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC), rec.EndDate.UTC())
}

func TestResolveRecord_ContactLookupFails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	order := Order{ID: "order-3", Status: "active"}
	order.Buyer.ContactID = "missing"

	assert.Nil(t, c.ResolveRecord(context.Background(), order))
}

func TestResolveRecord_NoContactID(t *testing.T) {
	c := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatal("no request expected")
	})

	assert.Nil(t, c.ResolveRecord(context.Background(), Order{ID: "order-4", Status: "active"}))
}

func TestResolveRecord_EmptyEmail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"contact":{}}`))
	})

	order := Order{ID: "order-5", Status: "active"}
	order.Buyer.ContactID = "c"

	assert.Nil(t, c.ResolveRecord(context.Background(), order))
}
