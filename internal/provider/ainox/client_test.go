package ainox

import (
	"context"
	"crypto/md5"
	"encoding/hex"
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

	cfg := config.Ainox{
		URL:            srv.URL,
		Login:          "login",
		Key:            "secret",
		UnsubscribeURL: "https://example.ainox.pro/unsubscribe",
	}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestListSubscribers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "login", r.Header.Get("api-login"))
		assert.Equal(t, "secret", r.Header.Get("api-key"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "subscriber", req["request"])
		assert.Equal(t, "output", req["type"])
		assert.NotContains(t, req, "filter")

		_, _ = w.Write([]byte(`{"data":[
			{"id":11,"email":"a@x.com","status":1,"next_payment_date":"2024-06-15 00:00:00"},
			{"id":12,"email":"b@x.com","status":0}
		]}`))
	})

	subs := c.ListSubscribers(context.Background())

	require.Len(t, subs, 2)
	assert.Equal(t, "11", subs[0].ID.String())
	assert.Equal(t, 1, subs[0].Status)
}

func TestListSubscribers_ServerError_ReturnsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.Empty(t, c.ListSubscribers(context.Background()))
}

func TestFindByEmail_SendsFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filter map[string]string `json:"filter"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "a@x.com", req.Filter["email"])

		_, _ = w.Write([]byte(`{"data":[{"id":"77","email":"a@x.com","status":1}]}`))
	})

	subs := c.FindByEmail(context.Background(), "a@x.com")

	require.Len(t, subs, 1)
	assert.Equal(t, "77", subs[0].ID.String())
}

func TestResolveRecord(t *testing.T) {
	c := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {})

	tests := []struct {
		name       string
		sub        Subscriber
		wantNil    bool
		wantActive bool
		wantEnd    *time.Time
	}{
		{
			name: "active with payment date",
			sub: Subscriber{
				ID: "5", Email: "A@X.com ", Status: 1,
				NextPaymentDate: "2024-06-15 00:00:00",
			},
			wantActive: true,
			wantEnd:    timePtr(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)),
		},
		{
			name:       "non-active status code",
			sub:        Subscriber{ID: "6", Email: "a@x.com", Status: 2},
			wantActive: false,
		},
		{
			name:       "unparsable date stays nil",
			sub:        Subscriber{ID: "7", Email: "a@x.com", Status: 1, NextPaymentDate: "15.06.2024"},
			wantActive: true,
		},
		{
			name:    "empty email",
			sub:     Subscriber{ID: "8", Status: 1},
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.ResolveRecord(tt.sub)
			if tt.wantNil {
				assert.Nil(t, rec)
				return
			}
			require.NotNil(t, rec)
			assert.Equal(t, "a@x.com", rec.Email)
			assert.Equal(t, tt.wantActive, rec.IsActive)
			assert.Equal(t, models.PaymentRussian, rec.PaymentMethod)
			if tt.wantEnd == nil {
				assert.Nil(t, rec.EndDate)
			} else {
				require.NotNil(t, rec.EndDate)
				assert.True(t, rec.EndDate.Equal(*tt.wantEnd))
			}
		})
	}
}

func TestUnsubscribeLink(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"id":42,"email":"a@x.com","status":1}]}`))
	})

	link := c.UnsubscribeLink(context.Background(), " A@X.com ")

	sum := md5.Sum([]byte("a@x.com:42"))
	want := fmt.Sprintf("https://example.ainox.pro/unsubscribe::42::%s", hex.EncodeToString(sum[:]))
	assert.Equal(t, want, link)
}

func TestUnsubscribeLink_FallsBackToGenericPage(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "subscriber not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"data":[]}`))
			},
		},
		{
			name: "provider error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.handler)
			assert.Equal(t, "https://example.ainox.pro/unsubscribe",
				c.UnsubscribeLink(context.Background(), "a@x.com"))
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }
