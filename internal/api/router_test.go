package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketpages/internal/market"
)

type fixedProvider struct{}

func (fixedProvider) Name() string { return "fixed" }

func (fixedProvider) GetQuote(_ context.Context, symbol string) (market.Quote, error) {
	if symbol == "GONE" {
		return market.Quote{}, fmt.Errorf("%w: %s", market.ErrNoData, symbol)
	}
	return market.Quote{
		Symbol:        symbol,
		Price:         110,
		PreviousClose: 100,
		Change:        10,
		ChangePercent: 10,
		Volume:        1000,
	}, nil
}

func testRouter(t *testing.T) *server.Hertz {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := server.Default()
	agg := market.NewAggregator(fixedProvider{}, market.AggregatorOptions{TopN: 10}, logger)
	RegisterRoutes(h, nil, nil, agg, t.TempDir(), []string{"AAPL"}, logger)
	return h
}

func TestHealthz(t *testing.T) {
	h := testRouter(t)
	w := ut.PerformRequest(h.Engine, "GET", "/healthz", nil)
	resp := w.Result()
	assert.Equal(t, 200, resp.StatusCode())
	assert.JSONEq(t, `{"ok":true}`, string(resp.Body()))
}

func TestSummaryWithoutStore(t *testing.T) {
	h := testRouter(t)
	w := ut.PerformRequest(h.Engine, "GET", "/api/v1/summary", nil)
	assert.Equal(t, 500, w.Result().StatusCode())
}

func TestArchiveRequiresDate(t *testing.T) {
	h := testRouter(t)
	w := ut.PerformRequest(h.Engine, "GET", "/api/v1/archive", nil)
	// Store is not wired in this fixture, so the handler reports that first.
	assert.Equal(t, 500, w.Result().StatusCode())
}

func TestQuotesLiveFetch(t *testing.T) {
	h := testRouter(t)
	w := ut.PerformRequest(h.Engine, "GET", "/api/v1/quotes?symbols=AAPL,GONE", nil)
	resp := w.Result()
	require.Equal(t, 200, resp.StatusCode())

	var body struct {
		OK      bool           `json:"ok"`
		Summary market.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(resp.Body(), &body))
	assert.True(t, body.OK)
	require.Len(t, body.Summary.Quotes, 1)
	assert.Equal(t, "AAPL", body.Summary.Quotes[0].Symbol)
	assert.Equal(t, []string{"GONE"}, body.Summary.Failed)
}

func TestGenerateWithoutGenerator(t *testing.T) {
	h := testRouter(t)
	w := ut.PerformRequest(h.Engine, "POST", "/api/v1/generate", nil)
	assert.Equal(t, 500, w.Result().StatusCode())
}
