package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/model"
	"launchpad/internal/observability"
	"launchpad/internal/storage/memory"
)

const testPool = "0x1111111111111111111111111111111111111111"

type testEnv struct {
	server  *Server
	handler http.Handler
	meta    *memory.MetadataStore
	images  *memory.ImageStore
	trades  *memory.TradeStore
	metrics *observability.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	meta := memory.NewMetadataStore()
	images := memory.NewImageStore()
	tradeStore := memory.NewTradeStore()
	metrics := observability.NewMetrics("test")
	srv := NewServer(Config{PublicURL: "https://api.example.org/", ChainID: 33101, MaxImageBytes: 1024}, meta, images, tradeStore, nil, metrics)
	srv.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return &testEnv{server: srv, handler: srv.Handler(), meta: meta, images: images, trades: tradeStore, metrics: metrics}
}

type filePart struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, fields map[string]string, file *filePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		part, err := mw.CreateFormFile("image", file.name)
		require.NoError(t, err)
		_, err = part.Write(file.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/metadata", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func validFields() map[string]string {
	return map[string]string{
		"poolAddress": strings.ToUpper(testPool[:2]) + testPool[2:],
		"name":        "Meme",
		"symbol":      "MEME",
		"description": "a token",
		"website":     "https://meme.example",
	}
}

func TestPostMetadataWithImage(t *testing.T) {
	env := newTestEnv(t)
	png := []byte{0x89, 'P', 'N', 'G', 1, 2, 3}

	rec := env.do(multipartRequest(t, validFields(), &filePart{name: "logo.PNG", data: png}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://api.example.org/metadata/"+testPool, resp.MetadataURI)
	require.True(t, strings.HasPrefix(resp.ImageURL, "https://api.example.org/images/"))
	assert.True(t, strings.HasSuffix(resp.ImageURL, ".png"))

	stored, err := env.meta.GetMetadata(context.Background(), testPool)
	require.NoError(t, err)
	assert.Equal(t, "Meme", stored.Name)
	assert.Equal(t, uint64(33101), stored.ChainID)
	assert.Equal(t, model.LaunchBondingCurve, stored.LaunchType)
	assert.Equal(t, resp.ImageURL, stored.ImageURL)

	key := strings.TrimPrefix(resp.ImageURL, "https://api.example.org/images/")
	imgRec := env.do(httptest.NewRequest(http.MethodGet, "/images/"+key, nil))
	require.Equal(t, http.StatusOK, imgRec.Code)
	assert.Equal(t, "image/png", imgRec.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=31536000, immutable", imgRec.Header().Get("Cache-Control"))
	assert.Equal(t, png, imgRec.Body.Bytes())

	assert.Equal(t, float64(len(png)), testutil.ToFloat64(env.metrics.ImageBytesStored))
}

func TestPostMetadataKeepsImageOnUpdate(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(multipartRequest(t, validFields(), &filePart{name: "logo.gif", data: []byte("GIF89a")}))
	require.Equal(t, http.StatusOK, rec.Code)
	var first uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))

	fields := validFields()
	fields["name"] = "Meme v2"
	fields["launchType"] = "fair_launch"
	rec = env.do(multipartRequest(t, fields, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var second uploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.ImageURL, second.ImageURL)

	getRec := env.do(httptest.NewRequest(http.MethodGet, "/metadata/"+testPool, nil))
	require.Equal(t, http.StatusOK, getRec.Code)
	var got model.TokenMetadata
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &got))
	assert.Equal(t, "Meme v2", got.Name)
	assert.Equal(t, model.LaunchFairLaunch, got.LaunchType)
	assert.Equal(t, "https://meme.example", got.Website)
}

func TestPostMetadataValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]string)
		file   *filePart
	}{
		{name: "bad pool", mutate: func(f map[string]string) { f["poolAddress"] = "0x1234" }},
		{name: "missing name", mutate: func(f map[string]string) { delete(f, "name") }},
		{name: "missing symbol", mutate: func(f map[string]string) { f["symbol"] = "  " }},
		{name: "bad chain id", mutate: func(f map[string]string) { f["chainId"] = "abc" }},
		{name: "bad launch type", mutate: func(f map[string]string) { f["launchType"] = "auction" }},
		{name: "unsupported extension", file: &filePart{name: "logo.bmp", data: []byte{1}}},
		{name: "too large", file: &filePart{name: "logo.png", data: bytes.Repeat([]byte{1}, 1025)}},
		{name: "empty image", file: &filePart{name: "logo.webp", data: nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			fields := validFields()
			if tc.mutate != nil {
				tc.mutate(fields)
			}
			rec := env.do(multipartRequest(t, fields, tc.file))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)

			_, err := env.meta.GetMetadata(context.Background(), testPool)
			assert.Error(t, err)
		})
	}
}

func TestPostMetadataRejectsNonMultipart(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodPost, "/metadata", strings.NewReader(`{"name":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metadata/"+testPool, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metadata/not-an-address", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/images/missing.png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_http_requests_total")
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/metadata", nil)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := env.do(req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestGetTrades(t *testing.T) {
	env := newTestEnv(t)
	stored := []model.Trade{
		{Kind: model.TradeBuy, ChainID: 33101, Pool: testPool, TxHash: "0x01", BlockNumber: 10, LogIndex: 0, ZilAmount: "1000"},
		{Kind: model.TradeSell, ChainID: 33101, Pool: testPool, TxHash: "0x02", BlockNumber: 12, LogIndex: 1, ZilAmount: "400"},
		{Kind: model.TradeBuy, ChainID: 33101, Pool: testPool, TxHash: "0x03", BlockNumber: 12, LogIndex: 3, ZilAmount: "50"},
		{Kind: model.TradeBuy, ChainID: 32769, Pool: testPool, TxHash: "0x04", BlockNumber: 99, LogIndex: 0},
	}
	require.NoError(t, env.trades.PutTrades(context.Background(), stored))

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trades/"+testPool, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Pool   string        `json:"pool"`
		Trades []model.Trade `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Trades, 3)
	assert.Equal(t, "0x03", resp.Trades[0].TxHash)
	assert.Equal(t, "0x02", resp.Trades[1].TxHash)
	assert.Equal(t, "0x01", resp.Trades[2].TxHash)

	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trades/"+testPool+"?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "0x03", resp.Trades[0].TxHash)
}

func TestGetTradesValidation(t *testing.T) {
	env := newTestEnv(t)
	for _, target := range []string{"/trades/not-an-address", "/trades/" + testPool + "?limit=0", "/trades/" + testPool + "?limit=abc"} {
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trades/"+testPool, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"trades":[]`)
}

func TestTradesRouteNeedsStore(t *testing.T) {
	srv := NewServer(Config{}, memory.NewMetadataStore(), memory.NewImageStore(), nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/trades/"+testPool, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
