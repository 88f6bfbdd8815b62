package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"PersonalQT/internal/domain/models"
	"PersonalQT/internal/router"
	"PersonalQT/internal/service/ratelimit"
	"PersonalQT/internal/store"
	"PersonalQT/internal/usecase"
	xhttp "PersonalQT/pkg/http"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	st     *store.Store
	err    error
	forced bool
	calls  []models.Collection
}

func (f *fakeFetcher) Fetch(_ context.Context, c models.Collection, opts ...usecase.FetchOption) (int, error) {
	f.calls = append(f.calls, c)
	f.forced = len(opts) > 0
	if f.err != nil {
		return 0, f.err
	}
	f.st.SetCategories([]models.Category{{Name: "fetched"}})
	return 1, nil
}

func newTestServer(t *testing.T, opts ...Option) (*echo.Echo, *store.Store, *fakeFetcher) {
	t.Helper()
	st := store.New()
	t.Cleanup(func() { _ = st.Close() })
	f := &fakeFetcher{st: st}
	e := echo.New()
	NewHandler(st, router.New(), f, nil, opts...).RegisterRoutes(e)
	return e, st, f
}

func do(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

var (
	titleRe = regexp.MustCompile(`<title>(.*?)</title>`)
	stateRe = regexp.MustCompile(`(?s)<script id="initial-state" type="application/json">(.*?)</script>`)
)

func pageState(t *testing.T, body string) (string, bootstrap) {
	t.Helper()
	m := titleRe.FindStringSubmatch(body)
	require.Len(t, m, 2)
	s := stateRe.FindStringSubmatch(body)
	require.Len(t, s, 2)
	var b bootstrap
	require.NoError(t, json.Unmarshal([]byte(s[1]), &b))
	return m[1], b
}

func TestPageTitles(t *testing.T) {
	e, _, _ := newTestServer(t)

	tests := []struct {
		path, title string
	}{
		{"/personal-qt/", "首页 - 量化交易管理平台"},
		{"/personal-qt", "首页 - 量化交易管理平台"},
		{"/personal-qt/stock-trades", "交易记录 - 量化交易管理平台"},
		{"/personal-qt/categories", "分类管理 - 量化交易管理平台"},
		{"/personal-qt/failure-cases", "失败案例 - 量化交易管理平台"},
		{"/personal-qt/daily-reviews", "每日复盘 - 量化交易管理平台"},
		{"/personal-qt/daily-funds/", "资金曲线 - 量化交易管理平台"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := do(e, http.MethodGet, tt.path)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/html")
			title, _ := pageState(t, rec.Body.String())
			assert.Equal(t, tt.title, title)
		})
	}
}

func TestPageUnknownPathIsNotFoundWithBareTitle(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/personal-qt/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	title, b := pageState(t, rec.Body.String())
	assert.Equal(t, router.PlatformName, title)
	assert.Empty(t, b.Route)
	assert.Empty(t, b.Collections)
}

func TestPageEmbedsViewCollections(t *testing.T) {
	e, st, _ := newTestServer(t)
	st.SetCategories([]models.Category{{Name: "</script><b>"}})

	rec := do(e, http.MethodGet, "/personal-qt/stock-trades")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "</script><b>")

	_, b := pageState(t, rec.Body.String())
	assert.Equal(t, "StockTrades", b.Route)
	assert.Len(t, b.Collections, 2)

	raw, err := json.Marshal(b.Collections["categories"])
	require.NoError(t, err)
	var cats []models.Category
	require.NoError(t, json.Unmarshal(raw, &cats))
	require.Len(t, cats, 1)
	assert.Equal(t, "</script><b>", cats[0].Name)
	assert.Equal(t, []interface{}{}, b.Collections["stockTrades"])
}

func TestPagesLeaveRouterStateAlone(t *testing.T) {
	st := store.New()
	t.Cleanup(func() { _ = st.Close() })
	rt := router.New()
	e := echo.New()
	NewHandler(st, rt, &fakeFetcher{st: st}, nil).RegisterRoutes(e)

	require.Equal(t, http.StatusOK, do(e, http.MethodGet, "/personal-qt/categories").Code)
	require.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/personal-qt/nowhere").Code)

	assert.Empty(t, rt.History())
	assert.Equal(t, router.PlatformName, rt.DocumentTitle())
}

func TestStateEndpoints(t *testing.T) {
	e, st, _ := newTestServer(t)
	st.SetDailyFunds([]models.DailyFund{{}, {}})

	rec := do(e, http.MethodGet, "/personal-qt/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap struct {
		Data map[string][]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Len(t, snap.Data["dailyFunds"], 2)
	assert.Len(t, snap.Data["categories"], 0)

	rec = do(e, http.MethodGet, "/personal-qt/state/dailyFunds")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data xhttp.ListDataResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.EqualValues(t, 2, list.Data.Total)

	rec = do(e, http.MethodGet, "/personal-qt/state/orders")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCollectionPaging(t *testing.T) {
	e, st, _ := newTestServer(t)
	st.SetCategories([]models.Category{{Name: "a"}, {Name: "b"}, {Name: "c"}})

	rec := do(e, http.MethodGet, "/personal-qt/state/categories?skip=1&limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Data struct {
			Rows  []models.Category `json:"rows"`
			Total int64             `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Data.Rows, 1)
	assert.Equal(t, "b", list.Data.Rows[0].Name)
	assert.EqualValues(t, 3, list.Data.Total)

	rec = do(e, http.MethodGet, "/personal-qt/state/categories?skip=5")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Data.Rows)

	rec = do(e, http.MethodGet, "/personal-qt/state/categories?limit=-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var bad struct {
		Data []xhttp.ValidationError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bad))
	require.Len(t, bad.Data, 1)
	assert.Equal(t, "ERR_GTE", bad.Data[0].Code)
}

func TestRefresh(t *testing.T) {
	e, st, f := newTestServer(t)

	rec := do(e, http.MethodPost, "/personal-qt/state/categories/refresh?force=true")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.Collection{models.CollectionCategories}, f.calls)
	assert.True(t, f.forced)
	assert.Len(t, st.Categories(), 1)

	f.err = &xhttp.ResponseError{Response: &xhttp.Response{StatusCode: http.StatusInternalServerError, Options: &xhttp.RequestOptions{}}}
	rec = do(e, http.MethodPost, "/personal-qt/state/categories/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.False(t, f.forced)

	f.err = errors.New("boom")
	rec = do(e, http.MethodPost, "/personal-qt/state/categories/refresh")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRefreshIsThrottledPerCollection(t *testing.T) {
	e, _, f := newTestServer(t, WithRefreshLimit(ratelimit.New(0.001, 1)))

	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/personal-qt/state/categories/refresh").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(e, http.MethodPost, "/personal-qt/state/categories/refresh").Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodPost, "/personal-qt/state/dailyFunds/refresh").Code)
	assert.Len(t, f.calls, 2)
}

func TestRoutesListing(t *testing.T) {
	e, _, _ := newTestServer(t)

	rec := do(e, http.MethodGet, "/personal-qt/routes")
	require.Equal(t, http.StatusOK, rec.Code)
	var out struct {
		Data struct {
			Rows []routeInfo `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Data.Rows, 6)
	assert.Equal(t, "/personal-qt/daily-funds", out.Data.Rows[5].Href)
	assert.Equal(t, "资金曲线 - 量化交易管理平台", out.Data.Rows[5].DocumentTitle)
}

func TestHealth(t *testing.T) {
	e, _, _ := newTestServer(t, WithHealth(func(context.Context) (models.Health, error) {
		return models.Health{Status: "healthy", Database: "connected"}, nil
	}))

	rec := do(e, http.MethodGet, "/personal-qt/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"connected"`)
}

func TestProxyStripsPrefix(t *testing.T) {
	var gotPath, gotQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `[]`)
	}))
	defer backend.Close()

	target, err := url.Parse(backend.URL)
	require.NoError(t, err)
	e, _, _ := newTestServer(t, WithProxy("/api", target))

	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/categories/?limit=5")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", strings.TrimSpace(string(body)))
	assert.Equal(t, "/categories/", gotPath)
	assert.Equal(t, "limit=5", gotQuery)
}
