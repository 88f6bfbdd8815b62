package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"PersonalQT/internal/domain/models"
	"PersonalQT/internal/router"
	"PersonalQT/internal/service/notify"
	"PersonalQT/internal/service/ratelimit"
	"PersonalQT/internal/store"
	"PersonalQT/internal/usecase"
	xhttp "PersonalQT/pkg/http"
	applogger "PersonalQT/pkg/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Fetcher runs a loader action for one collection.
type Fetcher interface {
	Fetch(ctx context.Context, c models.Collection, opts ...usecase.FetchOption) (int, error)
}

// HealthFunc reports backend health.
type HealthFunc func(ctx context.Context) (models.Health, error)

// Option configures Handler.
type Option func(*Handler)

// WithProxy forwards prefix/* to target with the prefix stripped.
func WithProxy(prefix string, target *url.URL) Option {
	return func(h *Handler) {
		h.proxyPrefix = "/" + strings.Trim(prefix, "/")
		h.proxyTarget = target
	}
}

// WithHealth exposes backend health under {base}health.
func WithHealth(fn HealthFunc) Option {
	return func(h *Handler) { h.health = fn }
}

// WithRefreshLimit throttles refresh actions per collection.
func WithRefreshLimit(l *ratelimit.Limiter) Option {
	return func(h *Handler) { h.limiter = l }
}

// WithLogger sets the handler logger.
func WithLogger(l *applogger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// Handler serves the admin pages, the state API and live updates.
type Handler struct {
	store  *store.Store
	router *router.Router
	loader Fetcher
	stream *notify.Streamer
	health HealthFunc

	limiter *ratelimit.Limiter

	proxyPrefix string
	proxyTarget *url.URL

	log *applogger.Logger
}

// NewHandler wires a Handler. stream may be nil to disable {base}ws.
func NewHandler(st *store.Store, rt *router.Router, loader Fetcher, stream *notify.Streamer, opts ...Option) *Handler {
	h := &Handler{
		store:  st,
		router: rt,
		loader: loader,
		stream: stream,
		log:    applogger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.Named("web")
	return h
}

var _ xhttp.Handler = (*Handler)(nil)

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	base := h.router.Base()

	if h.proxyTarget != nil {
		e.Group(h.proxyPrefix, echomw.ProxyWithConfig(echomw.ProxyConfig{
			Balancer: echomw.NewRoundRobinBalancer([]*echomw.ProxyTarget{{URL: h.proxyTarget}}),
			Rewrite:  map[string]string{h.proxyPrefix + "/*": "/$1"},
		}))
		h.log.Info("api proxy enabled",
			applogger.String("prefix", h.proxyPrefix),
			applogger.String("target", h.proxyTarget.String()),
		)
	}

	e.GET(base+"state", h.State)
	e.GET(base+"state/:collection", h.Collection)
	e.POST(base+"state/:collection/refresh", h.Refresh)
	e.GET(base+"routes", h.Routes)
	if h.health != nil {
		e.GET(base+"health", h.Health)
	}
	if h.stream != nil {
		e.GET(base+"ws", h.WS)
	}

	e.GET(base, h.Page)
	e.GET(base+"*", h.Page)
	if trimmed := strings.TrimSuffix(base, "/"); trimmed != "" {
		e.GET(trimmed, h.Page)
	}
}

// Page renders the shell for a view. Unknown paths render with the bare
// platform title and 404. Requests from many clients share the router, so
// rendering only locates the path and leaves navigation state alone.
func (h *Handler) Page(c echo.Context) error {
	appPath, ok := h.router.StripBase(c.Request().URL.Path)
	if !ok {
		return echo.ErrNotFound
	}

	loc := h.router.Locate(appPath)
	b := bootstrap{
		Path:        loc.Path,
		Title:       loc.Title,
		Collections: map[string]interface{}{},
	}
	status := http.StatusOK
	if loc.Matched() {
		b.Route = loc.Route.Name
		for _, col := range loc.Route.Collections {
			v, err := h.store.Get(col)
			if err != nil {
				return xhttp.AppErrorResponse(c, err)
			}
			b.Collections[col.String()] = v
		}
	} else {
		status = http.StatusNotFound
	}

	page, err := renderShell(h.router.Base(), b)
	if err != nil {
		h.log.Error("render shell failed", applogger.String("path", appPath), applogger.Error(err))
		return xhttp.InternalServerErrorResponse(c)
	}
	return c.HTMLBlob(status, page)
}

// State returns every collection.
func (h *Handler) State(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.store.Snapshot())
}

// Collection returns one collection.
func (h *Handler) Collection(c echo.Context) error {
	col, err := models.ParseCollection(c.Param("collection"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	}
	q := new(pageQuery)
	if errs := xhttp.ReadAndValidateRequest(c, q); errs != nil {
		return xhttp.BadRequestResponse(c, errs)
	}
	v, err := h.store.Get(col)
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, q.apply(v), int64(h.store.Count(col)))
}

// pageQuery windows a collection listing. Limit 0 returns everything from Skip.
type pageQuery struct {
	Skip  int `query:"skip" validate:"gte=0"`
	Limit int `query:"limit" validate:"gte=0,lte=1000"`
}

func (q *pageQuery) apply(v interface{}) interface{} {
	switch rows := v.(type) {
	case []models.Category:
		return window(rows, q.Skip, q.Limit)
	case []models.StockTrade:
		return window(rows, q.Skip, q.Limit)
	case []models.FailureCase:
		return window(rows, q.Skip, q.Limit)
	case []models.DailyReview:
		return window(rows, q.Skip, q.Limit)
	case []models.DailyFund:
		return window(rows, q.Skip, q.Limit)
	}
	return v
}

func window[T any](rows []T, skip, limit int) []T {
	if skip >= len(rows) {
		return []T{}
	}
	end := len(rows)
	if limit > 0 {
		end = min(skip+limit, end)
	}
	return rows[skip:end]
}

type refreshResult struct {
	Collection models.Collection `json:"collection"`
	Count      int               `json:"count"`
}

// Refresh fetches one collection from the backend and commits it.
// ?force=true bypasses the cache.
func (h *Handler) Refresh(c echo.Context) error {
	col, err := models.ParseCollection(c.Param("collection"))
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
	}
	if h.limiter != nil && !h.limiter.Allow(col.String()) {
		return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("refresh rate exceeded").WithParam("collection", col))
	}

	var opts []usecase.FetchOption
	if force, _ := strconv.ParseBool(c.QueryParam("force")); force {
		opts = append(opts, usecase.Force())
	}

	n, err := h.loader.Fetch(c.Request().Context(), col, opts...)
	if err != nil {
		h.log.Error("refresh failed", applogger.String("collection", col.String()), applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, refreshResult{Collection: col, Count: n})
}

type routeInfo struct {
	router.Route
	Href          string `json:"href"`
	DocumentTitle string `json:"document_title"`
}

// Routes lists the page table.
func (h *Handler) Routes(c echo.Context) error {
	routes := h.router.Routes()
	out := make([]routeInfo, len(routes))
	for i := range routes {
		out[i] = routeInfo{
			Route:         routes[i],
			Href:          h.router.Href(routes[i].Path),
			DocumentTitle: router.TitleFor(&routes[i]),
		}
	}
	return xhttp.ListResponse(c, out, int64(len(out)))
}

// Health proxies the backend health check.
func (h *Handler) Health(c echo.Context) error {
	res, err := h.health(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// WS upgrades to a websocket streaming store changes.
func (h *Handler) WS(c echo.Context) error {
	err := h.stream.Serve(c.Response(), c.Request())
	if errors.Is(err, store.ErrClosed) {
		return xhttp.DataResponse(c, http.StatusServiceUnavailable, "store closed")
	}
	if err != nil {
		h.log.Warn("websocket ended", applogger.Error(err))
	}
	return nil
}
