package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNavigateSetsTitleForDeclaredRoutes(t *testing.T) {
	tests := []struct {
		path  string
		title string
	}{
		{"/", "首页 - 量化交易管理平台"},
		{"/stock-trades", "交易记录 - 量化交易管理平台"},
		{"/categories", "分类管理 - 量化交易管理平台"},
		{"/failure-cases", "失败案例 - 量化交易管理平台"},
		{"/daily-reviews", "每日复盘 - 量化交易管理平台"},
		{"/daily-funds", "资金曲线 - 量化交易管理平台"},
	}

	r := New()
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			loc := r.Navigate(tt.path)
			assert.True(t, loc.Matched())
			assert.Equal(t, tt.title, loc.Title)
			assert.Equal(t, tt.title, r.DocumentTitle())
		})
	}
}

func TestNavigateUndeclaredPathUsesBareTitle(t *testing.T) {
	r := New()
	r.Navigate("/stock-trades")

	loc := r.Navigate("/settings")
	assert.False(t, loc.Matched())
	assert.Equal(t, PlatformName, loc.Title)
	assert.Equal(t, PlatformName, r.DocumentTitle())
}

func TestInitialTitleIsBare(t *testing.T) {
	assert.Equal(t, PlatformName, New().DocumentTitle())
}

func TestRoutesTable(t *testing.T) {
	routes := New().Routes()
	require.Len(t, routes, 6)
	for _, rt := range routes {
		assert.NotEmpty(t, rt.Title)
		assert.NotEmpty(t, rt.Collections)
	}
}

func TestResolveNormalizes(t *testing.T) {
	r := New()
	for _, p := range []string{"/daily-funds", "/daily-funds/", "daily-funds", "/daily-funds?days=30"} {
		rt, ok := r.Resolve(p)
		require.True(t, ok, p)
		assert.Equal(t, "DailyFunds", rt.Name)
	}
	_, ok := r.Resolve("/daily-fund")
	assert.False(t, ok)
}

func TestResolveCollapsesLeadingSlashes(t *testing.T) {
	r := New()
	for _, p := range []string{"//categories", "///categories/", "//categories?x=1"} {
		rt, ok := r.Resolve(p)
		require.True(t, ok, p)
		assert.Equal(t, "Categories", rt.Name, p)
	}
	assert.Equal(t, "分类管理 - 量化交易管理平台", r.Navigate("//categories").Title)
}

func TestBeforeEachSeesTitleAlreadySet(t *testing.T) {
	r := New()
	var seen []string
	var froms []string
	remove := r.BeforeEach(func(to, from Location) {
		seen = append(seen, r.DocumentTitle())
		froms = append(froms, from.Path)
		assert.Equal(t, from, r.Current(), "location changes after hooks")
	})

	r.Navigate("/categories")
	r.Navigate("/")
	remove()
	r.Navigate("/daily-funds")

	assert.Equal(t, []string{"分类管理 - 量化交易管理平台", "首页 - 量化交易管理平台"}, seen)
	assert.Equal(t, []string{"", "/categories"}, froms)
}

func TestHooksRunInOrder(t *testing.T) {
	r := New()
	var calls []int
	r.BeforeEach(func(Location, Location) { calls = append(calls, 1) })
	r.BeforeEach(func(Location, Location) { calls = append(calls, 2) })
	r.Navigate("/")
	assert.Equal(t, []int{1, 2}, calls)
}

func TestUnregisterDropsHook(t *testing.T) {
	r := New()
	var calls []int
	r.BeforeEach(func(Location, Location) { calls = append(calls, 1) })
	remove := r.BeforeEach(func(Location, Location) { calls = append(calls, 2) })
	r.BeforeEach(func(Location, Location) { calls = append(calls, 3) })

	remove()
	remove()
	r.Navigate("/")
	assert.Equal(t, []int{1, 3}, calls)
	assert.Len(t, r.hooks, 2)

	for i := 0; i < 50; i++ {
		r.BeforeEach(func(Location, Location) {})()
	}
	assert.Len(t, r.hooks, 2)
}

func TestHistoryAndBack(t *testing.T) {
	r := New(WithHistoryLimit(3))
	for _, p := range []string{"/", "/categories", "/stock-trades", "/daily-funds"} {
		r.Navigate(p)
	}

	h := r.History()
	require.Len(t, h, 3)
	assert.Equal(t, "/categories", h[0].Path)

	loc, ok := r.Back()
	require.True(t, ok)
	assert.Equal(t, "/stock-trades", loc.Path)
	assert.Equal(t, "交易记录 - 量化交易管理平台", r.DocumentTitle())
}

func TestStripBase(t *testing.T) {
	r := New(WithBase("personal-qt"))
	assert.Equal(t, "/personal-qt/", r.Base())

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"/personal-qt/", "/", true},
		{"/personal-qt", "/", true},
		{"/personal-qt/daily-funds", "/daily-funds", true},
		{"/other/daily-funds", "", false},
	}
	for _, tt := range tests {
		got, ok := r.StripBase(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	assert.Equal(t, "/personal-qt/daily-funds", r.Href("/daily-funds"))
}

func TestRootBase(t *testing.T) {
	r := New(WithBase("/"))
	got, ok := r.StripBase("/categories")
	require.True(t, ok)
	assert.Equal(t, "/categories", got)
}

func TestLocateLeavesStateAlone(t *testing.T) {
	r := New()
	called := false
	r.BeforeEach(func(Location, Location) { called = true })

	loc := r.Locate("/daily-reviews")
	assert.Equal(t, "每日复盘 - 量化交易管理平台", loc.Title)
	assert.True(t, loc.Matched())

	assert.False(t, called)
	assert.Empty(t, r.History())
	assert.Equal(t, PlatformName, r.DocumentTitle())
	assert.False(t, r.Current().Matched())
}
