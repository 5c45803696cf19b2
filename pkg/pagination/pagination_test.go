package pagination

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestFromContext(t *testing.T) {
	tests := []struct {
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"", DefaultLimit, 0},
		{"?limit=5&offset=10", 5, 10},
		{"?limit=1000", MaxLimit, 0},
		{"?limit=-3&offset=-1", DefaultLimit, 0},
		{"?limit=abc", DefaultLimit, 0},
	}

	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil), httptest.NewRecorder())
			p := FromContext(c)
			if p.Limit != tt.wantLimit || p.Offset != tt.wantOffset {
				t.Errorf("got limit=%d offset=%d, want limit=%d offset=%d", p.Limit, p.Offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse([]int{1, 2}, 5, Params{Limit: 2, Offset: 2})
	if !r.HasMore {
		t.Error("expected HasMore with 5 total at offset 2 limit 2")
	}
	r = NewResponse([]int{5}, 5, Params{Limit: 2, Offset: 4})
	if r.HasMore {
		t.Error("expected no more results on last page")
	}
}

func TestResponse_WithLinks(t *testing.T) {
	u, _ := url.Parse("/api/v1/medecins/search?city=rabat&limit=2&offset=2")
	r := NewResponse(nil, 7, Params{Limit: 2, Offset: 2}).WithLinks(u)

	if r.Next != "/api/v1/medecins/search?city=rabat&limit=2&offset=4" {
		t.Errorf("unexpected next link %q", r.Next)
	}
	if r.Previous != "/api/v1/medecins/search?city=rabat&limit=2&offset=0" {
		t.Errorf("unexpected previous link %q", r.Previous)
	}

	first := NewResponse(nil, 1, Params{Limit: 20}).WithLinks(u)
	if first.Next != "" || first.Previous != "" {
		t.Errorf("expected no links on a single page, got %q %q", first.Next, first.Previous)
	}
}

func TestPreviousOffset_ClampsToZero(t *testing.T) {
	if got := (Params{Limit: 20, Offset: 5}).PreviousOffset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}
