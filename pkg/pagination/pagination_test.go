package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?limit=25&offset=10")

	if p.Limit != 25 {
		t.Errorf("expected limit 25, got %d", p.Limit)
	}
	if p.Offset != 10 {
		t.Errorf("expected offset 10, got %d", p.Offset)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := paramsFor("/?limit=10000")

	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	p := paramsFor("/?limit=abc&offset=-5")

	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit, got %d", p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 10, 2, 0)

	if resp.Total != 10 {
		t.Errorf("expected total 10, got %d", resp.Total)
	}
	if !resp.HasMore {
		t.Error("expected has_more to be true")
	}

	last := NewResponse([]string{"a"}, 3, 2, 2)
	if last.HasMore {
		t.Error("expected has_more to be false on last page")
	}
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		total int
		want  bool
	}{
		{"more results", Params{Limit: 10, Offset: 0}, 25, true},
		{"exact fit", Params{Limit: 10, Offset: 10}, 20, false},
		{"empty", Params{Limit: 10, Offset: 0}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext(%d) = %v, want %v", tt.total, got, tt.want)
			}
		})
	}
}

func TestParams_NextOffset(t *testing.T) {
	p := Params{Limit: 20, Offset: 40}
	if got := p.NextOffset(); got != 60 {
		t.Errorf("expected 60, got %d", got)
	}
}

func TestParams_Bounds(t *testing.T) {
	tests := []struct {
		name      string
		p         Params
		n         int
		wantStart int
		wantEnd   int
	}{
		{"first page", Params{Limit: 2, Offset: 0}, 5, 0, 2},
		{"last partial page", Params{Limit: 2, Offset: 4}, 5, 4, 5},
		{"offset past end", Params{Limit: 2, Offset: 9}, 5, 5, 5},
		{"no limit", Params{Offset: 1}, 5, 1, 5},
		{"empty set", Params{Limit: 10}, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.p.Bounds(tt.n)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Bounds(%d) = [%d,%d), want [%d,%d)", tt.n, start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}
