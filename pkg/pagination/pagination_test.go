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

func TestFromContextDefaults(t *testing.T) {
	p := paramsFor("/events")
	if p.Limit != DefaultLimit || p.Offset != 0 {
		t.Errorf("expected defaults, got %+v", p)
	}
}

func TestFromContextBounds(t *testing.T) {
	p := paramsFor("/events?limit=9999&offset=-5")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected negative offset clamped to 0, got %d", p.Offset)
	}

	p = paramsFor("/events?limit=25&offset=50")
	if p.Limit != 25 || p.Offset != 50 {
		t.Errorf("expected explicit params, got %+v", p)
	}
}

func TestResponse(t *testing.T) {
	resp := NewResponse([]int{1, 2, 3}, 10, 3, 0)
	if !resp.HasMore {
		t.Error("expected more pages")
	}
	resp = NewResponse([]int{1}, 1, 50, 0)
	if resp.HasMore {
		t.Error("expected no more pages")
	}
}

func TestNextOffset(t *testing.T) {
	p := Params{Limit: 50, Offset: 100}
	if p.NextOffset() != 150 {
		t.Errorf("expected 150, got %d", p.NextOffset())
	}
	if !p.HasNext(200) || p.HasNext(150) {
		t.Error("unexpected HasNext behavior")
	}
}
