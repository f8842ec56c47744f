package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/nakatash/pokeca-search/internal/config"
	"github.com/nakatash/pokeca-search/internal/connector"
)

type fakeConnector struct{ source string }

func (f *fakeConnector) Source() string   { return f.source }
func (f *fakeConnector) ShopName() string { return f.source }
func (f *fakeConnector) SearchCards(context.Context, connector.SearchParams) (*connector.SearchResult, error) {
	return &connector.SearchResult{}, nil
}
func (f *fakeConnector) GetCardDetail(context.Context, string) (*connector.ShopCard, error) {
	return nil, nil
}

func TestNew_RegistersBuiltInSources(t *testing.T) {
	r := New(config.Config{}, nil)
	got := r.Sources()
	want := []string{"cardlabo", "cardrush", "hareruya2", "pokemontcg"}
	if len(got) != len(want) {
		t.Fatalf("sources=%v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sources=%v want %v", got, want)
		}
	}
	for _, s := range want {
		c, err := r.Get(s)
		if err != nil {
			t.Fatalf("Get(%s): %v", s, err)
		}
		if c.Source() != s {
			t.Fatalf("Get(%s).Source()=%s", s, c.Source())
		}
	}
}

func TestGet_CachesInstance(t *testing.T) {
	r := Empty()
	builds := 0
	r.Register("fake", func() connector.Connector {
		builds++
		return &fakeConnector{source: "fake"}
	})

	a, err := r.Get("fake")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	b, _ := r.Get("fake")
	if a != b {
		t.Fatalf("expected the cached instance")
	}
	if builds != 1 {
		t.Fatalf("builds=%d want 1", builds)
	}
}

func TestGet_UnknownSource(t *testing.T) {
	_, err := Empty().Get("nope")
	var ce *connector.Error
	if !errors.As(err, &ce) || ce.Code != connector.CodeUnknown {
		t.Fatalf("err=%v want unknown source error", err)
	}
}
