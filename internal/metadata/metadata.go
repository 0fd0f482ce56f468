package metadata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/net/html"
)

// PageMeta is what we could extract from a page's head.
type PageMeta struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Fetcher scrapes page titles/descriptions for bookmark pre-fill, with a TTL
// cache so repeated lookups of the same URL don't refetch.
type Fetcher struct {
	client *http.Client
	cache  *gocache.Cache
}

func NewFetcher(timeout time.Duration, cacheTTL time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Hour
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
	}
}

func (f *Fetcher) Fetch(ctx context.Context, target string) (*PageMeta, error) {
	if cached, ok := f.cache.Get(target); ok {
		meta := cached.(PageMeta)
		return &meta, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "linkmark-metadata/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("metadata fetch status %d", resp.StatusCode)
	}

	meta := parseHead(resp.Body)
	f.cache.SetDefault(target, *meta)
	return meta, nil
}

func parseHead(r io.Reader) *PageMeta {
	var meta PageMeta
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			return &meta
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			switch t.Data {
			case "title":
				if z.Next() == html.TextToken {
					meta.Title = strings.TrimSpace(z.Token().Data)
				}
			case "meta":
				var name, content string
				for _, a := range t.Attr {
					switch a.Key {
					case "name", "property":
						name = strings.ToLower(a.Val)
					case "content":
						content = a.Val
					}
				}
				if (name == "description" || name == "og:description") && meta.Description == "" {
					meta.Description = strings.TrimSpace(content)
				}
			case "body":
				// head is over, nothing more to find
				return &meta
			}
		}
	}
}
