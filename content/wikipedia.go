package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matt-wisdom/WhoDat/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultBaseURL  = "https://en.wikipedia.org"
	NoSummary       = "No summary available."
	userAgent       = "WhoDatGame/1.0"
	maxParallelGets = 10
)

var ErrArticleUnavailable = errors.New("article-unavailable")

// ArticleCache is implemented by the storage repos.
type ArticleCache interface {
	GetArticle(ctx context.Context, category, title string) (domain.SecretIdentity, error)
	UpsertArticle(ctx context.Context, category, requestedTitle string, a domain.SecretIdentity) error
}

// Supplier deals secret identities from Wikipedia articles, reading through
// an article cache.
type Supplier struct {
	httpClient *http.Client
	baseURL    string
	cache      ArticleCache
	inflight   singleflight.Group
}

func NewSupplier(baseURL string, cache ArticleCache) *Supplier {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Supplier{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		cache:      cache,
	}
}

func (s *Supplier) GetIdentities(ctx context.Context, category string, count int, exclude []string) ([]domain.SecretIdentity, error) {
	category = domain.NormalizeCategory(category)

	skip := make(map[string]struct{}, len(exclude))
	for _, t := range exclude {
		skip[key(t)] = struct{}{}
	}

	titles := []string{}
	for _, t := range titlesByCategory[category] {
		if _, ok := skip[key(t)]; !ok {
			titles = append(titles, t)
		}
	}
	if len(titles) < count {
		return nil, fmt.Errorf("%w: %d of %d left in %s", domain.ErrNotEnoughIdentities, len(titles), count, category)
	}

	rand.Shuffle(len(titles), func(i, j int) { titles[i], titles[j] = titles[j], titles[i] })
	identities, err := s.fetchAll(ctx, category, titles[:count])
	if err != nil {
		return nil, err
	}

	// A redirect can land on a canonical title the caller asked to avoid.
	fresh := identities[:0]
	for _, id := range identities {
		if _, stale := skip[key(id.Title)]; !stale {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) < count {
		return nil, fmt.Errorf("%w: redirects collided with excluded titles", domain.ErrNotEnoughIdentities)
	}
	return fresh, nil
}

// ResolveTitles turns free-form names into identities, dropping blanks and
// duplicates.
func (s *Supplier) ResolveTitles(ctx context.Context, category string, titles []string) ([]domain.SecretIdentity, error) {
	category = domain.NormalizeCategory(category)

	seen := map[string]struct{}{}
	unique := []string{}
	for _, t := range titles {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[key(t)]; dup {
			continue
		}
		seen[key(t)] = struct{}{}
		unique = append(unique, t)
	}
	return s.fetchAll(ctx, category, unique)
}

func (s *Supplier) fetchAll(ctx context.Context, category string, titles []string) ([]domain.SecretIdentity, error) {
	identities := make([]domain.SecretIdentity, len(titles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelGets)
	for i, title := range titles {
		g.Go(func() error {
			identities[i] = s.article(gctx, category, title)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return identities, nil
}

// article never fails: an unreachable article degrades to a title with the
// placeholder summary, which is not cached.
func (s *Supplier) article(ctx context.Context, category, title string) domain.SecretIdentity {
	if s.cache != nil {
		a, err := s.cache.GetArticle(ctx, category, title)
		if err == nil {
			return a
		}
		if !errors.Is(err, domain.ErrArticleNotFound) {
			log.Warn().Err(err).Str("title", title).Msg("article cache read failed")
		}
	}

	v, err, _ := s.inflight.Do(category+"\x00"+key(title), func() (any, error) {
		return s.fetch(ctx, category, title)
	})
	if err != nil {
		log.Warn().Err(err).Str("title", title).Msg("wikipedia fetch failed, using placeholder")
		return domain.SecretIdentity{Title: title, Summary: NoSummary}
	}
	return v.(domain.SecretIdentity)
}

func (s *Supplier) fetch(ctx context.Context, category, title string) (domain.SecretIdentity, error) {
	a, err := s.summary(ctx, title)
	if err != nil {
		return domain.SecretIdentity{}, err
	}

	full, err := s.extract(ctx, a.Title)
	if err != nil {
		log.Debug().Err(err).Str("title", a.Title).Msg("full extract unavailable")
	}
	a.FullText = full

	if s.cache != nil {
		if err := s.cache.UpsertArticle(ctx, category, title, a); err != nil {
			log.Warn().Err(err).Str("title", title).Msg("article cache write failed")
		}
	}
	return a, nil
}

type summaryResponse struct {
	Type          string `json:"type"`
	Title         string `json:"title"`
	Extract       string `json:"extract"`
	OriginalImage struct {
		Source string `json:"source"`
	} `json:"originalimage"`
}

func (s *Supplier) summary(ctx context.Context, title string) (domain.SecretIdentity, error) {
	endpoint := s.baseURL + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var resp summaryResponse
	if err := s.getJSON(ctx, endpoint, &resp); err != nil {
		return domain.SecretIdentity{}, err
	}
	if resp.Type == "disambiguation" || strings.TrimSpace(resp.Extract) == "" {
		return domain.SecretIdentity{}, fmt.Errorf("%w: %s is a %s page", ErrArticleUnavailable, title, resp.Type)
	}
	if resp.Title == "" {
		resp.Title = title
	}
	return domain.SecretIdentity{
		Title:   resp.Title,
		Summary: resp.Extract,
		Image:   resp.OriginalImage.Source,
	}, nil
}

type extractResponse struct {
	Query struct {
		Pages map[string]struct {
			Extract string `json:"extract"`
		} `json:"pages"`
	} `json:"query"`
}

func (s *Supplier) extract(ctx context.Context, title string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("prop", "extracts")
	q.Set("explaintext", "1")
	q.Set("redirects", "1")
	q.Set("format", "json")
	q.Set("titles", title)

	var resp extractResponse
	if err := s.getJSON(ctx, s.baseURL+"/w/api.php?"+q.Encode(), &resp); err != nil {
		return "", err
	}
	for _, page := range resp.Query.Pages {
		if page.Extract != "" {
			return page.Extract, nil
		}
	}
	return "", fmt.Errorf("%w: no extract for %s", ErrArticleUnavailable, title)
}

func (s *Supplier) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return fmt.Errorf("%w: %s returned %d", ErrArticleUnavailable, endpoint, resp.StatusCode)
	}
	return json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(v)
}

func key(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
