package indeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/project-tktt/indeed-crawler/internal/common/blocker"
	"github.com/project-tktt/indeed-crawler/internal/common/extractor"
	"github.com/project-tktt/indeed-crawler/internal/common/fetcher"
	"github.com/project-tktt/indeed-crawler/internal/domain"
)

// stubIndeed serves search pages keyed by start offset and detail pages keyed by jk
type stubIndeed struct {
	mu sync.Mutex
	// pages[i] lists the ids on page i; missing pages are empty
	pages [][]string
	// broken ids serve a detail page without a company
	broken map[string]bool
	// flaky ids serve a broken detail page this many times, then a good one
	flaky map[string]int
	// blockedSearch serves a captcha for every search page at or beyond this index
	blockedSearch int

	searchHits []int
	detailHits []string
}

func newStub(pages ...[]string) *stubIndeed {
	return &stubIndeed{pages: pages, broken: map[string]bool{}, flaky: map[string]int{}, blockedSearch: -1}
}

func (s *stubIndeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.URL.Path {
	case "/jobs":
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		page := start / JobsPerPage
		s.searchHits = append(s.searchHits, page)
		if s.blockedSearch >= 0 && page >= s.blockedSearch {
			fmt.Fprint(w, "<html><body>Please solve this CAPTCHA</body></html>")
			return
		}
		var b strings.Builder
		b.WriteString("<html><body>")
		if page < len(s.pages) {
			for _, id := range s.pages[page] {
				fmt.Fprintf(&b, `<div class="cardOutline job_seen_beacon" data-jk="%s"><a>%s</a></div>`, id, id)
			}
		}
		b.WriteString("</body></html>")
		fmt.Fprint(w, b.String())
	case "/viewjob":
		id := r.URL.Query().Get("jk")
		s.detailHits = append(s.detailHits, id)
		company := `<div class="jobsearch-InlineCompanyRating">Company ` + id + `</div>`
		if s.broken[id] {
			company = ""
		}
		if s.flaky[id] > 0 {
			s.flaky[id]--
			company = ""
		}
		fmt.Fprintf(w, `<html><body>
<h1 class="jobsearch-JobInfoHeader-title"> Job %s </h1>
%s
<div class="jobsearch-JobInfoHeader-subtitle">San Francisco, CA</div>
<div id="jobDescriptionText">Description %s</div>
</body></html>`, id, company, id)
	default:
		http.NotFound(w, r)
	}
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%02d", prefix, i)
	}
	return out
}

type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestCrawler(t *testing.T, stub *stubIndeed, sleeper *recordingSleeper, mutate ...func(*Config)) *Crawler {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f, err := fetcher.New(fetcher.NewHTTPTransport(5*time.Second), blocker.NewDetector(),
		fetcher.Config{BaseURL: srv.URL, UserAgent: "test"}, logger, fetcher.WithSleeper(sleeper))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Retry = fetcher.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond}
	for _, m := range mutate {
		m(&cfg)
	}

	return NewCrawler(f, extractor.New(nil, logger), cfg, logger,
		WithSleeper(sleeper),
		WithClock(func() time.Time { return fixedTime }),
	)
}

func titles(jobs []*domain.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Title
	}
	return out
}

func TestSearchStopsOnEmptyPage(t *testing.T) {
	stub := newStub(ids("a", 10), nil)
	c := newTestCrawler(t, stub, &recordingSleeper{})

	jobs, err := c.Search(context.Background(), domain.SearchQuery{Position: "web developer", Location: "San Francisco", MaxPages: 2})
	require.NoError(t, err)

	assert.Len(t, jobs, 10)
	assert.Equal(t, []int{0, 1}, stub.searchHits)
	assert.Equal(t, ids("a", 10), stub.detailHits)
}

func TestSearchTwoFullPages(t *testing.T) {
	stub := newStub(ids("a", 10), ids("b", 10))
	sleeper := &recordingSleeper{}
	c := newTestCrawler(t, stub, sleeper)

	jobs, err := c.Search(context.Background(), domain.SearchQuery{Position: "web developer", Location: "San Francisco", MaxPages: 2})
	require.NoError(t, err)
	require.Len(t, jobs, 20)

	var want []string
	for _, id := range append(ids("a", 10), ids("b", 10)...) {
		want = append(want, "Job "+id)
	}
	assert.Equal(t, want, titles(jobs))
	assert.Equal(t, "a00", jobs[0].ID)
	assert.Equal(t, "Company a00", jobs[0].Company)
	assert.Contains(t, jobs[0].URL, "/viewjob?jk=a00")

	data, err := json.Marshal(jobs)
	require.NoError(t, err)
	var decoded []map[string]string
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 20)
	for _, obj := range decoded {
		assert.Len(t, obj, 4)
		for _, key := range []string{"title", "company", "location", "description"} {
			assert.Contains(t, obj, key)
		}
	}

	// One politeness delay between the two pages, none after the last
	require.Len(t, sleeper.delays, 1)
	assert.GreaterOrEqual(t, sleeper.delays[0], time.Second)
	assert.LessOrEqual(t, sleeper.delays[0], 3*time.Second)
}

func TestSearchIsIdempotent(t *testing.T) {
	stub := newStub(ids("a", 3), ids("b", 2))
	c := newTestCrawler(t, stub, &recordingSleeper{})
	query := domain.SearchQuery{Position: "go", Location: "Remote", MaxPages: 3}

	first, err := c.Search(context.Background(), query)
	require.NoError(t, err)
	second, err := c.Search(context.Background(), query)
	require.NoError(t, err)

	assert.Len(t, first, 5)
	assert.Equal(t, first, second)
}

func TestSearchCrossPageDedup(t *testing.T) {
	tests := []struct {
		name  string
		dedup bool
		want  int
	}{
		{"enabled", true, 4},
		{"disabled", false, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStub([]string{"x1", "x2", "x3"}, []string{"x3", "x4"})
			c := newTestCrawler(t, stub, &recordingSleeper{}, func(cfg *Config) {
				cfg.DedupAcrossPages = tt.dedup
			})

			jobs, err := c.Search(context.Background(), domain.SearchQuery{MaxPages: 2})
			require.NoError(t, err)
			assert.Len(t, jobs, tt.want)
			assert.Len(t, stub.detailHits, tt.want)
		})
	}
}

func TestSearchRetriesListingThatFailedOnEarlierPage(t *testing.T) {
	stub := newStub([]string{"x1", "x2"}, []string{"x2", "x3"})
	stub.flaky["x2"] = 1
	c := newTestCrawler(t, stub, &recordingSleeper{})

	jobs, err := c.Search(context.Background(), domain.SearchQuery{MaxPages: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"Job x1", "Job x2", "Job x3"}, titles(jobs))
	assert.Equal(t, []string{"x1", "x2", "x2", "x3"}, stub.detailHits)
}

func TestSearchSkipsBadListing(t *testing.T) {
	stub := newStub(ids("a", 10))
	stub.broken["a03"] = true
	c := newTestCrawler(t, stub, &recordingSleeper{})

	jobs, err := c.Search(context.Background(), domain.SearchQuery{MaxPages: 1})
	require.NoError(t, err)

	assert.Len(t, jobs, 9)
	assert.NotContains(t, titles(jobs), "Job a03")
	assert.Len(t, stub.detailHits, 10)
}

func TestSearchStopsWhenSearchPageBlocked(t *testing.T) {
	stub := newStub(ids("a", 2), ids("b", 2), ids("c", 2))
	stub.blockedSearch = 1
	c := newTestCrawler(t, stub, &recordingSleeper{})

	jobs, err := c.Search(context.Background(), domain.SearchQuery{MaxPages: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"Job a00", "Job a01"}, titles(jobs))
	// page 1 tried once plus one retry, page 2 never requested
	assert.Equal(t, []int{0, 1, 1}, stub.searchHits)
}

func TestSearchSkipsCardsWithoutID(t *testing.T) {
	stub := newStub([]string{"a1", "", "a2"})
	c := newTestCrawler(t, stub, &recordingSleeper{})

	jobs, err := c.Search(context.Background(), domain.SearchQuery{MaxPages: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"Job a1", "Job a2"}, titles(jobs))
}

func TestSearchCancelledReturnsPartial(t *testing.T) {
	stub := newStub(ids("a", 2), ids("b", 2))
	c := newTestCrawler(t, stub, &recordingSleeper{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var pages []int
	var got []*domain.Job
	err := c.SearchWithCallback(ctx, domain.SearchQuery{MaxPages: 2}, func(page int, jobs []*domain.Job) error {
		pages = append(pages, page)
		got = append(got, jobs...)
		cancel()
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []int{0}, pages)
	assert.Len(t, got, 2)
	assert.Equal(t, []int{0}, stub.searchHits)
}

// cancelOnSecondPage cancels the run when page two of the search is requested
type cancelOnSecondPage struct {
	inner  fetcher.Transport
	cancel context.CancelFunc
}

func (t *cancelOnSecondPage) Get(ctx context.Context, rawURL string, header http.Header) (*fetcher.Response, error) {
	if strings.Contains(rawURL, "start=10") {
		t.cancel()
		return nil, ctx.Err()
	}
	return t.inner.Get(ctx, rawURL, header)
}

func TestSearchCancelledWithoutRetriesReturnsPartial(t *testing.T) {
	stub := newStub(ids("a", 2), ids("b", 2))
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tr := &cancelOnSecondPage{inner: fetcher.NewHTTPTransport(5 * time.Second), cancel: cancel}
	f, err := fetcher.New(tr, blocker.NewDetector(), fetcher.Config{BaseURL: srv.URL, UserAgent: "test"}, logger)
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Retry = fetcher.RetryPolicy{MaxRetries: 0}
	sleeper := &recordingSleeper{}
	c := NewCrawler(f, extractor.New(nil, logger), cfg, logger, WithSleeper(sleeper))

	jobs, err := c.Search(ctx, domain.SearchQuery{MaxPages: 2})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"Job a00", "Job a01"}, titles(jobs))
}

func TestSearchRejectsZeroPages(t *testing.T) {
	c := newTestCrawler(t, newStub(), &recordingSleeper{})

	_, err := c.Search(context.Background(), domain.SearchQuery{MaxPages: 0})
	assert.Error(t, err)
}

func TestSearchRequestParams(t *testing.T) {
	c := NewCrawler(nil, nil, Config{}, nil)
	req := c.searchRequest(domain.SearchQuery{Position: "web developer", Location: "San Francisco"}, 3)

	assert.Equal(t, "/jobs", req.URL())
	assert.Equal(t, []fetcher.Param{
		{Name: "q", Value: "web developer"},
		{Name: "l", Value: "San Francisco"},
		{Name: "sort", Value: "date"},
		{Name: "start", Value: "30"},
	}, req.Params())
}

func TestParseListings(t *testing.T) {
	doc := `<div class="job_seen_beacon" data-jk="one"></div>
<div class="job_seen_beacon"><a data-jk="two">x</a></div>
<div class="job_seen_beacon" data-jk="one"></div>
<div class="job_seen_beacon"></div>
<div class="other" data-jk="three"></div>`

	page, err := parseListings(doc, ListingSelector, ListingIDAttr)
	require.NoError(t, err)

	assert.Equal(t, 4, page.Cards)
	assert.Equal(t, []string{"one", "two"}, page.IDs)
}
