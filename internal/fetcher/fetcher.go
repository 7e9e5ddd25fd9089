package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/travel-insight/backend/internal/dataset"
)

// FetchResult contains the travel records extracted from one listing page
type FetchResult struct {
	URL        string
	StatusCode int
	Records    []dataset.Record
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Fetch downloads and parses a travelbook listing page
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:        pageURL,
		StatusCode: resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	records, err := ParseListing(resp.Body, pageURL)
	if err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}
	result.Records = records
	return result, nil
}

var (
	departPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}) 出发`)
	daysPattern   = regexp.MustCompile(`共(\d+)天`)
	costPattern   = regexp.MustCompile(`人均(\d+)元`)
	peoplePattern = regexp.MustCompile(`(独自一人|三五好友|亲子|家庭|情侣|闺蜜|学生)`)
)

// ErrNoListing is returned when the page has no strategy list, which is
// what the site serves past the last page.
var ErrNoListing = fmt.Errorf("strategy list not found")

// ParseListing extracts one record per ul.b_strategy_list > li.list_item.
// Relative links are resolved against pageURL.
func ParseListing(body io.Reader, pageURL string) ([]dataset.Record, error) {
	doc, err := html.Parse(body)
	if err != nil {
		return nil, err
	}

	list := findFirst(doc, "ul", "b_strategy_list")
	if list == nil {
		return nil, ErrNoListing
	}

	var records []dataset.Record
	for _, li := range findAll(list, "li", "list_item") {
		records = append(records, parseItem(li, pageURL))
	}
	return records, nil
}

func parseItem(li *html.Node, pageURL string) dataset.Record {
	var rec dataset.Record

	if h2 := findFirst(li, "h2", "tit"); h2 != nil {
		if a := findFirst(h2, "a", ""); a != nil {
			rec.Title = strippedText(a)
			rec.Link = resolveLink(attr(a, "href"), pageURL)
		}
	}
	if author := findFirst(li, "span", "user_name"); author != nil {
		rec.Author = strippedText(author)
	}

	if intro := findFirst(li, "span", "intro"); intro != nil {
		text := strings.ReplaceAll(rawText(intro), "\u00a0", " ")
		if m := departPattern.FindStringSubmatch(text); m != nil {
			rec.DepartDate = m[1]
		}
		if m := daysPattern.FindStringSubmatch(text); m != nil {
			rec.Days, _ = dataset.ParseDays(m[1])
		}
		if m := costPattern.FindStringSubmatch(text); m != nil {
			rec.Cost, rec.HasCost = dataset.ParseCost(m[1])
		}
		if m := peoplePattern.FindStringSubmatch(text); m != nil {
			rec.People = m[1]
		}
		if trip := findFirst(intro, "span", "trip"); trip != nil {
			rec.Theme = strings.TrimSpace(strings.ReplaceAll(strippedText(trip), "\u00a0", " "))
		}
	}

	rec.Views = counter(li, "icon_view")
	rec.Likes = counter(li, "icon_love")
	rec.Comments = counter(li, "icon_comment")

	for _, p := range findAll(li, "p", "places") {
		text := strippedText(p)
		switch {
		case rec.Destination == "" && strings.Contains(text, "途经"):
			rec.Destination = strings.TrimSpace(strings.TrimPrefix(text, "途经："))
		case rec.Itinerary == "" && strings.Contains(text, "行程"):
			rec.Itinerary = strings.TrimSpace(strings.TrimPrefix(text, "行程："))
		}
	}

	return rec
}

// counter reads the number held in the second inner span of span.<class>.
func counter(li *html.Node, class string) int64 {
	icon := findFirst(li, "span", class)
	if icon == nil {
		return 0
	}
	spans := findAll(icon, "span", "")
	if len(spans) < 2 {
		return 0
	}
	n, _ := dataset.ParseCount(strippedText(spans[1]))
	return n
}

// resolveLink handles relative URLs
func resolveLink(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "http") {
		return href
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func hasClass(n *html.Node, class string) bool {
	if class == "" {
		return true
	}
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// findFirst returns the first descendant element with the given tag and
// class (any class when class is empty).
func findFirst(n *html.Node, tag, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag && hasClass(c, class) {
			return c
		}
		if found := findFirst(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag, class string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.Data == tag && hasClass(c, class) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// rawText concatenates all descendant text nodes as they are.
func rawText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// strippedText concatenates descendant text nodes, each trimmed.
func strippedText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
