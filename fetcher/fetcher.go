package fetcher

import (
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
	"github.com/sirupsen/logrus"

	"github.com/leadsift/leadsift/model"
	Logger "github.com/leadsift/leadsift/utils/log"
)

// postIdRe pulls the short stable id out of a reddit permalink, i.e. the path
// segment right after "comments/".
var postIdRe = regexp.MustCompile(`comments/([a-z0-9]+)`)

// RedditFetcher retrieves recent posts for a topic from reddit's syndication
// endpoint, falling back across mirrors when one is blocking or down.
type RedditFetcher struct {
	// Ordered mirror base urls, e.g. https://www.reddit.com. Tried in turn.
	Mirrors []string
	// Per-mirror request timeout in seconds.
	MirrorTimeoutSeconds int

	Client HttpClient
}

func NewRedditFetcher(mirrors []string, mirrorTimeoutSeconds int) *RedditFetcher {
	return &RedditFetcher{
		Mirrors:              mirrors,
		MirrorTimeoutSeconds: mirrorTimeoutSeconds,
		Client:               HttpClient{},
	}
}

// FetchTopic returns the recent posts of one subreddit. A successful fetch
// with zero entries is a valid "no new posts" result, not an error. On
// failure the error from the last mirror attempted is returned.
func (f *RedditFetcher) FetchTopic(topic string) ([]model.ContentItem, error) {
	var lastErr error
	for _, mirror := range f.Mirrors {
		items, err := f.fetchFromMirror(mirror, topic)
		if err == nil {
			return items, nil
		}
		lastErr = err
		Logger.Log.WithFields(logrus.Fields{"topic": topic, "mirror": mirror}).
			Warn("feed mirror failed, trying next: ", err)
	}
	return nil, lastErr
}

// FetchTopicsJoined fetches several subreddits in a single request using
// reddit's multi listing (r/a+b+c). Each item's Topic comes from the entry's
// category so callers can still route per subreddit.
func (f *RedditFetcher) FetchTopicsJoined(topics []string) ([]model.ContentItem, error) {
	return f.FetchTopic(strings.Join(topics, "+"))
}

func (f *RedditFetcher) fetchFromMirror(mirror string, topic string) ([]model.ContentItem, error) {
	uri := strings.TrimSuffix(mirror, "/") + "/r/" + topic + "/new.rss"
	resp, err := f.Client.GetWithin(uri, f.MirrorTimeoutSeconds)
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, Topic: topic, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, classifyStatus(topic, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Kind: ErrNetwork, Topic: topic, Err: err}
	}

	// A blocking mirror answers 200 with an html challenge page instead of a
	// feed. Treat it as a parse failure so the caller moves on to the next
	// mirror.
	if isChallengePage(body) {
		return nil, &FetchError{Kind: ErrParse, Topic: topic}
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, &FetchError{Kind: ErrParse, Topic: topic, Err: err}
	}

	return f.itemsFromFeed(feed, topic), nil
}

func (f *RedditFetcher) itemsFromFeed(feed *gofeed.Feed, topic string) []model.ContentItem {
	items := []model.ContentItem{}
	for _, entry := range feed.Items {
		item, ok := contentItemFromEntry(entry, topic)
		if !ok {
			// Incomplete entries are dropped instead of half-filled leads
			// entering the pipeline.
			Logger.Log.WithFields(logrus.Fields{"topic": topic, "link": entry.Link}).
				Info("skipping feed entry with missing fields")
			continue
		}
		items = append(items, item)
	}
	return items
}

func contentItemFromEntry(entry *gofeed.Item, topic string) (model.ContentItem, bool) {
	externalId := ExtractPostId(entry.Link)
	author := authorName(entry)
	postedAt := entryTime(entry)

	if externalId == "" || entry.Title == "" || author == "" || postedAt.IsZero() {
		return model.ContentItem{}, false
	}

	entryTopic := topic
	if len(entry.Categories) > 0 && entry.Categories[0] != "" {
		entryTopic = entry.Categories[0]
	}

	return model.ContentItem{
		ExternalId: externalId,
		Title:      entry.Title,
		Body:       StripMarkup(entry.Content),
		Url:        entry.Link,
		Author:     author,
		Topic:      entryTopic,
		CreatedAt:  postedAt,
	}, true
}

// ExtractPostId derives the short stable post id from the permalink path
// segment following "comments/". Returns "" when the link has no such segment.
func ExtractPostId(link string) string {
	m := postIdRe.FindStringSubmatch(link)
	if len(m) != 2 {
		return ""
	}
	return m[1]
}

func authorName(entry *gofeed.Item) string {
	if entry.Author == nil {
		return ""
	}
	return strings.TrimPrefix(entry.Author.Name, "/u/")
}

func entryTime(entry *gofeed.Item) time.Time {
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.Updated != "" {
		if t, err := dateparse.ParseAny(entry.Updated); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StripMarkup flattens the html body of a feed entry to plain text.
func StripMarkup(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func isChallengePage(body []byte) bool {
	head := strings.ToLower(string(body[:min(len(body), 512)]))
	return strings.Contains(head, "<!doctype html") || strings.Contains(head, "<html")
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
