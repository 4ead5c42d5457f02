package fetcher

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadsift/leadsift/model"
)

const demoFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>newest submissions : demo</title>
  <entry>
    <author><name>/u/founder42</name><uri>https://www.reddit.com/user/founder42</uri></author>
    <category term="demo" label="r/demo"/>
    <content type="html">&lt;!-- SC_OFF --&gt;&lt;div class="md"&gt;&lt;p&gt;Looking to hire a dev for my crm&lt;/p&gt;&lt;/div&gt;&lt;!-- SC_ON --&gt;</content>
    <id>t3_abc123</id>
    <link href="https://www.reddit.com/r/demo/comments/abc123/hiring_a_dev/"/>
    <updated>2024-01-15T10:30:00+00:00</updated>
    <title>Hiring a dev</title>
  </entry>
  <entry>
    <category term="demo" label="r/demo"/>
    <content type="html">&lt;p&gt;no author on this one&lt;/p&gt;</content>
    <id>t3_noauthor</id>
    <link href="https://www.reddit.com/r/demo/comments/nope123/orphan/"/>
    <updated>2024-01-15T10:31:00+00:00</updated>
    <title>Orphan entry</title>
  </entry>
</feed>`

func feedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchTopicParsesFeed(t *testing.T) {
	srv := feedServer(t, http.StatusOK, demoFeed)
	f := NewRedditFetcher([]string{srv.URL}, 5)

	items, err := f.FetchTopic("demo")
	require.NoError(t, err)
	// The authorless entry is dropped.
	require.Len(t, items, 1)

	want := model.ContentItem{
		ExternalId: "abc123",
		Title:      "Hiring a dev",
		Body:       "Looking to hire a dev for my crm",
		Url:        "https://www.reddit.com/r/demo/comments/abc123/hiring_a_dev/",
		Author:     "founder42",
		Topic:      "demo",
		CreatedAt:  time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
	}
	if diff := cmp.Diff(want, items[0]); diff != "" {
		t.Errorf("parsed item mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchTopicEmptyFeedIsNotAnError(t *testing.T) {
	empty := `<?xml version="1.0" encoding="UTF-8"?><feed xmlns="http://www.w3.org/2005/Atom"><title>empty</title></feed>`
	srv := feedServer(t, http.StatusOK, empty)
	f := NewRedditFetcher([]string{srv.URL}, 5)

	items, err := f.FetchTopic("demo")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestFetchTopicClassifiesStatuses(t *testing.T) {
	cases := map[int]ErrorKind{
		http.StatusTooManyRequests:     ErrRateLimited,
		http.StatusForbidden:           ErrForbidden,
		http.StatusInternalServerError: ErrServer,
		http.StatusNotFound:            ErrNetwork,
	}
	for status, wantKind := range cases {
		srv := feedServer(t, status, "")
		f := NewRedditFetcher([]string{srv.URL}, 5)

		_, err := f.FetchTopic("demo")
		require.Error(t, err)

		var fe *FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, wantKind, fe.Kind, "status %d", status)
		assert.Equal(t, status, fe.StatusCode)
		assert.Equal(t, "demo", fe.Topic)
	}
}

func TestFetchTopicFallsBackAcrossMirrors(t *testing.T) {
	blocking := feedServer(t, http.StatusForbidden, "")
	healthy := feedServer(t, http.StatusOK, demoFeed)
	f := NewRedditFetcher([]string{blocking.URL, healthy.URL}, 5)

	items, err := f.FetchTopic("demo")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestFetchTopicDetectsChallengePage(t *testing.T) {
	challenge := `<!DOCTYPE html><html><head><title>Just a moment...</title></head><body></body></html>`
	srv := feedServer(t, http.StatusOK, challenge)
	f := NewRedditFetcher([]string{srv.URL}, 5)

	_, err := f.FetchTopic("demo")
	require.Error(t, err)

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, ErrParse, fe.Kind)
}

func TestFetchTopicsJoined(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/r/demo+golang/new.rss")
		w.Write([]byte(demoFeed))
	}))
	defer srv.Close()

	f := NewRedditFetcher([]string{srv.URL}, 5)
	items, err := f.FetchTopicsJoined([]string{"demo", "golang"})
	require.NoError(t, err)
	// Topic comes from the entry category, not the joined segment.
	assert.Equal(t, "demo", items[0].Topic)
}

func TestExtractPostId(t *testing.T) {
	assert.Equal(t, "abc123", ExtractPostId("https://www.reddit.com/r/demo/comments/abc123/hiring_a_dev/"))
	assert.Equal(t, "1f9x2k", ExtractPostId("https://old.reddit.com/r/a/comments/1f9x2k/x"))
	assert.Equal(t, "", ExtractPostId("https://www.reddit.com/r/demo/"))
	assert.Equal(t, "", ExtractPostId(""))
}

func TestStripMarkup(t *testing.T) {
	assert.Equal(t, "Looking to hire a dev",
		StripMarkup(`<div class="md"><p>Looking   to hire</p> <p>a dev</p></div>`))
	assert.Equal(t, "plain", StripMarkup("plain"))
	assert.Equal(t, "", StripMarkup(""))
}
