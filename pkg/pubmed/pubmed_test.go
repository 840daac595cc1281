package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const esearchPayload = `{
	"esearchresult": {
		"count": "284",
		"idlist": ["22422826", "24423323"]
	}
}`

const esummaryPayload = `{
	"result": {
		"uids": ["22422826", "24423323"],
		"22422826": {
			"title": "Anti-Mullerian hormone as a predictor of natural menopause",
			"authors": [{"name": "Freeman EW"}, {"name": "Sammel MD"}],
			"fulljournalname": "Journal of Clinical Endocrinology & Metabolism",
			"pubdate": "2012 Apr",
			"elocationid": "doi: 10.1210/jc.2011-1951"
		},
		"24423323": {
			"title": "AMH and ovarian reserve",
			"authors": [{"name": "Broer SL"}],
			"fulljournalname": "Journal of Clinical Endocrinology & Metabolism",
			"pubdate": "2014 Jan",
			"elocationid": "doi: 10.1210/jc.2013-4204"
		}
	}
}`

const efetchPayload = `<?xml version="1.0"?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <Article>
        <Journal>
          <JournalIssue>
            <PubDate><Year>2012</Year><Month>Apr</Month></PubDate>
          </JournalIssue>
          <Title>Journal of Clinical Endocrinology and Metabolism</Title>
        </Journal>
        <ArticleTitle>Anti-Mullerian hormone as a predictor of natural menopause</ArticleTitle>
        <Abstract>
          <AbstractText Label="CONTEXT">AMH is a marker of ovarian reserve.</AbstractText>
          <AbstractText Label="RESULTS">AMH predicted time to menopause.</AbstractText>
        </Abstract>
        <AuthorList>
          <Author><LastName>Freeman</LastName><ForeName>Ellen W</ForeName></Author>
          <Author><LastName>Sammel</LastName><ForeName>Mary D</ForeName></Author>
        </AuthorList>
      </Article>
      <KeywordList><Keyword>AMH</Keyword><Keyword>menopause</Keyword></KeywordList>
    </MedlineCitation>
    <PubmedData>
      <ArticleIdList>
        <ArticleId IdType="pubmed">22422826</ArticleId>
        <ArticleId IdType="doi">10.1210/jc.2011-1951</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			if r.URL.Query().Get("db") != "pubmed" {
				http.Error(w, "bad db", http.StatusBadRequest)
				return
			}
			w.Write([]byte(esearchPayload))
		case "/esummary.fcgi":
			w.Write([]byte(esummaryPayload))
		case "/efetch.fcgi":
			w.Write([]byte(efetchPayload))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL})
}

func TestSearch(t *testing.T) {
	client := newTestClient(t)

	result, err := client.Search(context.Background(), "AMH menopause", 10)
	if err != nil {
		t.Fatalf("Search error: %v", err)
	}
	if result.Count != 284 {
		t.Fatalf("Count = %d, want 284", result.Count)
	}
	if len(result.PMIDs) != 2 || result.PMIDs[0] != "22422826" {
		t.Fatalf("PMIDs = %v", result.PMIDs)
	}

	if _, err := client.Search(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSummaries(t *testing.T) {
	client := newTestClient(t)

	summaries, err := client.Summaries(context.Background(), []string{"22422826", "24423323"})
	if err != nil {
		t.Fatalf("Summaries error: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %#v", summaries)
	}
	first := summaries[0]
	if first.PMID != "22422826" || first.Journal == "" || first.PubDate != "2012 Apr" {
		t.Fatalf("first summary = %#v", first)
	}
	if first.DOI != "10.1210/jc.2011-1951" {
		t.Fatalf("DOI = %q, doi prefix not stripped", first.DOI)
	}
	if len(first.Authors) != 2 || first.Authors[0] != "Freeman EW" {
		t.Fatalf("Authors = %v", first.Authors)
	}

	none, err := client.Summaries(context.Background(), nil)
	if err != nil || none != nil {
		t.Fatalf("empty pmids: %v %v", none, err)
	}
}

func TestFetch(t *testing.T) {
	client := newTestClient(t)

	article, err := client.Fetch(context.Background(), "22422826")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if article.Title != "Anti-Mullerian hormone as a predictor of natural menopause" {
		t.Fatalf("Title = %q", article.Title)
	}
	if article.Abstract != "CONTEXT: AMH is a marker of ovarian reserve.\n\nRESULTS: AMH predicted time to menopause." {
		t.Fatalf("Abstract = %q", article.Abstract)
	}
	if len(article.Authors) != 2 || article.Authors[0] != "Ellen W Freeman" {
		t.Fatalf("Authors = %v", article.Authors)
	}
	if article.DOI != "10.1210/jc.2011-1951" || article.PubDate != "2012 Apr" {
		t.Fatalf("article = %#v", article)
	}
	if len(article.Keywords) != 2 {
		t.Fatalf("Keywords = %v", article.Keywords)
	}
}

func TestErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL})
	if _, err := client.Search(context.Background(), "anything", 5); err == nil {
		t.Fatal("expected error for non-200 status")
	}
}
