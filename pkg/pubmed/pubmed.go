// Package pubmed is a client for the NCBI E-utilities API, backing the
// literature search tools offered to the model.
package pubmed

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// Options configure a Client.
type Options struct {
	// APIKey is the optional NCBI key for higher rate limits.
	APIKey string

	// BaseURL overrides the E-utilities endpoint, mainly for tests.
	BaseURL string

	HTTPClient *http.Client
}

// Client talks to the esearch, esummary and efetch endpoints.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
}

// NewClient builds a Client with sane defaults; all options are optional.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{http: httpClient, baseURL: baseURL, apiKey: opts.APIKey}
}

// SearchResult is the outcome of an esearch query.
type SearchResult struct {
	Count int
	PMIDs []string
	Query string
}

// Summary is one esummary record.
type Summary struct {
	PMID    string
	Title   string
	Authors []string
	Journal string
	PubDate string
	DOI     string
}

// Article is a full efetch record including the abstract.
type Article struct {
	PMID     string
	Title    string
	Abstract string
	Authors  []string
	Journal  string
	PubDate  string
	DOI      string
	Keywords []string
}

// Search queries PubMed and returns the matching PMIDs.
func (c *Client) Search(ctx context.Context, query string, maxResults int) (*SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("pubmed: query is required")
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmax", strconv.Itoa(maxResults))
	params.Set("retmode", "json")

	body, err := c.get(ctx, "/esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Result struct {
			Count  string   `json:"count"`
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("pubmed: decode search response: %w", err)
	}
	count, err := strconv.Atoi(payload.Result.Count)
	if err != nil {
		return nil, fmt.Errorf("pubmed: search count %q: %w", payload.Result.Count, err)
	}

	return &SearchResult{Count: count, PMIDs: payload.Result.IDList, Query: query}, nil
}

// Summaries fetches esummary records for the given PMIDs, in input order.
func (c *Client) Summaries(ctx context.Context, pmids []string) ([]Summary, error) {
	if len(pmids) == 0 {
		return nil, nil
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "json")

	body, err := c.get(ctx, "/esummary.fcgi", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("pubmed: decode summary response: %w", err)
	}

	summaries := make([]Summary, 0, len(pmids))
	for _, pmid := range pmids {
		raw, ok := payload.Result[pmid]
		if !ok {
			continue
		}
		var record struct {
			Title   string `json:"title"`
			Authors []struct {
				Name string `json:"name"`
			} `json:"authors"`
			Journal     string `json:"fulljournalname"`
			PubDate     string `json:"pubdate"`
			ELocationID string `json:"elocationid"`
		}
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("pubmed: decode summary for %s: %w", pmid, err)
		}
		authors := make([]string, 0, len(record.Authors))
		for _, a := range record.Authors {
			authors = append(authors, a.Name)
		}
		summaries = append(summaries, Summary{
			PMID:    pmid,
			Title:   record.Title,
			Authors: authors,
			Journal: record.Journal,
			PubDate: record.PubDate,
			DOI:     strings.TrimPrefix(record.ELocationID, "doi: "),
		})
	}
	return summaries, nil
}

// Fetch retrieves the full record for one PMID, including the abstract.
func (c *Client) Fetch(ctx context.Context, pmid string) (*Article, error) {
	if strings.TrimSpace(pmid) == "" {
		return nil, errors.New("pubmed: pmid is required")
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("retmode", "xml")

	body, err := c.get(ctx, "/efetch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var payload efetchResponse
	if err := xml.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("pubmed: decode article %s: %w", pmid, err)
	}
	if len(payload.Articles) == 0 {
		return &Article{PMID: pmid}, nil
	}
	return payload.Articles[0].toArticle(pmid), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("pubmed: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pubmed: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed: %s: status %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("pubmed: %s: read body: %w", path, err)
	}
	return body, nil
}

type efetchResponse struct {
	Articles []efetchArticle `xml:"PubmedArticle"`
}

type efetchArticle struct {
	Citation struct {
		Article struct {
			Title    string `xml:"ArticleTitle"`
			Abstract struct {
				Sections []abstractSection `xml:"AbstractText"`
			} `xml:"Abstract"`
			Authors []struct {
				LastName string `xml:"LastName"`
				ForeName string `xml:"ForeName"`
			} `xml:"AuthorList>Author"`
			Journal struct {
				Title string `xml:"Title"`
				Issue struct {
					PubDate struct {
						Year  string `xml:"Year"`
						Month string `xml:"Month"`
						Day   string `xml:"Day"`
					} `xml:"PubDate"`
				} `xml:"JournalIssue"`
			} `xml:"Journal"`
		} `xml:"Article"`
		Keywords []string `xml:"KeywordList>Keyword"`
	} `xml:"MedlineCitation"`
	Data struct {
		IDs []struct {
			Type string `xml:"IdType,attr"`
			Text string `xml:",chardata"`
		} `xml:"ArticleIdList>ArticleId"`
	} `xml:"PubmedData"`
}

type abstractSection struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

func (a efetchArticle) toArticle(pmid string) *Article {
	out := &Article{
		PMID:     pmid,
		Title:    a.Citation.Article.Title,
		Journal:  a.Citation.Article.Journal.Title,
		Keywords: a.Citation.Keywords,
	}

	// Labeled abstract sections keep their label, matching the record as
	// PubMed renders it.
	parts := make([]string, 0, len(a.Citation.Article.Abstract.Sections))
	for _, section := range a.Citation.Article.Abstract.Sections {
		text := strings.TrimSpace(section.Text)
		if section.Label != "" {
			parts = append(parts, section.Label+": "+text)
		} else if text != "" {
			parts = append(parts, text)
		}
	}
	out.Abstract = strings.Join(parts, "\n\n")

	for _, author := range a.Citation.Article.Authors {
		if author.ForeName != "" && author.LastName != "" {
			out.Authors = append(out.Authors, author.ForeName+" "+author.LastName)
		}
	}

	date := a.Citation.Article.Journal.Issue.PubDate
	dateParts := make([]string, 0, 3)
	for _, part := range []string{date.Year, date.Month, date.Day} {
		if part != "" {
			dateParts = append(dateParts, part)
		}
	}
	out.PubDate = strings.Join(dateParts, " ")

	for _, id := range a.Data.IDs {
		if id.Type == "doi" {
			out.DOI = id.Text
		}
	}
	return out
}
