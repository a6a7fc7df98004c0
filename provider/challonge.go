package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Dosada05/bracket-relay/models"
)

// challongeClient реализует BracketProvider поверх Challonge v1 REST API.
type challongeClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewChallongeClient(baseURL string) BracketProvider {
	return &challongeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type challongeTournamentWrapper struct {
	Tournament struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	} `json:"tournament"`
}

type challongeMatchWrapper struct {
	Match struct {
		ID        int64   `json:"id"`
		Player1ID *int64  `json:"player1_id"`
		Player2ID *int64  `json:"player2_id"`
		State     string  `json:"state"`
		WinnerID  *int64  `json:"winner_id"`
		ScoresCSV *string `json:"scores_csv"`
	} `json:"match"`
}

type challongeParticipantWrapper struct {
	Participant struct {
		ID        int64   `json:"id"`
		Name      string  `json:"name"`
		FinalRank *int    `json:"final_rank"`
		Seed      int     `json:"seed"`
		Misc      *string `json:"misc"`
	} `json:"participant"`
}

func (c *challongeClient) CreateAndStartBracket(ctx context.Context, apiKey string, players []string, opts CreateOptions) (string, error) {
	params := url.Values{}
	params.Set("tournament[name]", opts.Name)
	params.Set("tournament[url]", opts.URLSlug)
	if opts.BracketType != "" {
		params.Set("tournament[tournament_type]", opts.BracketType)
	}

	var created challongeTournamentWrapper
	if err := c.do(ctx, apiKey, http.MethodPost, "/tournaments.json", params, &created); err != nil {
		return "", err
	}
	bracketRef := created.Tournament.URL
	if bracketRef == "" {
		bracketRef = strconv.FormatInt(created.Tournament.ID, 10)
	}

	bulk := url.Values{}
	for _, name := range players {
		bulk.Add("participants[][name]", name)
	}
	path := fmt.Sprintf("/tournaments/%s/participants/bulk_add.json", url.PathEscape(bracketRef))
	if err := c.do(ctx, apiKey, http.MethodPost, path, bulk, nil); err != nil {
		return "", err
	}

	startPath := fmt.Sprintf("/tournaments/%s/start.json", url.PathEscape(bracketRef))
	if err := c.do(ctx, apiKey, http.MethodPost, startPath, url.Values{}, nil); err != nil {
		return "", err
	}

	return bracketRef, nil
}

func (c *challongeClient) FetchMatches(ctx context.Context, apiKey, bracketRef string) ([]Match, error) {
	path := fmt.Sprintf("/tournaments/%s/matches.json", url.PathEscape(bracketRef))

	var wrappers []challongeMatchWrapper
	if err := c.do(ctx, apiKey, http.MethodGet, path, nil, &wrappers); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(wrappers))
	for _, w := range wrappers {
		m := Match{
			ID:        w.Match.ID,
			Player1ID: w.Match.Player1ID,
			Player2ID: w.Match.Player2ID,
			State:     w.Match.State,
			WinnerID:  w.Match.WinnerID,
		}
		if w.Match.ScoresCSV != nil {
			m.ScoreCSV = *w.Match.ScoresCSV
		}
		matches = append(matches, m)
	}
	return matches, nil
}

func (c *challongeClient) FetchStandings(ctx context.Context, apiKey, bracketRef string) ([]models.RankedEntry, error) {
	path := fmt.Sprintf("/tournaments/%s/participants.json", url.PathEscape(bracketRef))

	var wrappers []challongeParticipantWrapper
	if err := c.do(ctx, apiKey, http.MethodGet, path, nil, &wrappers); err != nil {
		return nil, err
	}

	entries := make([]models.RankedEntry, 0, len(wrappers))
	for _, w := range wrappers {
		entry := models.RankedEntry{
			ID:   w.Participant.ID,
			Name: w.Participant.Name,
		}
		if w.Participant.FinalRank != nil {
			entry.Rank = *w.Participant.FinalRank
		} else {
			entry.Rank = w.Participant.Seed
		}
		if w.Participant.Misc != nil {
			entry.Misc = *w.Participant.Misc
		}
		entries = append(entries, entry)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Rank < entries[j].Rank })
	return entries, nil
}

func (c *challongeClient) SubmitScore(ctx context.Context, apiKey, bracketRef string, matchID int64, scoreCSV string, winnerID int64) error {
	params := url.Values{}
	params.Set("match[scores_csv]", scoreCSV)
	params.Set("match[winner_id]", strconv.FormatInt(winnerID, 10))

	path := fmt.Sprintf("/tournaments/%s/matches/%d.json", url.PathEscape(bracketRef), matchID)
	return c.do(ctx, apiKey, http.MethodPut, path, params, nil)
}

// do выполняет один запрос и нормализует любой его сбой в *Error.
func (c *challongeClient) do(ctx context.Context, apiKey, method, path string, params url.Values, out interface{}) error {
	endpoint := c.baseURL + path

	var body io.Reader
	if method == http.MethodGet {
		query := url.Values{}
		query.Set("api_key", apiKey)
		endpoint += "?" + query.Encode()
	} else {
		if params == nil {
			params = url.Values{}
		}
		params.Set("api_key", apiKey)
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return &Error{Kind: ErrUnavailable, Detail: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: ErrUnavailable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &Error{Kind: ErrUnavailable, Detail: err.Error()}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return &Error{Kind: ErrUnavailable, Detail: fmt.Sprintf("malformed provider response: %v", err)}
		}
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return &Error{Kind: ErrInvalidCredential, Detail: extractDetail(raw)}
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: ErrNotFound, Detail: extractDetail(raw)}
	case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
		return &Error{Kind: ErrValidationFailed, Detail: extractDetail(raw)}
	default:
		return &Error{Kind: ErrUnavailable, Detail: fmt.Sprintf("status %d: %s", resp.StatusCode, extractDetail(raw))}
	}
}

// extractDetail вынимает массив errors из тела ответа провайдера; если тело
// не в ожидаемом формате, возвращает его усечённым как есть.
func extractDetail(raw []byte) string {
	var parsed struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Errors) > 0 {
		return strings.Join(parsed.Errors, "; ")
	}
	detail := strings.TrimSpace(string(raw))
	if len(detail) > 512 {
		detail = detail[:512]
	}
	return detail
}
