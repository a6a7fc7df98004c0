package provider

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreateAndStartBracket(t *testing.T) {
	var gotPaths []string
	var participantNames []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("api_key") != "secret" {
			t.Errorf("api key not forwarded: %q", r.Form.Get("api_key"))
		}
		gotPaths = append(gotPaths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/tournaments.json":
			if r.Form.Get("tournament[url]") != "spring-cup_7" {
				t.Errorf("unexpected slug %q", r.Form.Get("tournament[url]"))
			}
			w.Write([]byte(`{"tournament":{"id":5521,"url":"spring-cup_7"}}`))
		case "/tournaments/spring-cup_7/participants/bulk_add.json":
			participantNames = r.Form["participants[][name]"]
			w.Write([]byte(`[]`))
		case "/tournaments/spring-cup_7/start.json":
			w.Write([]byte(`{}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewChallongeClient(server.URL)
	ref, err := client.CreateAndStartBracket(context.Background(), "secret", []string{"Alice", "Bob"}, CreateOptions{
		Name:    "Spring Cup",
		URLSlug: "spring-cup_7",
	})
	if err != nil {
		t.Fatalf("create and start: %v", err)
	}
	if ref != "spring-cup_7" {
		t.Errorf("unexpected bracket ref %q", ref)
	}
	want := []string{
		"POST /tournaments.json",
		"POST /tournaments/spring-cup_7/participants/bulk_add.json",
		"POST /tournaments/spring-cup_7/start.json",
	}
	if strings.Join(gotPaths, ",") != strings.Join(want, ",") {
		t.Errorf("unexpected call sequence: %v", gotPaths)
	}
	if len(participantNames) != 2 || participantNames[0] != "Alice" {
		t.Errorf("participants not bulk-added: %v", participantNames)
	}
}

func TestFetchMatches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tournaments/spring-cup_7/matches.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("api_key") != "secret" {
			t.Errorf("api key missing from query")
		}
		w.Write([]byte(`[
			{"match":{"id":101,"player1_id":11,"player2_id":12,"state":"complete","winner_id":11,"scores_csv":"2-1"}},
			{"match":{"id":102,"player1_id":null,"player2_id":null,"state":"pending","winner_id":null,"scores_csv":null}}
		]`))
	}))
	defer server.Close()

	client := NewChallongeClient(server.URL)
	matches, err := client.FetchMatches(context.Background(), "secret", "spring-cup_7")
	if err != nil {
		t.Fatalf("fetch matches: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != 101 || matches[0].State != "complete" || matches[0].ScoreCSV != "2-1" {
		t.Errorf("unexpected first match: %+v", matches[0])
	}
	if matches[0].WinnerID == nil || *matches[0].WinnerID != 11 {
		t.Errorf("winner not decoded: %+v", matches[0].WinnerID)
	}
	if matches[1].Player1ID != nil || matches[1].ScoreCSV != "" {
		t.Errorf("null fields should stay empty: %+v", matches[1])
	}
}

func TestFetchStandingsOrdering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"participant":{"id":12,"name":"Bob","final_rank":2,"seed":1,"misc":null}},
			{"participant":{"id":11,"name":"Alice","final_rank":1,"seed":2,"misc":"mvp"}},
			{"participant":{"id":13,"name":"Carl","final_rank":null,"seed":3,"misc":null}}
		]`))
	}))
	defer server.Close()

	client := NewChallongeClient(server.URL)
	entries, err := client.FetchStandings(context.Background(), "secret", "spring-cup_7")
	if err != nil {
		t.Fatalf("fetch standings: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name != "Alice" || entries[0].Rank != 1 || entries[0].Misc != "mvp" {
		t.Errorf("unexpected leader: %+v", entries[0])
	}
	// Без final_rank участник ранжируется по посеву.
	if entries[2].Name != "Carl" || entries[2].Rank != 3 {
		t.Errorf("seed fallback broken: %+v", entries[2])
	}
}

func TestSubmitScoreSendsMatchParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if r.URL.Path != "/tournaments/spring-cup_7/matches/101.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.Form.Get("match[scores_csv]") != "1-2" || r.Form.Get("match[winner_id]") != "12" {
			t.Errorf("unexpected form: %v", r.Form)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewChallongeClient(server.URL)
	if err := client.SubmitScore(context.Background(), "secret", "spring-cup_7", 101, "1-2", 12); err != nil {
		t.Fatalf("submit score: %v", err)
	}
}

func TestErrorKindMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
		detail string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"errors":["Invalid API key"]}`, ErrInvalidCredential, "Invalid API key"},
		{"not found", http.StatusNotFound, `{"errors":["Tournament not found"]}`, ErrNotFound, "Tournament not found"},
		{"validation", http.StatusUnprocessableEntity, `{"errors":["Name is already taken","URL is invalid"]}`, ErrValidationFailed, "Name is already taken; URL is invalid"},
		{"bad request", http.StatusBadRequest, `nope`, ErrValidationFailed, "nope"},
		{"server error", http.StatusBadGateway, `oops`, ErrUnavailable, "oops"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client := NewChallongeClient(server.URL)
			_, err := client.FetchMatches(context.Background(), "secret", "spring-cup_7")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var perr *Error
			if !errors.As(err, &perr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if !strings.Contains(perr.Detail, tc.detail) {
				t.Errorf("detail %q lost, got %q", tc.detail, perr.Detail)
			}
		})
	}
}

func TestTransportFailureIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // соединение будет отклонено

	client := NewChallongeClient(server.URL)
	_, err := client.FetchMatches(context.Background(), "secret", "spring-cup_7")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
