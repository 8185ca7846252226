package sheets

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extruline/report-bot/internal/domain/report"
)

var (
	testKeyOnce sync.Once
	testKeyPEM  string
)

// testPrivateKeyPEM generates one RSA key for the whole test binary.
func testPrivateKeyPEM(t *testing.T) string {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			t.Fatalf("generate rsa key: %v", err)
		}
		der, err := x509.MarshalPKCS8PrivateKey(key)
		if err != nil {
			t.Fatalf("marshal rsa key: %v", err)
		}
		testKeyPEM = string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}))
	})
	return testKeyPEM
}

func writeCredsFile(t *testing.T, tokenURI string) string {
	t.Helper()
	creds, err := json.Marshal(map[string]string{
		"client_email": "bot@project.iam.gserviceaccount.com",
		"private_key":  testPrivateKeyPEM(t),
		"token_uri":    tokenURI,
	})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, creds, 0o600))
	return path
}

// testEnv runs an httptest server standing in for both the OAuth token
// endpoint and the Sheets API, and a client pointed at it.
type testEnv struct {
	client     *Client
	tokenCalls int
}

func newTestEnv(t *testing.T, api http.HandlerFunc) *testEnv {
	t.Helper()
	env := &testEnv{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		env.tokenCalls++
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.FormValue("grant_type"))
		assert.NotEmpty(t, r.FormValue("assertion"))
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "test-token", "expires_in": 3600})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		api(w, r)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	tokens, err := NewTokenSource(writeCredsFile(t, srv.URL+"/token"), "")
	require.NoError(t, err)

	env.client = NewClient(srv.URL, "sheet-1", tokens, zerolog.Nop())
	return env
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func apiErrorBody(status int, message string) map[string]any {
	return map[string]any{"error": map[string]any{"code": status, "message": message}}
}

func decodeBody(t *testing.T, r *http.Request, into any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(r.Body).Decode(into))
}

func TestAppendStartStop(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Values [][]any `json:"values"`
	}
	var gotQuery map[string]string

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{
			"valueInputOption": r.URL.Query().Get("valueInputOption"),
			"insertDataOption": r.URL.Query().Get("insertDataOption"),
		}
		decodeBody(t, r, &gotBody)
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	rec := &report.Record{
		Date:        "15.08.2025",
		Time:        "09:50",
		Line:        3,
		Action:      report.ActionStop,
		Reason:      "Наладка",
		ZNP:         "D0825-0042",
		ScrapMeters: 12,
		Operator:    "42 (@ivanov)",
		SubmittedAt: time.Date(2025, time.August, 15, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.client.Append(context.Background(), report.FlowStartStop, rec))

	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/'Старт-Стоп'!A1:append", gotPath)
	assert.Equal(t, map[string]string{
		"valueInputOption": "USER_ENTERED",
		"insertDataOption": "INSERT_ROWS",
	}, gotQuery)

	require.Len(t, gotBody.Values, 1)
	assert.Equal(t, []any{
		"15.08.2025", "09:50", float64(3), "остановка",
		"Наладка", "D0825-0042", float64(12),
		"42 (@ivanov)", "2025-08-15 10:00:00", "",
	}, gotBody.Values[0])
}

func TestAppendDefect(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Values [][]any `json:"values"`
	}

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		decodeBody(t, r, &gotBody)
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	rec := &report.Record{
		Date:        "15.08.2025",
		Time:        "23:40",
		Line:        7,
		ZNP:         "L0725-0001",
		ScrapMeters: 35,
		DefectType:  "Царапина",
		Operator:    "42 (@ivanov)",
		SubmittedAt: time.Date(2025, time.August, 15, 23, 45, 0, 0, time.UTC),
	}
	require.NoError(t, env.client.Append(context.Background(), report.FlowDefect, rec))

	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/'Брак'!A1:append", gotPath)
	require.Len(t, gotBody.Values, 1)
	assert.Equal(t, []any{
		"15.08.2025", "23:40", float64(7), "L0725-0001", float64(35),
		"Царапина", "42 (@ivanov)", "2025-08-15 23:45:00", "",
	}, gotBody.Values[0])
}

func TestAppendRetriesTransientFailure(t *testing.T) {
	attempts := 0
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			writeJSON(w, http.StatusServiceUnavailable, apiErrorBody(503, "backend"))
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{})
	})
	env.client.retry.InitialDelay = time.Millisecond

	rec := &report.Record{
		Date: "15.08.2025", Time: "10:00", Line: 1,
		ZNP: "D0825-0001", Operator: "op",
		SubmittedAt: time.Now(),
	}
	require.NoError(t, env.client.Append(context.Background(), report.FlowDefect, rec))
	assert.Equal(t, 2, attempts)
}

func TestCancelLastMarksLatestRow(t *testing.T) {
	const operator = "42 (@ivanov)"
	var updatePath string
	var updateBody struct {
		Values [][]any `json:"values"`
	}

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sheet-1/values/'Старт-Стоп'!A2:J":
			writeJSON(w, http.StatusOK, valueRange{Values: [][]string{
				{"15.08.2025", "08:00", "1", "запуск", "", "D0825-0001", "0", operator, "2025-08-15 09:00:00", ""},
				{"15.08.2025", "08:30", "2", "запуск", "", "D0825-0003", "0", "7 (@petrov)", "2025-08-15 09:30:00", ""},
			}})
		case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/sheet-1/values/'Брак'!A2:I":
			writeJSON(w, http.StatusOK, valueRange{Values: [][]string{
				{"15.08.2025", "09:00", "3", "D0825-0002", "5", "Царапина", "7 (@petrov)", "2025-08-15 09:15:00", ""},
				{"15.08.2025", "09:30", "2", "D0825-0004", "8", "Пятно", operator, "2025-08-15 10:00:00", ""},
				{"15.08.2025", "10:30", "2", "D0825-0005", "3", "Пятно", operator, "2025-08-15 11:00:00", "Отменено"},
			}})
		case r.Method == http.MethodPut:
			updatePath = r.URL.Path
			decodeBody(t, r, &updateBody)
			writeJSON(w, http.StatusOK, map[string]any{})
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			writeJSON(w, http.StatusNotFound, apiErrorBody(404, "not found"))
		}
	})

	found, err := env.client.CancelLast(context.Background(), operator)
	require.NoError(t, err)
	assert.True(t, found)

	// The latest non-cancelled row for the operator is the defect-log row
	// submitted at 10:00, sheet row 3; the 11:00 row is already cancelled.
	assert.Equal(t, "/v4/spreadsheets/sheet-1/values/'Брак'!I3", updatePath)
	require.Len(t, updateBody.Values, 1)
	assert.Equal(t, []any{"Отменено"}, updateBody.Values[0])
}

func TestCancelLastNothingToCancel(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method, "no writes expected")
		writeJSON(w, http.StatusOK, valueRange{})
	})

	found, err := env.client.CancelLast(context.Background(), "42 (@ivanov)")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListReferenceColumns(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/spreadsheets/sheet-1/values/'Причины'!A2:A":
			writeJSON(w, http.StatusOK, valueRange{Values: [][]string{{"Обед"}, {"Наладка"}, {""}}})
		case "/v4/spreadsheets/sheet-1/values/'Типы брака'!A2:A":
			writeJSON(w, http.StatusOK, valueRange{Values: [][]string{{"Царапина"}}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	reasons, err := env.client.ListStopReasons(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Обед", "Наладка"}, reasons, "empty cells are dropped")

	defects, err := env.client.ListDefectTypes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Царапина"}, defects)
}

func TestEnsureSchemaCreatesMissingSheets(t *testing.T) {
	created := map[string]bool{}
	headers := map[string][][]any{}

	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet:
			// Neither log worksheet exists yet.
			writeJSON(w, http.StatusBadRequest, apiErrorBody(400, "Unable to parse range"))
		case r.URL.Path == "/v4/spreadsheets/sheet-1:batchUpdate":
			var body struct {
				Requests []struct {
					AddSheet struct {
						Properties struct {
							Title string `json:"title"`
						} `json:"properties"`
					} `json:"addSheet"`
				} `json:"requests"`
			}
			decodeBody(t, r, &body)
			require.Len(t, body.Requests, 1)
			created[body.Requests[0].AddSheet.Properties.Title] = true
			writeJSON(w, http.StatusOK, map[string]any{})
		case r.Method == http.MethodPut:
			var body struct {
				Range  string  `json:"range"`
				Values [][]any `json:"values"`
			}
			decodeBody(t, r, &body)
			headers[body.Range] = body.Values
			writeJSON(w, http.StatusOK, map[string]any{})
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, env.client.EnsureSchema(context.Background()))

	assert.True(t, created["Старт-Стоп"])
	assert.True(t, created["Брак"])

	require.Contains(t, headers, "'Старт-Стоп'!A1")
	assert.Equal(t, []any{
		"Дата", "Время", "Номер линии", "Действие",
		"Причина", "ЗНП", "Метров брака",
		"Пользователь", "Время отправки", "Статус",
	}, headers["'Старт-Стоп'!A1"][0])

	require.Contains(t, headers, "'Брак'!A1")
	assert.Equal(t, []any{
		"Дата", "Время", "Номер линии", "ЗНП", "Метров брака",
		"Тип брака", "Пользователь", "Время отправки", "Статус",
	}, headers["'Брак'!A1"][0])
}

func TestEnsureSchemaLeavesHealthySheetsAlone(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method, "no writes expected")
		switch r.URL.Path {
		case "/v4/spreadsheets/sheet-1/values/'Старт-Стоп'!1:2":
			writeJSON(w, http.StatusOK, valueRange{Values: [][]string{startStopSpec.headers}})
		case "/v4/spreadsheets/sheet-1/values/'Брак'!1:2":
			writeJSON(w, http.StatusOK, valueRange{Values: [][]string{defectSpec.headers}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	require.NoError(t, env.client.EnsureSchema(context.Background()))
}

func TestEnsureSchemaNeverRewritesOverData(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method, "drifted header over data must only warn")
		writeJSON(w, http.StatusOK, valueRange{Values: [][]string{
			{"Какая-то", "Другая", "Шапка"},
			{"15.08.2025", "08:00", "1"},
		}})
	})

	require.NoError(t, env.client.EnsureSchema(context.Background()))
}

func TestEnsureSchemaReassertsHeaderOnEmptyLog(t *testing.T) {
	rewrites := 0
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, valueRange{Values: [][]string{{"Старая", "Шапка"}}})
		case http.MethodPut:
			rewrites++
			writeJSON(w, http.StatusOK, map[string]any{})
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, env.client.EnsureSchema(context.Background()))
	assert.Equal(t, 2, rewrites, "both empty logs get their header rewritten")
}
