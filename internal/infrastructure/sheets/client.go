package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/extruline/report-bot/internal/domain/report"
	"github.com/extruline/report-bot/internal/infrastructure/metrics"
)

const defaultAPIBase = "https://sheets.googleapis.com"

const (
	statusCancelled   = "Отменено"
	submittedAtLayout = "2006-01-02 15:04:05"
)

// sheetSpec fixes the layout of one log worksheet.
type sheetSpec struct {
	title        string
	headers      []string
	operatorCol  int
	submittedCol int
	statusCol    int
}

var (
	startStopSpec = sheetSpec{
		title: "Старт-Стоп",
		headers: []string{
			"Дата", "Время", "Номер линии", "Действие",
			"Причина", "ЗНП", "Метров брака",
			"Пользователь", "Время отправки", "Статус",
		},
		operatorCol:  7,
		submittedCol: 8,
		statusCol:    9,
	}
	defectSpec = sheetSpec{
		title: "Брак",
		headers: []string{
			"Дата", "Время", "Номер линии", "ЗНП", "Метров брака",
			"Тип брака", "Пользователь", "Время отправки", "Статус",
		},
		operatorCol:  6,
		submittedCol: 7,
		statusCol:    8,
	}

	reasonsSheet     = "Причины"
	defectTypesSheet = "Типы брака"
)

// Client implements report.Sink on top of the Google Sheets REST API.
// Writes go through a retry with exponential backoff and a circuit
// breaker so a degraded spreadsheet backend cannot pile up latency.
type Client struct {
	http          *resty.Client
	spreadsheetID string
	tokens        *TokenSource
	breaker       *CircuitBreaker
	retry         RetryConfig
	log           zerolog.Logger
}

var _ report.Sink = (*Client)(nil)

// NewClient builds the sink. apiBase is overridable for tests.
func NewClient(apiBase, spreadsheetID string, tokens *TokenSource, log zerolog.Logger) *Client {
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	return &Client{
		http: resty.New().
			SetBaseURL(apiBase).
			SetTimeout(30 * time.Second),
		spreadsheetID: spreadsheetID,
		tokens:        tokens,
		breaker:       NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		retry:         DefaultRetryConfig(),
		log:           log.With().Str("component", "sheets").Logger(),
	}
}

// Append writes one record to the worksheet selected by flow.
func (c *Client) Append(ctx context.Context, fl report.Flow, rec *report.Record) error {
	spec, row := rowFor(fl, rec)
	return c.breaker.Execute("append", func() error {
		_, err := WithRetry(ctx, c.retry, "values_append", func() (*struct{}, error) {
			if err := c.valuesAppend(ctx, spec.title, row); err != nil {
				return nil, err
			}
			return &struct{}{}, nil
		})
		return err
	})
}

// CancelLast marks the operator's most recent record, across both logs,
// with the cancelled status. Already-cancelled rows are skipped.
func (c *Client) CancelLast(ctx context.Context, operator string) (bool, error) {
	type hit struct {
		spec        sheetSpec
		rowIndex    int // 1-based sheet row
		submittedAt string
	}
	var latest *hit

	for _, spec := range []sheetSpec{startStopSpec, defectSpec} {
		rng := fmt.Sprintf("'%s'!A2:%s", spec.title, columnLetter(spec.statusCol))
		rows, err := c.valuesGet(ctx, rng)
		if err != nil {
			return false, fmt.Errorf("scan %s: %w", spec.title, err)
		}
		for i, row := range rows {
			if cell(row, spec.operatorCol) != operator {
				continue
			}
			if cell(row, spec.statusCol) == statusCancelled {
				continue
			}
			// The submission timestamp layout sorts lexicographically.
			submitted := cell(row, spec.submittedCol)
			if latest == nil || submitted > latest.submittedAt {
				latest = &hit{spec: spec, rowIndex: i + 2, submittedAt: submitted}
			}
		}
	}

	if latest == nil {
		return false, nil
	}

	rng := fmt.Sprintf("'%s'!%s%d", latest.spec.title, columnLetter(latest.spec.statusCol), latest.rowIndex)
	if err := c.valuesUpdate(ctx, rng, [][]any{{statusCancelled}}); err != nil {
		return false, fmt.Errorf("mark cancelled: %w", err)
	}
	return true, nil
}

// ListStopReasons reads the stop-reason pick list from column A of the
// reference worksheet, skipping the header row.
func (c *Client) ListStopReasons(ctx context.Context) ([]string, error) {
	return c.listColumn(ctx, reasonsSheet)
}

// ListDefectTypes reads the defect-type pick list.
func (c *Client) ListDefectTypes(ctx context.Context) ([]string, error) {
	return c.listColumn(ctx, defectTypesSheet)
}

func (c *Client) listColumn(ctx context.Context, sheet string) ([]string, error) {
	rows, err := c.valuesGet(ctx, fmt.Sprintf("'%s'!A2:A", sheet))
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		if v := cell(row, 0); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}

// EnsureSchema creates the log worksheets when absent and re-asserts the
// header row, but only while a log has no data rows. Headers drifting
// over existing data are reported, never rewritten.
func (c *Client) EnsureSchema(ctx context.Context) error {
	for _, spec := range []sheetSpec{startStopSpec, defectSpec} {
		if err := c.ensureSheet(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) ensureSheet(ctx context.Context, spec sheetSpec) error {
	rows, err := c.valuesGet(ctx, fmt.Sprintf("'%s'!1:2", spec.title))
	if err != nil {
		if !isMissingSheet(err) {
			return fmt.Errorf("inspect %s: %w", spec.title, err)
		}
		if err := c.addSheet(ctx, spec.title); err != nil {
			return fmt.Errorf("create %s: %w", spec.title, err)
		}
		rows = nil
	}

	switch {
	case len(rows) == 0:
		return c.writeHeader(ctx, spec)
	case !headersEqual(rows[0], spec.headers):
		if len(rows) > 1 {
			c.log.Warn().
				Str("sheet", spec.title).
				Msg("header row drifted on a non-empty log, leaving data untouched")
			return nil
		}
		return c.writeHeader(ctx, spec)
	}
	return nil
}

func (c *Client) writeHeader(ctx context.Context, spec sheetSpec) error {
	header := make([]any, len(spec.headers))
	for i, h := range spec.headers {
		header[i] = h
	}
	rng := fmt.Sprintf("'%s'!A1", spec.title)
	if err := c.valuesUpdate(ctx, rng, [][]any{header}); err != nil {
		return fmt.Errorf("write header of %s: %w", spec.title, err)
	}
	return nil
}

// --- raw Sheets API calls ---

type valueRange struct {
	Range  string     `json:"range,omitempty"`
	Values [][]string `json:"values"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) valuesGet(ctx context.Context, rng string) ([][]string, error) {
	timer := prometheus.NewTimer(metrics.SheetsRequestDuration.WithLabelValues("get"))
	defer timer.ObserveDuration()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	var out valueRange
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("range", rng).
		SetResult(&out).
		SetError(&apiErr).
		Get("/v4/spreadsheets/" + c.spreadsheetID + "/values/{range}")
	if err != nil {
		return nil, fmt.Errorf("values get: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("values get: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return out.Values, nil
}

func (c *Client) valuesUpdate(ctx context.Context, rng string, values [][]any) error {
	timer := prometheus.NewTimer(metrics.SheetsRequestDuration.WithLabelValues("update"))
	defer timer.ObserveDuration()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("range", rng).
		SetQueryParam("valueInputOption", "RAW").
		SetBody(map[string]any{"range": rng, "values": values}).
		SetError(&apiErr).
		Put("/v4/spreadsheets/" + c.spreadsheetID + "/values/{range}")
	if err != nil {
		return fmt.Errorf("values update: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("values update: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return nil
}

func (c *Client) valuesAppend(ctx context.Context, sheet string, row []any) error {
	timer := prometheus.NewTimer(metrics.SheetsRequestDuration.WithLabelValues("append"))
	defer timer.ObserveDuration()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("'%s'!A1", sheet)
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetPathParam("range", rng).
		SetQueryParams(map[string]string{
			"valueInputOption": "USER_ENTERED",
			"insertDataOption": "INSERT_ROWS",
		}).
		SetBody(map[string]any{"values": [][]any{row}}).
		SetError(&apiErr).
		Post("/v4/spreadsheets/" + c.spreadsheetID + "/values/{range}:append")
	if err != nil {
		return fmt.Errorf("values append: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("values append: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return nil
}

func (c *Client) addSheet(ctx context.Context, title string) error {
	timer := prometheus.NewTimer(metrics.SheetsRequestDuration.WithLabelValues("batch_update"))
	defer timer.ObserveDuration()

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	body := map[string]any{
		"requests": []any{
			map[string]any{
				"addSheet": map[string]any{
					"properties": map[string]any{"title": title},
				},
			},
		},
	}
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(body).
		SetError(&apiErr).
		Post("/v4/spreadsheets/" + c.spreadsheetID + ":batchUpdate")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("add sheet: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
	}
	return nil
}

// --- helpers ---

func rowFor(fl report.Flow, rec *report.Record) (sheetSpec, []any) {
	submitted := rec.SubmittedAt.Format(submittedAtLayout)
	if fl == report.FlowDefect {
		return defectSpec, []any{
			rec.Date, rec.Time, rec.Line, rec.ZNP, rec.ScrapMeters,
			rec.DefectType, rec.Operator, submitted, "",
		}
	}
	return startStopSpec, []any{
		rec.Date, rec.Time, rec.Line, string(rec.Action),
		rec.Reason, rec.ZNP, rec.ScrapMeters,
		rec.Operator, submitted, "",
	}
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func headersEqual(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range want {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func columnLetter(i int) string {
	return string(rune('A' + i))
}

// isMissingSheet matches the "Unable to parse range" error the API
// returns for a worksheet that does not exist yet.
func isMissingSheet(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "status 400") || strings.Contains(msg, "Unable to parse range")
}
