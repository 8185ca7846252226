package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validStartStop() Record {
	return Record{
		Date:        "15.08.2025",
		Time:        "09:50",
		Line:        3,
		Action:      ActionStop,
		Reason:      "Наладка",
		ZNP:         "D0825-0042",
		ScrapMeters: 12,
		Operator:    "42 (@ivanov)",
		SubmittedAt: time.Date(2025, time.August, 15, 10, 0, 0, 0, time.UTC),
	}
}

func validDefect() Record {
	r := validStartStop()
	r.Action = ""
	r.Reason = ""
	r.DefectType = "Царапина"
	return r
}

func TestValidateStartStop(t *testing.T) {
	r := validStartStop()
	require.NoError(t, r.Validate(FlowStartStop))

	start := validStartStop()
	start.Action = ActionStart
	start.Reason = ""
	assert.NoError(t, start.Validate(FlowStartStop), "start needs no reason")

	stop := validStartStop()
	stop.Reason = ""
	assert.Error(t, stop.Validate(FlowStartStop), "stop requires a reason")

	bad := validStartStop()
	bad.Action = "пауза"
	assert.Error(t, bad.Validate(FlowStartStop))
}

func TestValidateDefect(t *testing.T) {
	r := validDefect()
	require.NoError(t, r.Validate(FlowDefect))

	noType := validDefect()
	noType.DefectType = ""
	assert.NoError(t, noType.Validate(FlowDefect), "empty defect type means no defect")

	withAction := validDefect()
	withAction.Action = ActionStart
	assert.Error(t, withAction.Validate(FlowDefect))
}

func TestValidateCommonFields(t *testing.T) {
	mutations := map[string]func(*Record){
		"line zero":      func(r *Record) { r.Line = 0 },
		"line too large": func(r *Record) { r.Line = 16 },
		"empty date":     func(r *Record) { r.Date = "" },
		"empty time":     func(r *Record) { r.Time = "" },
		"empty znp":      func(r *Record) { r.ZNP = "" },
		"negative scrap": func(r *Record) { r.ScrapMeters = -1 },
		"empty operator": func(r *Record) { r.Operator = "" },
		"zero submitted": func(r *Record) { r.SubmittedAt = time.Time{} },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := validStartStop()
			mutate(&r)
			assert.Error(t, r.Validate(FlowStartStop))
		})
	}
}

func TestValidateUnknownFlow(t *testing.T) {
	r := validStartStop()
	assert.Error(t, r.Validate(Flow("audit")))
}
