package flow

import (
	"time"

	"github.com/extruline/report-bot/internal/domain/report"
)

// Step names the position inside a conversation awaiting one specific
// kind of input.
type Step string

const (
	StepLine             Step = "line"
	StepDate             Step = "date"
	StepDateCustom       Step = "date_custom"
	StepTime             Step = "time"
	StepTimeCustom       Step = "time_custom"
	StepAction           Step = "action"
	StepReason           Step = "reason"
	StepReasonCustom     Step = "reason_custom"
	StepZNPPrefix        Step = "znp_prefix"
	StepZNPManual        Step = "znp_manual"
	StepScrapLength      Step = "scrap_length"
	StepDefectType       Step = "defect_type"
	StepDefectTypeCustom Step = "defect_type_custom"
)

// Draft accumulates validated field values over the life of one
// conversation. Fields are only ever set, never cleared.
type Draft struct {
	Line        int
	Date        string
	Time        string
	Action      report.Action
	Reason      string
	ZNPPrefix   string // pending prefix awaiting its 4-digit suffix
	ZNP         string
	ScrapMeters int
	DefectType  string
}

// Conversation is the per-operator state of one in-flight report.
type Conversation struct {
	OperatorID   int64
	Operator     string // display identity stamped onto the record
	ChatID       int64
	Flow         report.Flow
	Step         Step
	Draft        Draft
	LastActivity time.Time
}

// InboundMessage is one normalized chat event handed to the engine.
type InboundMessage struct {
	UpdateID   int
	OperatorID int64
	ChatID     int64
	Operator   string
	Text       string
}
