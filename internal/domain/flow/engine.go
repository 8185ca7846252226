package flow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/extruline/report-bot/internal/domain/report"
	"github.com/extruline/report-bot/internal/infrastructure/metrics"
	"github.com/extruline/report-bot/internal/utils/keymutex"
)

// Clock supplies the current time. Reference-code prefix validity depends
// on it, so tests inject a fixed one.
type Clock func() time.Time

// Config carries the engine tunables.
type Config struct {
	IdleTimeout          time.Duration
	PrevPeriodOffsetDays int
	Clock                Clock
}

// Engine drives the conversation state machine: one inbound message in,
// validation, a step transition and an outbound prompt out. All work for
// one operator happens under that operator's lock, so messages from a
// single operator apply strictly in order while different operators
// proceed concurrently.
type Engine struct {
	store     Store
	sink      report.Sink
	refs      ReferenceLists
	messenger Messenger
	locks     *keymutex.KeyMutex
	clock     Clock
	cfg       Config
	log       zerolog.Logger
}

// NewEngine wires the flow engine.
func NewEngine(store Store, sink report.Sink, refs ReferenceLists, messenger Messenger, cfg Config, log zerolog.Logger) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	if cfg.PrevPeriodOffsetDays <= 0 {
		cfg.PrevPeriodOffsetDays = DefaultPrevPeriodOffsetDays
	}
	return &Engine{
		store:     store,
		sink:      sink,
		refs:      refs,
		messenger: messenger,
		locks:     keymutex.New(),
		clock:     clock,
		cfg:       cfg,
		log:       log.With().Str("component", "flow_engine").Logger(),
	}
}

// HandleMessage processes one inbound message as an atomic unit.
func (e *Engine) HandleMessage(ctx context.Context, msg InboundMessage) {
	e.locks.Lock(msg.OperatorID)
	defer e.locks.Unlock(msg.OperatorID)

	text := strings.TrimSpace(msg.Text)
	now := e.clock()

	conv, ok := e.store.Get(msg.OperatorID)
	if !ok {
		e.handleMenu(ctx, msg, text, now)
		return
	}

	// Cancellation is handled once, globally, before any step logic.
	if text == BtnCancel {
		e.store.Delete(conv.OperatorID)
		metrics.ConversationsActive.Set(float64(e.store.Len()))
		e.send(ctx, conv.ChatID, Prompt{Text: msgCancelled, Buttons: MainMenu().Buttons})
		return
	}

	e.store.Touch(conv.OperatorID, now)
	e.dispatch(ctx, conv, text, now)
}

// ExpireIdle removes conversations idle past the timeout and notifies
// their operators. It shares the per-operator locks with HandleMessage so
// a timeout can never race an in-flight transition. Returns the number of
// conversations removed.
func (e *Engine) ExpireIdle(ctx context.Context) int {
	cutoff := e.clock().Add(-e.cfg.IdleTimeout)
	expired := 0
	for _, stale := range e.store.IdleSince(cutoff) {
		e.locks.Lock(stale.OperatorID)
		conv, ok := e.store.Get(stale.OperatorID)
		if ok && !conv.LastActivity.After(cutoff) {
			e.store.Delete(conv.OperatorID)
			expired++
			e.send(ctx, conv.ChatID, Prompt{Text: msgIdleCancelled, Buttons: MainMenu().Buttons})
		}
		e.locks.Unlock(stale.OperatorID)
	}
	if expired > 0 {
		metrics.ConversationsExpiredTotal.Add(float64(expired))
		metrics.ConversationsActive.Set(float64(e.store.Len()))
		e.log.Info().Int("expired", expired).Msg("idle conversations cancelled")
	}
	return expired
}

func (e *Engine) handleMenu(ctx context.Context, msg InboundMessage, text string, now time.Time) {
	switch text {
	case BtnStartStop:
		e.startFlow(ctx, msg, report.FlowStartStop, now)
	case BtnDefect:
		e.startFlow(ctx, msg, report.FlowDefect, now)
	case BtnCancelLast:
		e.cancelLast(ctx, msg)
	default:
		e.send(ctx, msg.ChatID, MainMenu())
	}
}

func (e *Engine) startFlow(ctx context.Context, msg InboundMessage, fl report.Flow, now time.Time) {
	conv := &Conversation{
		OperatorID:   msg.OperatorID,
		Operator:     msg.Operator,
		ChatID:       msg.ChatID,
		Flow:         fl,
		Step:         StepLine,
		LastActivity: now,
	}
	e.store.Put(conv)
	metrics.ConversationsActive.Set(float64(e.store.Len()))
	e.prompt(ctx, conv, StepLine, now)
}

func (e *Engine) cancelLast(ctx context.Context, msg InboundMessage) {
	found, err := e.sink.CancelLast(ctx, msg.Operator)
	if err != nil {
		e.log.Error().Err(err).Int64("operator", msg.OperatorID).Msg("cancel last record failed")
		e.send(ctx, msg.ChatID, Prompt{Text: msgCancelLastFailed, Buttons: MainMenu().Buttons})
		return
	}
	text := msgLastCancelled
	if !found {
		text = msgNothingToCancel
	}
	e.send(ctx, msg.ChatID, Prompt{Text: text, Buttons: MainMenu().Buttons})
}

func (e *Engine) dispatch(ctx context.Context, conv *Conversation, text string, now time.Time) {
	switch conv.Step {
	case StepLine:
		if n, ok := ParseLine(text); ok {
			conv.Draft.Line = n
			conv.Step = StepDate
			e.prompt(ctx, conv, StepDate, now)
			return
		}
		e.send(ctx, conv.ChatID, Prompt{Text: msgLineInvalid, Buttons: cancelOnly()})

	case StepDate:
		if text == BtnOtherDate {
			conv.Step = StepDateCustom
			e.prompt(ctx, conv, StepDateCustom, now)
			return
		}
		e.acceptDate(ctx, conv, text, now)

	case StepDateCustom:
		e.acceptDate(ctx, conv, text, now)

	case StepTime:
		if text == BtnOtherTime {
			conv.Step = StepTimeCustom
			e.prompt(ctx, conv, StepTimeCustom, now)
			return
		}
		e.acceptTime(ctx, conv, text, now)

	case StepTimeCustom:
		e.acceptTime(ctx, conv, text, now)

	case StepAction:
		switch text {
		case BtnActStart:
			conv.Draft.Action = report.ActionStart
			conv.Step = StepZNPPrefix
			e.prompt(ctx, conv, StepZNPPrefix, now)
		case BtnActStop:
			conv.Draft.Action = report.ActionStop
			conv.Step = StepReason
			e.prompt(ctx, conv, StepReason, now)
		default:
			e.prompt(ctx, conv, StepAction, now)
		}

	case StepReason:
		if text == BtnOther {
			conv.Step = StepReasonCustom
			e.prompt(ctx, conv, StepReasonCustom, now)
			return
		}
		reasons := e.refs.StopReasons(ctx)
		if contains(reasons, text) {
			conv.Draft.Reason = text
			conv.Step = StepZNPPrefix
			e.prompt(ctx, conv, StepZNPPrefix, now)
			return
		}
		e.send(ctx, conv.ChatID, ReasonPrompt(reasons))

	case StepReasonCustom:
		conv.Draft.Reason = text
		conv.Step = StepZNPPrefix
		e.prompt(ctx, conv, StepZNPPrefix, now)

	case StepZNPPrefix:
		e.acceptZNPPrefix(ctx, conv, text, now)

	case StepZNPManual:
		valid := ValidPrefixes(now, e.cfg.PrevPeriodOffsetDays)
		if code, ok := ParseZNPManual(text, valid); ok {
			conv.Draft.ZNP = code
			conv.Step = StepScrapLength
			e.prompt(ctx, conv, StepScrapLength, now)
			return
		}
		e.send(ctx, conv.ChatID, Prompt{Text: msgZNPInvalid + " " + msgZNPManual, Buttons: cancelOnly()})

	case StepScrapLength:
		if n, ok := ParseScrapMeters(text); ok {
			conv.Draft.ScrapMeters = n
			conv.Step = StepDefectType
			e.prompt(ctx, conv, StepDefectType, now)
			return
		}
		e.send(ctx, conv.ChatID, Prompt{Text: msgScrapInvalid, Buttons: cancelOnly()})

	case StepDefectType:
		switch {
		case text == BtnOther:
			conv.Step = StepDefectTypeCustom
			e.prompt(ctx, conv, StepDefectTypeCustom, now)
		case text == BtnNoDefect:
			conv.Draft.DefectType = ""
			e.finalize(ctx, conv, now)
		case contains(e.refs.DefectTypes(ctx), text):
			conv.Draft.DefectType = text
			e.finalize(ctx, conv, now)
		default:
			e.prompt(ctx, conv, StepDefectType, now)
		}

	case StepDefectTypeCustom:
		conv.Draft.DefectType = text
		e.finalize(ctx, conv, now)

	default:
		e.log.Error().Str("step", string(conv.Step)).Int64("operator", conv.OperatorID).Msg("conversation in unknown step, dropping")
		e.store.Delete(conv.OperatorID)
		metrics.ConversationsActive.Set(float64(e.store.Len()))
		e.send(ctx, conv.ChatID, MainMenu())
	}
}

func (e *Engine) acceptDate(ctx context.Context, conv *Conversation, text string, now time.Time) {
	d, ok := ParseDate(text)
	if !ok {
		e.send(ctx, conv.ChatID, Prompt{Text: msgDateInvalid, Buttons: cancelOnly()})
		return
	}
	conv.Draft.Date = d
	conv.Step = StepTime
	e.prompt(ctx, conv, StepTime, now)
}

func (e *Engine) acceptTime(ctx context.Context, conv *Conversation, text string, now time.Time) {
	t, ok := ParseTime(text)
	if !ok {
		e.send(ctx, conv.ChatID, Prompt{Text: msgTimeInvalid, Buttons: cancelOnly()})
		return
	}
	conv.Draft.Time = t
	if conv.Flow == report.FlowDefect {
		conv.Step = StepZNPPrefix
	} else {
		conv.Step = StepAction
	}
	e.prompt(ctx, conv, conv.Step, now)
}

// acceptZNPPrefix runs the guided prefix-then-suffix sub-machine. The
// valid prefix set is recomputed from the wall clock on every call.
func (e *Engine) acceptZNPPrefix(ctx context.Context, conv *Conversation, text string, now time.Time) {
	valid := ValidPrefixes(now, e.cfg.PrevPeriodOffsetDays)
	upper := strings.ToUpper(text)

	switch {
	case contains(valid, upper):
		conv.Draft.ZNPPrefix = upper
		e.send(ctx, conv.ChatID, suffixPrompt(upper))
	case text == BtnOther:
		conv.Step = StepZNPManual
		e.prompt(ctx, conv, StepZNPManual, now)
	default:
		if suffix, ok := ParseZNPSuffix(text); ok && conv.Draft.ZNPPrefix != "" {
			conv.Draft.ZNP = conv.Draft.ZNPPrefix + "-" + suffix
			conv.Step = StepScrapLength
			e.prompt(ctx, conv, StepScrapLength, now)
			return
		}
		e.prompt(ctx, conv, StepZNPPrefix, now)
	}
}

// finalize stamps identity and submission time onto the draft, hands the
// record to the sink and clears the conversation. A failed write keeps
// the conversation in place so the operator can resend the last input.
func (e *Engine) finalize(ctx context.Context, conv *Conversation, now time.Time) {
	rec := &report.Record{
		Date:        conv.Draft.Date,
		Time:        conv.Draft.Time,
		Line:        conv.Draft.Line,
		Action:      conv.Draft.Action,
		Reason:      conv.Draft.Reason,
		ZNP:         conv.Draft.ZNP,
		ScrapMeters: conv.Draft.ScrapMeters,
		DefectType:  conv.Draft.DefectType,
		Operator:    conv.Operator,
		SubmittedAt: now,
	}

	if err := rec.Validate(conv.Flow); err != nil {
		e.log.Error().Err(err).Int64("operator", conv.OperatorID).Msg("incomplete record at finalize, not persisting")
		e.send(ctx, conv.ChatID, Prompt{Text: msgSaveFailed, Buttons: cancelOnly()})
		return
	}

	if err := e.sink.Append(ctx, conv.Flow, rec); err != nil {
		metrics.RecordAppendFailuresTotal.Inc()
		e.log.Error().Err(err).Int64("operator", conv.OperatorID).Str("flow", string(conv.Flow)).Msg("record append failed")
		e.send(ctx, conv.ChatID, Prompt{Text: msgSaveFailed, Buttons: cancelOnly()})
		return
	}

	metrics.RecordsAppendedTotal.WithLabelValues(string(conv.Flow)).Inc()
	e.store.Delete(conv.OperatorID)
	metrics.ConversationsActive.Set(float64(e.store.Len()))
	e.send(ctx, conv.ChatID, Prompt{Text: confirmation(conv.Flow, rec), Buttons: MainMenu().Buttons})
}

func (e *Engine) prompt(ctx context.Context, conv *Conversation, step Step, now time.Time) {
	e.send(ctx, conv.ChatID, PromptFor(ctx, step, conv.Flow, e.refs, now, e.cfg.PrevPeriodOffsetDays))
}

func (e *Engine) send(ctx context.Context, chatID int64, p Prompt) {
	if err := e.messenger.Send(ctx, chatID, p); err != nil {
		metrics.SendFailuresTotal.Inc()
		e.log.Warn().Err(err).Int64("chat", chatID).Msg("outbound send failed")
	}
}

// confirmation formats the HTML summary echoed back after a successful
// append.
func confirmation(fl report.Flow, rec *report.Record) string {
	var b strings.Builder
	b.WriteString("<b>Записано!</b>\n")
	fmt.Fprintf(&b, "Дата: %s\n", rec.Date)
	fmt.Fprintf(&b, "Время: %s\n", rec.Time)
	fmt.Fprintf(&b, "Линия: %d\n", rec.Line)
	if fl == report.FlowStartStop {
		action := BtnActStart
		if rec.Action == report.ActionStop {
			action = BtnActStop
		}
		fmt.Fprintf(&b, "Действие: %s\n", action)
		fmt.Fprintf(&b, "Причина: %s\n", orDash(rec.Reason))
	}
	fmt.Fprintf(&b, "ЗНП: %s\n", rec.ZNP)
	fmt.Fprintf(&b, "Метров брака: %d\n", rec.ScrapMeters)
	fmt.Fprintf(&b, "Тип брака: %s", orDash(rec.DefectType))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
