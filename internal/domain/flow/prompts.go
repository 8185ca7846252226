package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/extruline/report-bot/internal/domain/report"
)

// Prompt is one outbound message: text plus the reply keyboard rows the
// operator can pick from. An empty Buttons slice removes the keyboard.
type Prompt struct {
	Text    string
	Buttons [][]string
}

// MainMenu is the idle-state prompt.
func MainMenu() Prompt {
	return Prompt{
		Text: msgChooseAction,
		Buttons: [][]string{
			{BtnStartStop},
			{BtnDefect},
			{BtnCancelLast},
		},
	}
}

func cancelOnly() [][]string {
	return [][]string{{BtnCancel}}
}

// PromptFor builds the prompt for a step. Quick-pick values (dates,
// times, reference-code prefixes) are computed from now, not from any
// stored conversation time; the reason and defect-type keyboards come
// from refs.
func PromptFor(ctx context.Context, step Step, fl report.Flow, refs ReferenceLists, now time.Time, prevOffsetDays int) Prompt {
	switch step {
	case StepLine:
		return Prompt{Text: msgLinePrompt, Buttons: cancelOnly()}
	case StepDate:
		today := now.Format(dateLayout)
		yesterday := now.AddDate(0, 0, -1).Format(dateLayout)
		return Prompt{
			Text: msgDatePrompt,
			Buttons: [][]string{
				{today, yesterday},
				{BtnOtherDate, BtnCancel},
			},
		}
	case StepDateCustom:
		return Prompt{Text: msgDateCustom, Buttons: cancelOnly()}
	case StepTime:
		t := make([]string, 4)
		for i := 0; i < 4; i++ {
			t[i] = now.Add(-time.Duration(i*10) * time.Minute).Format(timeLayout)
		}
		return Prompt{
			Text: msgTimePrompt,
			Buttons: [][]string{
				{t[0], t[1], BtnOtherTime},
				{t[2], t[3], BtnCancel},
			},
		}
	case StepTimeCustom:
		return Prompt{Text: msgTimeCustom, Buttons: cancelOnly()}
	case StepAction:
		return Prompt{
			Text: msgActionPrompt,
			Buttons: [][]string{
				{BtnActStart, BtnActStop},
				{BtnCancel},
			},
		}
	case StepZNPPrefix:
		p := ValidPrefixes(now, prevOffsetDays)
		return Prompt{
			Text: msgZNPPrefix,
			Buttons: [][]string{
				{p[0], p[1]},
				{p[2], p[3]},
				{BtnOther, BtnCancel},
			},
		}
	case StepZNPManual:
		return Prompt{Text: msgZNPManual, Buttons: cancelOnly()}
	case StepScrapLength:
		return Prompt{Text: msgScrapPrompt, Buttons: cancelOnly()}
	case StepReason:
		return ReasonPrompt(refs.StopReasons(ctx))
	case StepDefectType:
		return DefectTypePrompt(refs.DefectTypes(ctx))
	case StepReasonCustom:
		return Prompt{Text: msgReasonCustom, Buttons: cancelOnly()}
	case StepDefectTypeCustom:
		return Prompt{Text: msgDefectCustom, Buttons: cancelOnly()}
	default:
	}
	return Prompt{Text: msgChooseAction, Buttons: cancelOnly()}
}

// ReasonPrompt lists the current stop reasons plus the free-text escape.
func ReasonPrompt(reasons []string) Prompt {
	rows := make([][]string, 0, len(reasons)+1)
	for _, r := range reasons {
		rows = append(rows, []string{r})
	}
	rows = append(rows, []string{BtnOther, BtnCancel})
	return Prompt{Text: msgReasonPrompt, Buttons: rows}
}

// DefectTypePrompt lists the current defect types plus the no-defect and
// free-text escapes.
func DefectTypePrompt(defects []string) Prompt {
	rows := make([][]string, 0, len(defects)+2)
	for _, d := range defects {
		rows = append(rows, []string{d})
	}
	rows = append(rows, []string{BtnNoDefect})
	rows = append(rows, []string{BtnOther, BtnCancel})
	return Prompt{Text: msgDefectPrompt, Buttons: rows}
}

// suffixPrompt acknowledges a chosen prefix and asks for the sequence.
func suffixPrompt(prefix string) Prompt {
	return Prompt{
		Text:    fmt.Sprintf("Префикс %s принят. %s", prefix, msgZNPSuffix),
		Buttons: cancelOnly(),
	}
}
