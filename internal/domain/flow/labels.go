package flow

// Operator-facing button labels and sentinels. The shop floor works in
// Russian; these strings double as protocol values for the reply
// keyboards, so they must match byte for byte on the way back in.
const (
	BtnStartStop  = "Старт/Стоп"
	BtnDefect     = "Брак"
	BtnCancelLast = "Отменить последнюю запись"

	BtnCancel    = "Отмена"
	BtnOtherDate = "Другая дата"
	BtnOtherTime = "Другое время"
	BtnOther     = "Другое"
	BtnNoDefect  = "Нет брака"
	BtnActStart  = "Запуск"
	BtnActStop   = "Остановка"
)

const (
	msgChooseAction     = "Выберите действие:"
	msgLinePrompt       = "Введите номер линии (1–15):"
	msgLineInvalid      = "Введите номер линии 1–15:"
	msgDatePrompt       = "Дата:"
	msgDateCustom       = "Введите дату в формате дд.мм.гггг:"
	msgDateInvalid      = "Неверная дата. Формат дд.мм.гггг"
	msgTimePrompt       = "Время:"
	msgTimeCustom       = "Введите время чч:мм:"
	msgTimeInvalid      = "Неверный формат времени чч:мм"
	msgActionPrompt     = "Действие:"
	msgReasonPrompt     = "Причина остановки:"
	msgReasonCustom     = "Введите причину остановки:"
	msgZNPPrefix        = "Выберите префикс ЗНП:"
	msgZNPSuffix        = "Введите номер ЗНП (4 цифры):"
	msgZNPManual        = "Введите ЗНП полностью (например, D0825-0042):"
	msgZNPInvalid       = "Неверный формат ЗНП."
	msgScrapPrompt      = "Метров брака:"
	msgScrapInvalid     = "Введите число:"
	msgDefectPrompt     = "Тип брака:"
	msgDefectCustom     = "Введите тип брака:"
	msgCancelled        = "Отменено."
	msgIdleCancelled    = "Диалог завершён из-за отсутствия активности (10 минут)."
	msgSaveFailed       = "Не удалось сохранить запись. Отправьте последнее значение ещё раз."
	msgLastCancelled    = "Последняя запись отменена."
	msgNothingToCancel  = "Нет записей для отмены."
	msgCancelLastFailed = "Не удалось отменить запись. Попробуйте позже."
)
