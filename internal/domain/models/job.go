package models

import "time"

// Job описывает задание на сохранение одной ссылки. Пустой Formats
// означает "все форматы, требуемые политикой".
type Job struct {
	LinkID  int64
	Formats []Format
	Force   bool
	// MarkExhausted ставится фоновой зачисткой: после нескольких
	// провальных проходов формат получает сентинел "unavailable".
	MarkExhausted bool
	EnqueuedAt    time.Time
}

type FormatResult struct {
	Format Format
	Path   string
	Err    error
}

func (r *FormatResult) Succeeded() bool {
	return r.Err == nil
}

// JobSummary содержит по результату на каждый предпринятый формат.
type JobSummary struct {
	LinkID     int64
	Results    []FormatResult
	Ready      bool
	StartedAt  time.Time
	FinishedAt time.Time
}

func (s *JobSummary) Failed() []FormatResult {
	var failed []FormatResult

	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}

	return failed
}

// MaintenanceSummary подводит итог массовой операции по всем ссылкам.
type MaintenanceSummary struct {
	Operation string
	Processed int
	Succeeded int
	Failed    int
}
