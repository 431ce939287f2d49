// Package report builds the per-activity results model consumed by exporters.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/mind-engage/mindengage-rubrics/internal/domain"
	"github.com/mind-engage/mindengage-rubrics/internal/grading"
	"github.com/mind-engage/mindengage-rubrics/internal/rubric"
)

type Row struct {
	StudentID string  `json:"studentId"`
	Student   string  `json:"student"`
	Score     float64 `json:"score"`
	Scored    bool    `json:"scored"`
	Display   string  `json:"display"`
	Failing   bool    `json:"failing"`
}

// Detail is one criterion of one student's result. Level is empty when the
// criterion was not assessed.
type Detail struct {
	Criterion string `json:"criterion"`
	Weight    *int   `json:"weight,omitempty"`
	Level     string `json:"level"`
	Text      string `json:"text"`
}

type StudentDetail struct {
	Row
	Criteria []Detail `json:"criteria"`
}

// Model is a finished report. Text fields carry no markdown emphasis.
type Model struct {
	Title            string                  `json:"title"`
	Class            string                  `json:"class"`
	Rubric           string                  `json:"rubric"`
	Levels           []string                `json:"levels"`
	SelectedCriteria []domain.CriterionEntry `json:"selectedCriteria,omitempty"`
	Rows             []Row                   `json:"rows"`
	Students         []StudentDetail         `json:"students"`
	GeneratedAt      time.Time               `json:"generatedAt"`
}

// Summary counts students by outcome.
func (m Model) Summary() (scored, failing, pending int) {
	for _, r := range m.Rows {
		switch {
		case !r.Scored:
			pending++
		case r.Failing:
			scored++
			failing++
		default:
			scored++
		}
	}
	return scored, failing, pending
}

func Build(a domain.Activity, c domain.Class, r rubric.Rubric, rec domain.EvaluationRecord, now time.Time) Model {
	m := Model{
		Title:            a.Title,
		Class:            c.Name,
		Rubric:           r.Name,
		SelectedCriteria: append([]domain.CriterionEntry(nil), a.SelectedCriteria...),
		GeneratedAt:      now,
	}
	for _, l := range r.Levels {
		m.Levels = append(m.Levels, rubric.StripEmphasis(l))
	}
	results := grading.Roster(r, c, rec)
	for i, s := range c.Students {
		res := results[i]
		row := Row{
			StudentID: s.ID,
			Student:   s.Name,
			Score:     res.Score,
			Scored:    res.Scored,
			Display:   res.Display,
			Failing:   res.Failing,
		}
		m.Rows = append(m.Rows, row)

		sel := rec.For(s.ID)
		detail := StudentDetail{Row: row}
		for _, cr := range r.Criteria {
			dec := cr.Decoded()
			d := Detail{Criterion: dec.Name, Weight: dec.Weight}
			if i, ok := sel[cr.ID]; ok && i >= 0 && i < len(cr.Levels) && i < len(m.Levels) {
				d.Level = m.Levels[i]
				d.Text = rubric.StripEmphasis(cr.Levels[i])
			}
			detail.Criteria = append(detail.Criteria, d)
		}
		m.Students = append(m.Students, detail)
	}
	return m
}

// WriteCSV writes one line per student: name, score, then the level chosen
// for each criterion.
func WriteCSV(w io.Writer, m Model) error {
	cw := csv.NewWriter(w)
	header := []string{"Student", "Score"}
	if len(m.Students) > 0 {
		for _, d := range m.Students[0].Criteria {
			header = append(header, d.Criterion)
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range m.Students {
		line := []string{s.Student, s.Display}
		for _, d := range s.Criteria {
			line = append(line, d.Level)
		}
		if err := cw.Write(line); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Exporter renders a finished Model, e.g. to PDF.
type Exporter interface {
	ContentType() string
	Export(ctx context.Context, w io.Writer, m Model) error
}

type CSVExporter struct{}

func (CSVExporter) ContentType() string { return "text/csv; charset=utf-8" }

func (CSVExporter) Export(_ context.Context, w io.Writer, m Model) error { return WriteCSV(w, m) }

// Filename is a download name for the report, e.g. "Essay 1 - 9A.csv".
func Filename(m Model, ext string) string {
	return fmt.Sprintf("%s - %s.%s", m.Title, m.Class, ext)
}
