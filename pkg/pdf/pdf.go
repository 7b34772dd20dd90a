// Package pdf renders the evaluation reports handed to teachers and coordinators.
package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 às 15:04"
)

// ChecklistLine is one answered criterion.
type ChecklistLine struct {
	Category string
	Label    string
	Value    string
}

// EvaluationReport carries everything printed on a single evaluation report.
type EvaluationReport struct {
	TeacherName          string
	TeacherNIF           string
	CourseName           string
	CurricularUnit       string
	Period               string
	ClassTime            string
	Date                 time.Time
	EvaluatorName        string
	PlanningPercentage   float64
	ClassPercentage      float64
	PlanningItems        []ChecklistLine
	ClassItems           []ChecklistLine
	PlanningObservations string
	ClassObservations    string
	GeneralObservations  string
	TeacherSignedAt      *time.Time
	EvaluatorSignedAt    *time.Time
	GeneratedAt          time.Time
}

// ConsolidatedRow is one evaluation in a teacher's history.
type ConsolidatedRow struct {
	Date               time.Time
	CourseName         string
	PlanningPercentage float64
	ClassPercentage    float64
}

// ConsolidatedReport summarises a teacher's evaluations over a date range.
type ConsolidatedReport struct {
	TeacherName     string
	TeacherNIF      string
	Area            string
	From            *time.Time
	To              *time.Time
	Rows            []ConsolidatedRow
	AveragePlanning float64
	AverageClass    float64
	GeneratedAt     time.Time
}

// CredentialsSheet is the printable access sheet handed to a teacher.
type CredentialsSheet struct {
	Name        string
	NIF         string
	Username    string
	Password    string
	GeneratedAt time.Time
}

type document struct {
	pdf *gofpdf.Fpdf
	tr  func(string) string
}

func newDocument() *document {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()
	return &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (d *document) title(text string) {
	d.pdf.SetFont("Arial", "B", 16)
	d.pdf.CellFormat(0, 10, d.tr(text), "", 1, "C", false, 0, "")
	d.pdf.Ln(6)
}

func (d *document) heading(text string) {
	d.pdf.SetFont("Arial", "B", 11)
	d.pdf.Cell(0, 7, d.tr(text))
	d.pdf.Ln(7)
}

// keyValues prints a two-column grid with grey labels.
func (d *document) keyValues(rows [][2]string) {
	for _, row := range rows {
		d.pdf.SetFont("Arial", "", 10)
		d.pdf.SetFillColor(128, 128, 128)
		d.pdf.SetTextColor(255, 255, 255)
		d.pdf.CellFormat(55, 8, d.tr(row[0]), "1", 0, "L", true, 0, "")
		d.pdf.SetFillColor(245, 245, 220)
		d.pdf.SetTextColor(0, 0, 0)
		d.pdf.CellFormat(0, 8, d.tr(row[1]), "1", 1, "L", true, 0, "")
	}
	d.pdf.Ln(6)
}

func (d *document) bannerRow(text string) {
	d.pdf.SetFont("Arial", "B", 10)
	d.pdf.SetFillColor(0, 0, 139)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.CellFormat(0, 8, d.tr(text), "1", 1, "L", true, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
}

func (d *document) paragraph(label, text string) {
	if text == "" {
		return
	}
	d.heading(label)
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.MultiCell(0, 5, d.tr(text), "", "L", false)
	d.pdf.Ln(4)
}

func (d *document) checklist(title string, items []ChecklistLine) {
	if len(items) == 0 {
		return
	}
	d.bannerRow(title)
	d.pdf.SetFont("Arial", "", 9)
	for i, item := range items {
		fill := i%2 == 1
		d.pdf.SetFillColor(230, 230, 230)
		value := item.Value
		if value == "" {
			value = "-"
		}
		d.pdf.CellFormat(130, 7, d.tr(truncate(item.Label, 90)), "1", 0, "L", fill, 0, "")
		d.pdf.CellFormat(0, 7, d.tr(value), "1", 1, "C", fill, 0, "")
	}
	d.pdf.Ln(6)
}

func (d *document) footer(generatedAt time.Time) {
	d.pdf.Ln(10)
	d.pdf.SetFont("Arial", "I", 9)
	d.pdf.Cell(0, 5, d.tr("Relatório gerado em "+generatedAt.Format(dateTimeLayout)))
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderEvaluation produces the single-evaluation report.
func RenderEvaluation(report EvaluationReport) ([]byte, error) {
	d := newDocument()
	d.title("RELATÓRIO DE ACOMPANHAMENTO DOCENTE")

	info := [][2]string{
		{"Docente:", report.TeacherName},
		{"Curso:", report.CourseName},
	}
	if report.CurricularUnit != "" {
		info = append(info, [2]string{"Unidade Curricular:", report.CurricularUnit})
	}
	info = append(info,
		[2]string{"Período:", report.Period},
		[2]string{"Data:", report.Date.Format(dateLayout)},
		[2]string{"Avaliador:", report.EvaluatorName},
	)
	if report.ClassTime != "" {
		info = append(info, [2]string{"Horário:", report.ClassTime})
	}
	d.keyValues(info)

	d.bannerRow("RESUMO DOS RESULTADOS")
	d.keyValues([][2]string{
		{"Planejamento:", fmt.Sprintf("%.1f%% atendido", report.PlanningPercentage)},
		{"Condução da aula:", fmt.Sprintf("%.1f%% atendido", report.ClassPercentage)},
	})

	d.checklist("PLANEJAMENTO", report.PlanningItems)
	d.checklist("PERÍODO DA AULA", report.ClassItems)

	d.paragraph("Observações - Planejamento:", report.PlanningObservations)
	d.paragraph("Observações - Período da Aula:", report.ClassObservations)
	d.paragraph("Observações Gerais:", report.GeneralObservations)

	d.keyValues([][2]string{
		{"Assinatura do docente:", signedLabel(report.TeacherSignedAt)},
		{"Assinatura do avaliador:", signedLabel(report.EvaluatorSignedAt)},
	})

	d.footer(report.GeneratedAt)
	return d.bytes()
}

// RenderConsolidated produces a teacher's evolution report.
func RenderConsolidated(report ConsolidatedReport) ([]byte, error) {
	d := newDocument()
	d.title("RELATÓRIO CONSOLIDADO - " + strings.ToUpper(report.TeacherName))

	info := [][2]string{
		{"Docente:", report.TeacherName},
		{"NIF:", report.TeacherNIF},
		{"Área:", report.Area},
		{"Total de Acompanhamentos:", fmt.Sprintf("%d", len(report.Rows))},
	}
	if report.From != nil || report.To != nil {
		info = append(info, [2]string{"Intervalo:", rangeLabel(report.From, report.To)})
	}
	d.keyValues(info)

	d.heading("Evolução dos Acompanhamentos:")
	d.pdf.SetFont("Arial", "B", 9)
	d.pdf.SetFillColor(0, 0, 139)
	d.pdf.SetTextColor(255, 255, 255)
	d.pdf.CellFormat(35, 8, "Data", "1", 0, "C", true, 0, "")
	d.pdf.CellFormat(65, 8, d.tr("Curso"), "1", 0, "C", true, 0, "")
	d.pdf.CellFormat(35, 8, d.tr("Planejamento"), "1", 0, "C", true, 0, "")
	d.pdf.CellFormat(0, 8, d.tr("Condução da Aula"), "1", 1, "C", true, 0, "")
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.SetFont("Arial", "", 9)
	for i, row := range report.Rows {
		fill := i%2 == 1
		d.pdf.SetFillColor(211, 211, 211)
		d.pdf.CellFormat(35, 7, row.Date.Format(dateLayout), "1", 0, "C", fill, 0, "")
		d.pdf.CellFormat(65, 7, d.tr(truncate(row.CourseName, 40)), "1", 0, "C", fill, 0, "")
		d.pdf.CellFormat(35, 7, fmt.Sprintf("%.1f%%", row.PlanningPercentage), "1", 0, "C", fill, 0, "")
		d.pdf.CellFormat(0, 7, fmt.Sprintf("%.1f%%", row.ClassPercentage), "1", 1, "C", fill, 0, "")
	}
	d.pdf.Ln(6)

	d.bannerRow("DESEMPENHO MÉDIO")
	d.keyValues([][2]string{
		{"Planejamento:", fmt.Sprintf("%.1f%%", report.AveragePlanning)},
		{"Condução da aula:", fmt.Sprintf("%.1f%%", report.AverageClass)},
	})

	d.footer(report.GeneratedAt)
	return d.bytes()
}

// RenderCredentials produces the access sheet with the plaintext password.
func RenderCredentials(sheet CredentialsSheet) ([]byte, error) {
	d := newDocument()
	d.title("CREDENCIAIS DE ACESSO")
	d.keyValues([][2]string{
		{"Nome:", sheet.Name},
		{"NIF:", sheet.NIF},
		{"Usuário:", sheet.Username},
		{"Senha:", sheet.Password},
	})
	d.pdf.SetFont("Arial", "", 10)
	d.pdf.MultiCell(0, 5, d.tr("Guarde estas informações em local seguro. Este documento só pode ser emitido uma vez."), "", "L", false)
	d.footer(sheet.GeneratedAt)
	return d.bytes()
}

func signedLabel(at *time.Time) string {
	if at == nil {
		return "Pendente"
	}
	return "Assinado em " + at.Format(dateTimeLayout)
}

func rangeLabel(from, to *time.Time) string {
	start, end := "início", "hoje"
	if from != nil {
		start = from.Format(dateLayout)
	}
	if to != nil {
		end = to.Format(dateLayout)
	}
	return start + " a " + end
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
