package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/acompanha-api/internal/dto"
	"github.com/noah-isme/acompanha-api/internal/models"
	"github.com/noah-isme/acompanha-api/internal/repository"
	"github.com/noah-isme/acompanha-api/pkg/excel"
)

// Spreadsheet headers, in Portuguese as printed on the institution's templates.
const (
	columnNIF         = "NIF"
	columnName        = "Nome"
	columnArea        = "Área"
	columnEmail       = "Email"
	columnCourseName  = "Nome do Curso"
	columnPeriod      = "Período"
	columnComponent   = "Componente Curricular"
	columnClassCode   = "Turma"
	columnUnitName    = "Nome da Unidade"
	columnCourse      = "Curso"
	columnCode        = "Código"
	columnWorkload    = "Carga Horária"
	columnDescription = "Descrição"
)

var (
	teacherColumns = []string{columnNIF, columnName, columnArea, columnEmail}
	unitColumns    = []string{columnUnitName, columnCourse, columnCode, columnWorkload, columnDescription}
)

func courseColumns() []string {
	columns := []string{columnCourseName, columnPeriod, columnComponent, columnClassCode}
	for i := 1; i <= models.MaxUnitsPerCourseRow; i++ {
		columns = append(columns, unitColumn(i))
	}
	return columns
}

func unitColumn(i int) string {
	return fmt.Sprintf("Unidade Curricular %d", i)
}

// ImportService loads catalogue spreadsheets row by row and renders their templates.
type ImportService interface {
	ImportTeachers(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error)
	ImportCourses(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error)
	ImportUnits(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error)
	TeacherTemplate() (Report, error)
	CourseTemplate() (Report, error)
	UnitTemplate() (Report, error)
	ExportTeachers(ctx context.Context) (Report, error)
}

type importService struct {
	teachers  TeacherService
	teacherDB repository.TeacherRepository
	courses   repository.CourseRepository
	units     repository.CurricularUnitRepository
	tx        repository.Transactor
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewImportService constructs the spreadsheet import service.
func NewImportService(
	teachers TeacherService,
	teacherRepo repository.TeacherRepository,
	courses repository.CourseRepository,
	units repository.CurricularUnitRepository,
	tx repository.Transactor,
	activity ActivityRecorder,
	logger zerolog.Logger,
) ImportService {
	return &importService{
		teachers:  teachers,
		teacherDB: teacherRepo,
		courses:   courses,
		units:     units,
		tx:        tx,
		activity:  activity,
		logger:    logger.With().Str("component", "import_service").Logger(),
	}
}

type importTally struct {
	result dto.ImportResult
}

func newImportTally() *importTally {
	return &importTally{result: dto.ImportResult{Errors: []dto.RowIssue{}, Warnings: []dto.RowIssue{}}}
}

func (t *importTally) fail(row int, format string, args ...interface{}) {
	t.result.Errors = append(t.result.Errors, dto.RowIssue{Row: row, Message: fmt.Sprintf(format, args...)})
}

func (t *importTally) warn(row int, format string, args ...interface{}) {
	t.result.Warnings = append(t.result.Warnings, dto.RowIssue{Row: row, Message: fmt.Sprintf(format, args...)})
}

func readSheet(r io.Reader, required []string) ([]excel.Row, error) {
	rows, err := excel.ReadRows(r, required)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportInvalid, err)
	}
	return rows, nil
}

func (s *importService) ImportTeachers(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error) {
	rows, err := readSheet(r, []string{columnNIF, columnName, columnArea})
	if err != nil {
		return dto.ImportResult{}, err
	}

	tally := newImportTally()
	for _, row := range rows {
		req := dto.TeacherCreateRequest{
			NIF:   row.Get(columnNIF),
			Name:  row.Get(columnName),
			Area:  row.Get(columnArea),
			Email: row.Get(columnEmail),
		}
		switch {
		case req.NIF == "":
			tally.fail(row.Number, "NIF é obrigatório")
			continue
		case req.Name == "":
			tally.fail(row.Number, "Nome é obrigatório")
			continue
		case req.Area == "":
			tally.fail(row.Number, "Área é obrigatória")
			continue
		}

		_, err := s.teachers.Create(ctx, actor, req)
		var validationErrs validator.ValidationErrors
		switch {
		case err == nil:
			tally.result.SuccessCount++
		case errors.Is(err, ErrDuplicateNIF), errors.Is(err, ErrUsernameTaken):
			tally.warn(row.Number, "NIF %s já cadastrado, linha ignorada", models.NormalizeNIF(req.NIF))
		case errors.Is(err, ErrInvalidNIF):
			tally.fail(row.Number, "NIF %s inválido (formato SN1234567)", req.NIF)
		case errors.As(err, &validationErrs):
			tally.fail(row.Number, "dados inválidos: %s", describeValidation(validationErrs))
		default:
			s.logger.Error().Err(err).Int("row", row.Number).Msg("teacher import row failed")
			tally.fail(row.Number, "erro ao importar docente")
		}
	}

	s.recordImport(ctx, actor, "teacher", tally.result)
	return tally.result, nil
}

func (s *importService) ImportCourses(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error) {
	rows, err := readSheet(r, []string{columnCourseName, columnPeriod})
	if err != nil {
		return dto.ImportResult{}, err
	}

	tally := newImportTally()
	for _, row := range rows {
		name := row.Get(columnCourseName)
		period := row.Get(columnPeriod)
		if name == "" {
			tally.fail(row.Number, "Nome do Curso é obrigatório")
			continue
		}
		if period == "" {
			tally.fail(row.Number, "Período é obrigatório")
			continue
		}

		var unitNames []string
		for i := 1; i <= models.MaxUnitsPerCourseRow; i++ {
			if unit := row.Get(unitColumn(i)); unit != "" {
				unitNames = append(unitNames, unit)
			}
		}

		err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
			course, err := s.courses.FindByName(ctx, name, period)
			switch {
			case err == nil:
				tally.warn(row.Number, "curso %s (%s) já cadastrado, unidades adicionadas ao existente", name, period)
			case isNotFound(err):
				course = models.Course{
					Name:                name,
					Period:              period,
					CurriculumComponent: row.Get(columnComponent),
					ClassCode:           row.Get(columnClassCode),
				}
				if err := s.courses.Create(ctx, &course); err != nil {
					return err
				}
			default:
				return err
			}

			for _, unitName := range unitNames {
				if _, err := s.units.FindByName(ctx, course.ID, unitName); err == nil {
					tally.warn(row.Number, "unidade curricular %s já existe no curso", unitName)
					continue
				} else if !isNotFound(err) {
					return err
				}
				unit := models.CurricularUnit{Name: unitName, CourseID: course.ID, IsActive: true}
				if err := s.units.Create(ctx, &unit); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error().Err(err).Int("row", row.Number).Msg("course import row failed")
			tally.fail(row.Number, "erro ao importar curso %s", name)
			continue
		}
		tally.result.SuccessCount++
	}

	s.recordImport(ctx, actor, "course", tally.result)
	return tally.result, nil
}

func (s *importService) ImportUnits(ctx context.Context, actor ActivityActor, r io.Reader) (dto.ImportResult, error) {
	rows, err := readSheet(r, []string{columnUnitName, columnCourse})
	if err != nil {
		return dto.ImportResult{}, err
	}

	tally := newImportTally()
	for _, row := range rows {
		name := row.Get(columnUnitName)
		courseName := row.Get(columnCourse)
		if name == "" {
			tally.fail(row.Number, "Nome da Unidade é obrigatório")
			continue
		}
		if courseName == "" {
			tally.fail(row.Number, "Curso é obrigatório")
			continue
		}

		var workload *int
		if raw := row.Get(columnWorkload); raw != "" {
			hours, err := strconv.Atoi(raw)
			if err != nil || hours < 0 {
				tally.fail(row.Number, "Carga Horária inválida: %s", raw)
				continue
			}
			workload = &hours
		}

		course, err := s.courses.FindByName(ctx, courseName, "")
		if err != nil {
			if isNotFound(err) {
				tally.fail(row.Number, "curso %s não encontrado", courseName)
				continue
			}
			return dto.ImportResult{}, err
		}
		if _, err := s.units.FindByName(ctx, course.ID, name); err == nil {
			tally.warn(row.Number, "unidade curricular %s já existe no curso %s, linha ignorada", name, course.Name)
			continue
		} else if !isNotFound(err) {
			return dto.ImportResult{}, err
		}

		unit := models.CurricularUnit{
			Name:        name,
			Code:        row.Get(columnCode),
			CourseID:    course.ID,
			Workload:    workload,
			Description: row.Get(columnDescription),
			IsActive:    true,
		}
		if err := s.units.Create(ctx, &unit); err != nil {
			s.logger.Error().Err(err).Int("row", row.Number).Msg("unit import row failed")
			tally.fail(row.Number, "erro ao importar unidade curricular %s", name)
			continue
		}
		tally.result.SuccessCount++
	}

	s.recordImport(ctx, actor, "curricular_unit", tally.result)
	return tally.result, nil
}

func (s *importService) recordImport(ctx context.Context, actor ActivityActor, entity string, result dto.ImportResult) {
	s.logger.Info().
		Str("entity", entity).
		Int("success", result.SuccessCount).
		Int("errors", len(result.Errors)).
		Int("warnings", len(result.Warnings)).
		Msg("spreadsheet import finished")
	recordActivity(ctx, s.activity, s.logger, actor, ActionImportCompleted, entity, 0, map[string]interface{}{
		"success_count": result.SuccessCount,
		"errors":        len(result.Errors),
		"warnings":      len(result.Warnings),
	})
}

func (s *importService) TeacherTemplate() (Report, error) {
	content, err := excel.Write("Docentes", teacherColumns, [][]string{
		{"SN1234567", "Ana Lima", "Mecânica", "ana.lima@escola.br"},
	})
	if err != nil {
		return Report{}, err
	}
	return Report{Filename: "modelo_importacao_docentes.xlsx", Content: content}, nil
}

func (s *importService) CourseTemplate() (Report, error) {
	example := []string{"Técnico em Mecânica", "Noturno", "Base Técnica", "MEC-01", "Usinagem", "Metrologia"}
	columns := courseColumns()
	row := make([]string, len(columns))
	copy(row, example)
	content, err := excel.Write("Cursos", columns, [][]string{row})
	if err != nil {
		return Report{}, err
	}
	return Report{Filename: "modelo_importacao_cursos.xlsx", Content: content}, nil
}

func (s *importService) UnitTemplate() (Report, error) {
	content, err := excel.Write("Unidades", unitColumns, [][]string{
		{"Usinagem", "Técnico em Mecânica", "UC01", "80", "Processos de usinagem convencional"},
	})
	if err != nil {
		return Report{}, err
	}
	return Report{Filename: "modelo_importacao_unidades.xlsx", Content: content}, nil
}

// ExportTeachers writes every teacher using the import template layout.
func (s *importService) ExportTeachers(ctx context.Context) (Report, error) {
	teachers, _, err := s.teacherDB.List(ctx, repository.TeacherFilter{})
	if err != nil {
		return Report{}, err
	}
	rows := make([][]string, 0, len(teachers))
	for _, teacher := range teachers {
		rows = append(rows, []string{teacher.NIF, teacher.Name, teacher.Area, teacher.Email})
	}
	content, err := excel.Write("Docentes", teacherColumns, rows)
	if err != nil {
		return Report{}, err
	}
	return Report{Filename: "docentes.xlsx", Content: content}, nil
}

func describeValidation(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		fields = append(fields, strings.ToLower(fieldErr.Field()))
	}
	return strings.Join(fields, ", ")
}
