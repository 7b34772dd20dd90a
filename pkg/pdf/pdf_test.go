package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRenderEvaluationProducesPDF(t *testing.T) {
	signed := time.Date(2025, time.March, 21, 10, 0, 0, 0, time.UTC)
	out, err := RenderEvaluation(EvaluationReport{
		TeacherName:         "Ana Lima",
		CourseName:          "Técnico em Mecânica",
		Period:              "Noturno",
		Date:                time.Date(2025, time.March, 20, 0, 0, 0, 0, time.UTC),
		EvaluatorName:       "Carlos",
		PlanningPercentage:  85.7,
		ClassPercentage:     70.6,
		PlanningItems:       []ChecklistLine{{Category: "planning", Label: "Elabora cronograma", Value: "Sim"}},
		ClassItems:          []ChecklistLine{{Category: "class", Label: "Efetua registros", Value: ""}},
		GeneralObservations: "Boa condução da aula.",
		TeacherSignedAt:     &signed,
		GeneratedAt:         signed,
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestRenderConsolidatedAndCredentials(t *testing.T) {
	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	out, err := RenderConsolidated(ConsolidatedReport{
		TeacherName: "Ana Lima",
		Area:        "Mecânica",
		From:        &from,
		Rows: []ConsolidatedRow{
			{Date: from.AddDate(0, 2, 0), CourseName: "Mecânica", PlanningPercentage: 100, ClassPercentage: 50},
		},
		AveragePlanning: 100,
		AverageClass:    50,
		GeneratedAt:     from,
	})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	out, err = RenderCredentials(CredentialsSheet{Name: "Ana", NIF: "SN1234567", Username: "sn1234567", Password: "Ab3dE5gH", GeneratedAt: from})
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestTruncateKeepsRunes(t *testing.T) {
	require.Equal(t, "Condu...", truncate("Condução da aula", 8))
	require.Equal(t, "curto", truncate("curto", 8))
}
