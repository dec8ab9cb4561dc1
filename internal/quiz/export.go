package quiz

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"classquiz/internal/models"
)

var exportHeader = []string{"full_name", "submitted_at", "score", "out_of", "quiz_name", "class_name"}

// WriteResultsCSV writes one row per result under a fixed header.
func WriteResultsCSV(w io.Writer, records []models.ResultRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.FullName,
			rec.SubmittedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(rec.Score),
			strconv.Itoa(rec.OutOf),
			rec.QuizName,
			rec.ClassName,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportFilename(quizID uint) string {
	return fmt.Sprintf("quiz-%d-results.csv", quizID)
}
