package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/aathi-11/university-voting-portal/internal/util"
)

const tallySheet = "Tally"

func exportName(ext string) string {
	return fmt.Sprintf("tally_%s.%s", time.Now().UTC().Format("20060102_150405"), ext)
}

// ExportCSV downloads the live tally as CSV.
func (h *ResultsHandler) ExportCSV(c *gin.Context) {
	rows := sortedTally(h.Tally.Current())

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportName("csv")))
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	records := [][]string{{"candidate", "votes"}}
	for _, r := range rows {
		records = append(records, []string{csvSafe(r.Candidate), strconv.Itoa(r.Votes)})
	}
	if err := w.WriteAll(records); err != nil {
		h.Log.Error("csv export failed", "error", err)
	}
}

// csvSafe keeps spreadsheet apps from evaluating a cell as a formula.
func csvSafe(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// ExportXLSX downloads the live tally as a single-sheet workbook.
func (h *ResultsHandler) ExportXLSX(c *gin.Context) {
	rows := sortedTally(h.Tally.Current())

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(tallySheet)
	if err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to create sheet")
		return
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(tallySheet, "A1", &[]any{"Candidate", "Votes"}); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to write sheet")
		return
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(tallySheet, cell, &[]any{r.Candidate, r.Votes}); err != nil {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "failed to write sheet")
			return
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", exportName("xlsx")))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		h.Log.Error("xlsx export failed", "error", err)
	}
}
