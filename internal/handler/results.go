package handler

import (
	"log/slog"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/aathi-11/university-voting-portal/internal/service"
	"github.com/aathi-11/university-voting-portal/internal/util"
)

// ResultsHandler serves the live tally, its exports and the announcement.
type ResultsHandler struct {
	Tally   *service.Tally
	Ballots *service.Ballots
	Log     *slog.Logger
}

func NewResultsHandler(tally *service.Tally, ballots *service.Ballots, logger *slog.Logger) *ResultsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultsHandler{Tally: tally, Ballots: ballots, Log: logger}
}

type tallyRow struct {
	Candidate string `json:"candidate"`
	Votes     int    `json:"votes"`
}

// sortedTally orders candidates by votes, then by name.
func sortedTally(results map[string]int) []tallyRow {
	rows := make([]tallyRow, 0, len(results))
	for cand, n := range results {
		rows = append(rows, tallyRow{Candidate: cand, Votes: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Votes != rows[j].Votes {
			return rows[i].Votes > rows[j].Votes
		}
		return rows[i].Candidate < rows[j].Candidate
	})
	return rows
}

func (h *ResultsHandler) Results(c *gin.Context) {
	results := h.Tally.Current()
	total := 0
	for _, n := range results {
		total += n
	}

	util.Success(c, util.Response{
		"results": results,
		"ranking": sortedTally(results),
		"total":   total,
		"audit":   h.Ballots.Audit(),
	})
}

func (h *ResultsHandler) Announce(c *gin.Context) {
	a, err := h.Tally.Announce()
	if err != nil {
		writeError(c, h.Log, err)
		return
	}

	util.Success(c, util.Response{
		"message":     "Results announced",
		"results":     a.Results,
		"announcedAt": a.AnnouncedAt,
	})
}

// AnnouncedResults is public. Nothing announced yet and a signature that
// no longer verifies are reported differently.
func (h *ResultsHandler) AnnouncedResults(c *gin.Context) {
	a, valid := h.Tally.VerifyPublished()
	if valid.IsNone() {
		util.Success(c, util.Response{
			"announced": false,
			"results":   map[string]int{},
		})
		return
	}

	util.Success(c, util.Response{
		"announced":      true,
		"results":        a.Results,
		"announcedAt":    a.AnnouncedAt,
		"signatureValid": valid.Unwrap(),
	})
}
