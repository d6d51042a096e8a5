package roster

import (
	"fmt"
	"io"

	"contest-service/internal/domain"
	"github.com/xuri/excelize/v2"
)

var leaderboardHeader = []string{"Rank", "Username", "Current Round", "Score", "Total", "Percentage", "Completed At"}

// WriteLeaderboard renders a leaderboard as a single-sheet workbook.
func WriteLeaderboard(w io.Writer, board domain.Leaderboard) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := fmt.Sprintf("Round %d", board.Round)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &leaderboardHeader); err != nil {
		return err
	}
	for i, e := range board.Entries {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			e.Rank,
			e.Username,
			int(e.CurrentRound),
			e.Score,
			e.Total,
			fmt.Sprintf("%.2f", e.Percentage),
			e.CompletedAt.UTC().Format("2006-01-02 15:04:05"),
		}
		if err := f.SetSheetRow(sheet, axis, &row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
