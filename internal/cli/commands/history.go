package commands

import (
	"errors"
	"fmt"
	"time"

	"browsir/internal/cli/ui"

	"go.uber.org/zap"
)

var errNoHistory = errors.New("история недоступна: DB_HOST не задан")

// HistoryCmd выводит последние извлечения.
type HistoryCmd struct {
	Limit  int `short:"n" default:"20" help:"How many extractions to show"`
	Offset int `default:"0" help:"Skip this many newest extractions"`
}

func (c *HistoryCmd) Run(deps *Dependencies) error {
	if deps.History == nil {
		return errNoHistory
	}

	extractions, err := deps.History.ListExtractions(deps.Ctx, c.Limit, c.Offset)
	if err != nil {
		deps.Log.Error("Ошибка чтения истории", zap.Error(err))
		return fmt.Errorf("чтение истории: %w", err)
	}

	if len(extractions) == 0 {
		fmt.Fprintln(deps.Stdout, ui.ColorGray+"Извлечений пока нет"+ui.ColorReset)
		return nil
	}

	fmt.Fprintln(deps.Stdout, ui.ColorBold+ui.IconList+" История извлечений:"+ui.ColorReset)
	fmt.Fprintln(deps.Stdout)
	for _, e := range extractions {
		icon, color, text := ui.FormatStatus(e.Status)
		fmt.Fprintf(deps.Stdout, "  %s%s %s"+ui.ColorReset+" "+ui.ColorGray+"%s"+ui.ColorReset+" %s\n",
			color, icon, text, e.CreatedAt.Format("2006-01-02 15:04:05"), e.RunID)
		fmt.Fprintf(deps.Stdout, "  "+ui.ColorGray+"└─"+ui.ColorReset+" "+ui.IconGlobe+" %s\n", e.URL)
		if e.Title != "" {
			fmt.Fprintf(deps.Stdout, "     "+ui.ColorCyan+"%s"+ui.ColorReset+"\n", ui.Truncate(e.Title, 80))
		}
		fmt.Fprintf(deps.Stdout, "     попыток: %d, кликов: %d, текст: %d, картинок: %d, %s\n",
			e.Attempts, e.Clicks, e.BodyLength, e.ImageCount, time.Duration(e.DurationMs)*time.Millisecond)
		if e.Error != "" {
			fmt.Fprintf(deps.Stdout, "     "+ui.ColorRed+"[%s]"+ui.ColorReset+" %s\n", e.ErrorKind, ui.Truncate(e.Error, 120))
		}
		fmt.Fprintln(deps.Stdout)
	}

	return nil
}
