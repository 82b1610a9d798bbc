package commands

import (
	"fmt"

	"browsir/internal/cli/ui"

	"go.uber.org/zap"
)

// LogsCmd выводит запросы к модели для одного прогона.
type LogsCmd struct {
	RunID string `arg:"" name:"run-id" help:"Extraction run ID"`
	Full  bool   `help:"Show full prompts and responses"`
}

func (c *LogsCmd) Run(deps *Dependencies) error {
	if deps.History == nil {
		return errNoHistory
	}

	logs, err := deps.History.ListLLMLogs(deps.Ctx, c.RunID)
	if err != nil {
		deps.Log.Error("Ошибка чтения логов модели", zap.Error(err))
		return fmt.Errorf("чтение логов модели: %w", err)
	}

	fmt.Fprintf(deps.Stdout, ui.ColorBold+"=== "+ui.IconList+" Запросы к модели, прогон %s ==="+ui.ColorReset+"\n", c.RunID)
	if len(logs) == 0 {
		fmt.Fprintln(deps.Stdout, ui.ColorGray+"Запросы не найдены"+ui.ColorReset)
		return nil
	}

	limit := 200
	if c.Full {
		limit = 0
	}

	for i, l := range logs {
		fmt.Fprintf(deps.Stdout, "\n"+ui.ColorBold+"[%d]"+ui.ColorReset+" "+ui.ColorGray+"%s"+ui.ColorReset+" %s/%s, токенов: %d, %dms\n",
			i+1, l.CreatedAt.Format("15:04:05"), l.Provider, l.Model, l.TokensUsed, l.DurationMs)
		if l.Error != "" {
			fmt.Fprintf(deps.Stdout, "  "+ui.ColorRed+"[ОШИБКА]"+ui.ColorReset+" %s\n", l.Error)
		}
		if l.ResponseText != "" {
			fmt.Fprintf(deps.Stdout, "  "+ui.ColorCyan+ui.IconChat+" Ответ:"+ui.ColorReset+" %s\n", ui.Truncate(l.ResponseText, limit))
		}
		if c.Full {
			fmt.Fprintf(deps.Stdout, "  "+ui.ColorGray+"Промпт:"+ui.ColorReset+" %s\n", l.PromptText)
		}
	}
	fmt.Fprintln(deps.Stdout)

	return nil
}
