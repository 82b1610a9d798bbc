package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"browsir/internal/cli/ui"
)

// ExtractCmd извлекает одну статью и печатает ее как JSON.
type ExtractCmd struct {
	URL     string `arg:"" help:"Article URL"`
	Compact bool   `help:"Print JSON on a single line"`
}

func (c *ExtractCmd) Run(deps *Dependencies) error {
	if deps.Extractor == nil {
		return errors.New("агент извлечения не инициализирован")
	}

	article, err := deps.Extractor.Extract(deps.Ctx, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, ui.ColorRed+ui.IconCross+" Ошибка:"+ui.ColorReset+" %v\n", err)
		return err
	}

	enc := json.NewEncoder(deps.Stdout)
	enc.SetEscapeHTML(false)
	if !c.Compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(article)
}
