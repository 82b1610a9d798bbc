// Package cli описывает командную строку browsir поверх kong.
package cli

import (
	"fmt"
	"io"
	"strings"

	"browsir/internal/cli/commands"

	"github.com/alecthomas/kong"
)

// CLI описывает структуру команд для kong. Без команды запускается serve.
type CLI struct {
	Serve   commands.ServeCmd   `cmd:"" default:"1" help:"Start the HTTP extraction service"`
	Extract commands.ExtractCmd `cmd:"" help:"Extract one article and print it as JSON"`
	History commands.HistoryCmd `cmd:"" help:"Show recent extractions"`
	Logs    commands.LogsCmd    `cmd:"" help:"Show oracle requests of one extraction run"`
}

// Parse разбирает аргументы. Команды выполняются позже через Context.Run,
// когда main соберет зависимости.
func Parse(args []string, stdout, stderr io.Writer, opts ...kong.Option) (*kong.Context, error) {
	opts = append([]kong.Option{
		kong.Name("browsir"),
		kong.Description("Popup-aware article extraction service."),
		kong.Writers(stdout, stderr),
		kong.UsageOnError(),
	}, opts...)

	parser, err := kong.New(&CLI{}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		return nil, err
	}
	return kctx, nil
}

// NeedsAgent сообщает, нужны ли команде браузер и оракул.
func NeedsAgent(kctx *kong.Context) bool {
	switch commandName(kctx) {
	case "serve", "extract":
		return true
	default:
		return false
	}
}

func commandName(kctx *kong.Context) string {
	fields := strings.Fields(kctx.Command())
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Run выполняет разобранную команду.
func Run(kctx *kong.Context, deps *commands.Dependencies) error {
	return kctx.Run(deps)
}
