package commands

import (
	"errors"

	"browsir/internal/server"
)

// ServeCmd запускает HTTP-сервис.
type ServeCmd struct{}

func (c *ServeCmd) Run(deps *Dependencies) error {
	if deps.Extractor == nil {
		return errors.New("агент извлечения не инициализирован")
	}
	return server.New(deps.Cfg, deps.Log, deps.Extractor).Run(deps.Ctx)
}
