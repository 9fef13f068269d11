package telegram

import (
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// slogAdapter routes the library's polling errors into slog.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Println(v ...interface{}) {
	a.logger.Warn(strings.TrimSpace(fmt.Sprintln(v...)), "component", "telegram")
}

func (a slogAdapter) Printf(format string, v ...interface{}) {
	a.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "telegram")
}

func UseLogger(logger *slog.Logger) {
	_ = tgbotapi.SetLogger(slogAdapter{logger: logger})
}
