package telegram

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/harun/yordamchi/internal/locale"
	"github.com/rs/zerolog/log"
)

// commandKeys lists the published slash commands with their description keys.
var commandKeys = []struct {
	command string
	key     string
}{
	{"start", "command.start"},
	{"menu", "command.menu"},
}

// Commands builds the command list for lang.
func Commands(catalog *locale.Catalog, lang string) []tgbotapi.BotCommand {
	commands := make([]tgbotapi.BotCommand, 0, len(commandKeys))
	for _, c := range commandKeys {
		commands = append(commands, tgbotapi.BotCommand{
			Command:     c.command,
			Description: catalog.T(lang, c.key),
		})
	}
	return commands
}

// PublishCommands sets the bot's command list once per catalog language, plus the
// default list in the default language for clients in any other language.
func PublishCommands(api API, catalog *locale.Catalog) error {
	scope := tgbotapi.NewBotCommandScopeDefault()

	if _, err := api.Request(tgbotapi.NewSetMyCommandsWithScope(scope, Commands(catalog, locale.DefaultLanguage)...)); err != nil {
		return fmt.Errorf("failed to set commands: %w", err)
	}

	for _, lang := range catalog.Languages() {
		cfg := tgbotapi.NewSetMyCommandsWithScopeAndLanguage(scope, lang, Commands(catalog, lang)...)
		if _, err := api.Request(cfg); err != nil {
			return fmt.Errorf("failed to set %s commands: %w", lang, err)
		}
	}

	log.Logger.Info().
		Str("component", "telegram").
		Int("count", len(commandKeys)).
		Msg("Bot commands updated")
	return nil
}
