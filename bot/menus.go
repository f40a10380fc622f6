package bot

import (
	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
)

// Per-role command lists for Telegram's menu button (the "/" icon in the chat
// input). Multi-step operations live behind inline keyboards, so the command
// menu stays short.

var commandsDefault = []tgbotapi.BotCommand{
	{Command: "start", Description: "Open the menu"},
	{Command: "help", Description: "Show available actions"},
}

var commandsAdmin = []tgbotapi.BotCommand{
	{Command: "start", Description: "Open the admin menu"},
	{Command: "purge", Description: "Purge codes past retention"},
	{Command: "help", Description: "Show available actions"},
}

// setDefaultCommands sets the default bot menu for unknown users.
func (t *TgBot) setDefaultCommands() {
	_, err := t.api.SetMyCommands(commandsDefault, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeDefault{},
	})
	if err != nil {
		t.log.Warn("setting default commands", "error", err)
	}
}

// setUserCommands sets the command menu for a specific chat.
func (t *TgBot) setUserCommands(chatId int64, isAdmin bool) {
	commands := commandsDefault
	if isAdmin {
		commands = commandsAdmin
	}
	_, err := t.api.SetMyCommands(commands, &tgbotapi.SetMyCommandsOpts{
		Scope: tgbotapi.BotCommandScopeChat{ChatId: chatId},
	})
	if err != nil {
		t.log.Warn("setting user commands", "chat_id", chatId, "error", err)
	}
}

// --- Inline menu builders ---

// buildAdminMenu is the full action menu shown to the administrator on /start.
func buildAdminMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "Add code", CallbackData: cbAddCode}},
			{{Text: "Generate code", CallbackData: cbGenerate}},
			{{Text: "Delete code", CallbackData: cbDeleteCode}},
			{{Text: "Manage users", CallbackData: cbManageUsers}},
			{{Text: "List codes", CallbackData: cbListCodes}},
			{{Text: "Check code", CallbackData: cbCheckCode}},
		},
	}
}

// buildUserMenu is the reduced menu for allowed non-admin users.
func buildUserMenu() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "Check code", CallbackData: cbCheckCode}},
			{{Text: "List codes", CallbackData: cbListCodes}},
		},
	}
}

// buildCodeActions is attached to a check result for an ACTIVE code.
// USED and EXPIRED codes get no actionable buttons.
func buildCodeActions(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.InlineKeyboardMarkup{
		InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{
			{{Text: "Use", CallbackData: cbUseCode + code}},
			{{Text: "Cancel", CallbackData: cbCancelCode + code}},
			{{Text: "Back", CallbackData: cbBackCode + code}},
		},
	}
}
