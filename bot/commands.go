package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// start runs the retention sweep, gates on the allow-list and shows the
// role-appropriate menu.
func (t *TgBot) start(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id

	if _, err := t.core.PurgeExpired(); err != nil {
		t.reportError(chatId, "/start purge", err)
		return nil
	}

	allowed, err := t.core.IsAllowed(chatId)
	if err != nil {
		t.reportError(chatId, "/start", err)
		return nil
	}
	if !allowed {
		t.plainResponse(chatId, "You do not have access to this bot\\. Contact the administrator\\.")
		return nil
	}

	if t.core.IsAdmin(chatId) {
		t.sendWithKeyboard(chatId, "Welcome, admin\\. Pick an action:", buildAdminMenu())
		return nil
	}
	t.sendWithKeyboard(chatId, "Welcome\\. Pick an action:", buildUserMenu())
	return nil
}

func (t *TgBot) help(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	isAdmin := t.core.IsAdmin(chatId)

	var sb strings.Builder
	sb.WriteString("*Available actions*\n\n")
	sb.WriteString("`/start` \\- Open the action menu\n")
	sb.WriteString("Check code \\- Look up a code's status\n")
	sb.WriteString("List codes \\- Show all codes\n")

	if isAdmin {
		sb.WriteString("\n*Admin actions:*\n")
		sb.WriteString("Add code \\- Register a new code\n")
		sb.WriteString("Generate code \\- Issue a random code\n")
		sb.WriteString("Delete code \\- Remove a code\n")
		sb.WriteString("Manage users \\- Toggle a user's access\n")
		sb.WriteString("`/purge` \\- Purge codes past retention\n")
	}

	t.plainResponse(chatId, sb.String())
	return nil
}

// purge triggers the retention sweep on demand.
func (t *TgBot) purge(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	if !t.core.IsAdmin(chatId) {
		t.plainResponse(chatId, "Admin access required\\.")
		return nil
	}

	removed, err := t.core.PurgeExpired()
	if err != nil {
		t.reportError(chatId, "/purge", err)
		return nil
	}
	t.plainResponse(chatId, fmt.Sprintf("Retention purge removed %d code\\(s\\)\\.", removed))
	return nil
}
