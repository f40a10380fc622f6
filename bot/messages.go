package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"codegate/entity"
	"codegate/impl/core"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// onText consumes the pending action, if any. A message from a user with no
// pending action is silently ignored.
func (t *TgBot) onText(_ *tgbotapi.Bot, ctx *ext.Context) error {
	chatId := ctx.EffectiveUser.Id
	text := strings.TrimSpace(ctx.EffectiveMessage.Text)

	action := t.sessions.Take(chatId)
	if action == entity.ActionNone {
		return nil
	}

	reply, keyboard := t.consumeAction(chatId, action, text)
	if reply == "" {
		return nil
	}
	if keyboard != nil {
		t.sendWithKeyboard(chatId, reply, *keyboard)
		return nil
	}
	t.plainResponse(chatId, reply)
	return nil
}

// consumeAction resolves a pending action against the input text and returns
// the reply. The session slot is already cleared by the caller; a failed
// operation is reported, never retried.
func (t *TgBot) consumeAction(chatId int64, action entity.Action, text string) (string, *tgbotapi.InlineKeyboardMarkup) {
	// Roles can change between the prompt and the reply, so gate again here.
	if action.AdminOnly() && !t.core.IsAdmin(chatId) {
		return "You are not authorized for this action\\.", nil
	}
	if !action.AdminOnly() {
		allowed, err := t.core.IsAllowed(chatId)
		if err != nil {
			t.reportError(chatId, string(action), err)
			return "", nil
		}
		if !allowed {
			return "You are not authorized for this action\\.", nil
		}
	}

	switch action {
	case entity.ActionAddCode:
		return t.resolveAddCode(chatId, text)
	case entity.ActionDeleteCode:
		return t.resolveDeleteCode(chatId, text)
	case entity.ActionManageUser:
		return t.resolveManageUser(chatId, text)
	case entity.ActionCheckCode:
		return t.resolveCheckCode(chatId, text)
	}
	return "", nil
}

func (t *TgBot) resolveAddCode(chatId int64, text string) (string, *tgbotapi.InlineKeyboardMarkup) {
	code, err := t.core.AddCode(text)
	if err != nil {
		t.reportError(chatId, "add", err)
		return "", nil
	}
	return fmt.Sprintf("Code `%s` added\\.\n%s",
		Sanitize(code.Code), Sanitize(code.Status(t.now()).Label())), nil
}

func (t *TgBot) resolveDeleteCode(chatId int64, text string) (string, *tgbotapi.InlineKeyboardMarkup) {
	err := t.core.DeleteCode(text)
	if errors.Is(err, core.ErrCodeNotFound) {
		return fmt.Sprintf("Code `%s` not found\\.", Sanitize(text)), nil
	}
	if err != nil {
		t.reportError(chatId, "delete", err)
		return "", nil
	}
	return fmt.Sprintf("Code `%s` deleted\\.", Sanitize(text)), nil
}

func (t *TgBot) resolveManageUser(chatId int64, text string) (string, *tgbotapi.InlineKeyboardMarkup) {
	userId, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return "Please send a valid numeric user ID\\.", nil
	}
	granted, err := t.core.ToggleUser(userId)
	if err != nil {
		t.reportError(chatId, "manage", err)
		return "", nil
	}
	if granted {
		return fmt.Sprintf("Access granted: `%d`", userId), nil
	}
	return fmt.Sprintf("Access revoked: `%d`", userId), nil
}

func (t *TgBot) resolveCheckCode(chatId int64, text string) (string, *tgbotapi.InlineKeyboardMarkup) {
	code, err := t.core.CheckCode(text)
	if errors.Is(err, core.ErrCodeNotFound) {
		return fmt.Sprintf("Code `%s` not found\\.", Sanitize(text)), nil
	}
	if err != nil {
		t.reportError(chatId, "check", err)
		return "", nil
	}

	status := code.Status(t.now())
	reply := fmt.Sprintf("Code `%s`: %s", Sanitize(code.Code), Sanitize(status.Label()))
	if status.State == entity.StateActive {
		keyboard := buildCodeActions(code.Code)
		return reply, &keyboard
	}
	// Used or expired codes get no actionable buttons.
	return reply, nil
}
