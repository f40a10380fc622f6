package bot

import (
	"errors"
	"fmt"
	"strings"

	"codegate/entity"
	"codegate/impl/core"

	tgbotapi "github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
)

// Callback data tags for inline keyboard buttons.
// Telegram limits callback data to 64 bytes, so the per-code tags keep a
// short prefix in front of the code value (e.g. "use:PROMO2024").
const (
	cbAddCode     = "add"
	cbDeleteCode  = "del"
	cbManageUsers = "usr"
	cbCheckCode   = "chk"
	cbListCodes   = "list"
	cbGenerate    = "gen"
	cbUseCode     = "use:"
	cbCancelCode  = "cxl:"
	cbBackCode    = "bck:"
)

var errUnauthorized = errors.New("not authorized")

// menuActions maps prompt-style callback tags to the pending action they start.
var menuActions = map[string]entity.Action{
	cbAddCode:     entity.ActionAddCode,
	cbDeleteCode:  entity.ActionDeleteCode,
	cbManageUsers: entity.ActionManageUser,
	cbCheckCode:   entity.ActionCheckCode,
}

// actionPrompts is the message sent when a pending action is recorded.
var actionPrompts = map[entity.Action]string{
	entity.ActionAddCode:    "Send the new code:",
	entity.ActionDeleteCode: "Send the code to delete:",
	entity.ActionManageUser: "Send the numeric user ID to grant or revoke access:",
	entity.ActionCheckCode:  "Send the code to check:",
}

// beginAction authorizes and records a pending action for the user, returning
// the prompt to send. On errUnauthorized no pending action is recorded.
func (t *TgBot) beginAction(chatId int64, action entity.Action) (string, error) {
	if action.AdminOnly() {
		if !t.core.IsAdmin(chatId) {
			return "", errUnauthorized
		}
	} else {
		allowed, err := t.core.IsAllowed(chatId)
		if err != nil {
			return "", err
		}
		if !allowed {
			return "", errUnauthorized
		}
	}
	t.sessions.Set(chatId, action)
	return actionPrompts[action], nil
}

// onMenuAction handles the four prompt-style menu buttons: it records the
// pending action and asks for the next message.
func (t *TgBot) onMenuAction(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	action, ok := menuActions[cq.Data]
	if !ok {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Unknown action"})
		return nil
	}

	prompt, err := t.beginAction(chatId, action)
	if errors.Is(err, errUnauthorized) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}
	if err != nil {
		t.reportError(chatId, string(action), err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	t.plainResponse(chatId, Sanitize(prompt))
	_, _ = cq.Answer(t.api, nil)
	return nil
}

// onListCodes renders every stored code with its derived status.
// Runs the retention sweep first so the list never shows rows past retention.
func (t *TgBot) onListCodes(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	allowed, err := t.core.IsAllowed(chatId)
	if err != nil {
		t.reportError(chatId, "list", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}
	if !allowed {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	if _, err = t.core.PurgeExpired(); err != nil {
		t.reportError(chatId, "list:purge", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	codes, err := t.core.ListCodes()
	if err != nil {
		t.reportError(chatId, "list", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	for _, part := range splitMessage(t.renderCodeList(codes), maxTelegramMessageLen) {
		t.plainResponse(chatId, part)
	}
	_, _ = cq.Answer(t.api, nil)
	return nil
}

func (t *TgBot) renderCodeList(codes []*entity.Code) string {
	if len(codes) == 0 {
		return "No codes yet\\."
	}
	now := t.now()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*Codes* \\(%d\\):\n", len(codes)))
	for _, c := range codes {
		sb.WriteString(fmt.Sprintf("\\- `%s`: %s\n", Sanitize(c.Code), Sanitize(c.Status(now).Label())))
	}
	return sb.String()
}

// onGenerateCode issues a random code on behalf of the admin, no prompt needed.
func (t *TgBot) onGenerateCode(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	if !t.core.IsAdmin(chatId) {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	code, err := t.core.GenerateCode()
	if err != nil {
		t.reportError(chatId, "generate", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	t.plainResponse(chatId, fmt.Sprintf("Code generated: `%s`\n%s",
		Sanitize(code.Code), Sanitize(code.Status(t.now()).Label())))
	_, _ = cq.Answer(t.api, nil)
	return nil
}

// onUseCallback runs the validity protocol and marks the code used.
// Each rejection reason gets its own reply so terminal states stay
// distinguishable.
func (t *TgBot) onUseCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id

	allowed, err := t.core.IsAllowed(chatId)
	if err != nil || !allowed {
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Not authorized", ShowAlert: true})
		return nil
	}

	value := strings.TrimPrefix(cq.Data, cbUseCode)
	err = t.core.UseCode(value)

	var text string
	switch {
	case err == nil:
		text = fmt.Sprintf("Code `%s` has been used\\.", Sanitize(value))
	case errors.Is(err, core.ErrCodeNotFound):
		text = fmt.Sprintf("Code `%s` not found\\.", Sanitize(value))
	case errors.Is(err, core.ErrCodeUsed):
		text = fmt.Sprintf("Code `%s` is already used\\.", Sanitize(value))
	case errors.Is(err, core.ErrCodeExpired):
		text = fmt.Sprintf("Code `%s` has expired\\.", Sanitize(value))
	default:
		t.reportError(chatId, "use", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	t.editCallbackMessage(cq, text)
	_, _ = cq.Answer(t.api, nil)
	return nil
}

func (t *TgBot) onCancelCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	value := strings.TrimPrefix(cq.Data, cbCancelCode)
	t.editCallbackMessage(cq, fmt.Sprintf("Operation cancelled for code `%s`\\.", Sanitize(value)))
	_, _ = cq.Answer(t.api, nil)
	return nil
}

// onBackCallback re-renders the status of the code the message was about.
func (t *TgBot) onBackCallback(_ *tgbotapi.Bot, ctx *ext.Context) error {
	cq := ctx.CallbackQuery
	chatId := cq.From.Id
	value := strings.TrimPrefix(cq.Data, cbBackCode)

	code, err := t.core.CheckCode(value)
	var text string
	switch {
	case err == nil:
		text = fmt.Sprintf("Code `%s`: %s", Sanitize(value), Sanitize(code.Status(t.now()).Label()))
	case errors.Is(err, core.ErrCodeNotFound):
		text = fmt.Sprintf("Code `%s` not found\\.", Sanitize(value))
	default:
		t.reportError(chatId, "back", err)
		_, _ = cq.Answer(t.api, &tgbotapi.AnswerCallbackQueryOpts{Text: "Error occurred"})
		return nil
	}

	t.editCallbackMessage(cq, text)
	_, _ = cq.Answer(t.api, nil)
	return nil
}

// editCallbackMessage replaces the text of the message the callback came from.
func (t *TgBot) editCallbackMessage(cq *tgbotapi.CallbackQuery, text string) {
	msg := cq.Message
	if msg == nil {
		return
	}
	if im, ok := msg.(tgbotapi.Message); ok {
		_, _, err := t.api.EditMessageText(text, &tgbotapi.EditMessageTextOpts{
			ChatId:    cq.From.Id,
			MessageId: im.MessageId,
			ParseMode: "MarkdownV2",
		})
		if err != nil {
			t.log.Warn("editing message", "chat_id", cq.From.Id, "error", err)
		}
	}
}
