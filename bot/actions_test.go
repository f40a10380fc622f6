package bot

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"codegate/entity"
	"codegate/impl/core"
	"codegate/impl/session"
)

const testAdminId int64 = 1489673093

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// fakeCore is an in-memory Core for handler tests.
type fakeCore struct {
	adminId int64
	codes   map[string]*entity.Code
	allowed map[int64]bool
}

func newFakeCore() *fakeCore {
	return &fakeCore{
		adminId: testAdminId,
		codes:   make(map[string]*entity.Code),
		allowed: map[int64]bool{testAdminId: true},
	}
}

func (f *fakeCore) AddCode(value string) (*entity.Code, error) {
	code := &entity.Code{Code: value, AddedAt: testNow}
	f.codes[value] = code
	return code, nil
}

func (f *fakeCore) GenerateCode() (*entity.Code, error) {
	return f.AddCode("ABCD1234")
}

func (f *fakeCore) DeleteCode(value string) error {
	if _, ok := f.codes[value]; !ok {
		return core.ErrCodeNotFound
	}
	delete(f.codes, value)
	return nil
}

func (f *fakeCore) CheckCode(value string) (*entity.Code, error) {
	code, ok := f.codes[value]
	if !ok {
		return nil, core.ErrCodeNotFound
	}
	return code, nil
}

func (f *fakeCore) UseCode(value string) error {
	code, ok := f.codes[value]
	if !ok {
		return core.ErrCodeNotFound
	}
	switch code.Status(testNow).State {
	case entity.StateUsed:
		return core.ErrCodeUsed
	case entity.StateExpired:
		return core.ErrCodeExpired
	}
	code.Used = true
	return nil
}

func (f *fakeCore) ListCodes() ([]*entity.Code, error) {
	var codes []*entity.Code
	for _, code := range f.codes {
		codes = append(codes, code)
	}
	return codes, nil
}

func (f *fakeCore) PurgeExpired() (int64, error) {
	cutoff := testNow.AddDate(0, 0, -entity.RetentionDays)
	var removed int64
	for value, code := range f.codes {
		if code.AddedAt.Before(cutoff) {
			delete(f.codes, value)
			removed++
		}
	}
	return removed, nil
}

func (f *fakeCore) IsAdmin(userId int64) bool {
	return userId == f.adminId
}

func (f *fakeCore) IsAllowed(userId int64) (bool, error) {
	return f.allowed[userId], nil
}

func (f *fakeCore) ToggleUser(userId int64) (bool, error) {
	if f.allowed[userId] {
		delete(f.allowed, userId)
		return false, nil
	}
	f.allowed[userId] = true
	return true, nil
}

func newTestBot(t *testing.T) (*TgBot, *fakeCore) {
	t.Helper()
	fc := newFakeCore()
	tgBot := &TgBot{
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		core:     fc,
		sessions: session.New(),
		config:   BotConfig{AdminId: testAdminId},
		now:      func() time.Time { return testNow },
	}
	return tgBot, fc
}

func TestBeginAction_AdminOnlyRejected(t *testing.T) {
	tgBot, fc := newTestBot(t)
	fc.allowed[42] = true

	_, err := tgBot.beginAction(42, entity.ActionAddCode)
	if !errors.Is(err, errUnauthorized) {
		t.Fatalf("expected errUnauthorized, got %v", err)
	}
	if tgBot.sessions.Peek(42) != entity.ActionNone {
		t.Fatal("no pending action may be recorded on rejection")
	}
}

func TestBeginAction_RecordsPendingAction(t *testing.T) {
	tgBot, _ := newTestBot(t)

	prompt, err := tgBot.beginAction(testAdminId, entity.ActionAddCode)
	if err != nil {
		t.Fatalf("beginAction: %v", err)
	}
	if prompt != "Send the new code:" {
		t.Fatalf("unexpected prompt: %q", prompt)
	}
	if tgBot.sessions.Peek(testAdminId) != entity.ActionAddCode {
		t.Fatal("pending action not recorded")
	}
}

func TestBeginAction_CheckRequiresAllowList(t *testing.T) {
	tgBot, fc := newTestBot(t)

	if _, err := tgBot.beginAction(42, entity.ActionCheckCode); !errors.Is(err, errUnauthorized) {
		t.Fatalf("unknown user: expected errUnauthorized, got %v", err)
	}

	fc.allowed[42] = true
	if _, err := tgBot.beginAction(42, entity.ActionCheckCode); err != nil {
		t.Fatalf("allowed user: %v", err)
	}
	if tgBot.sessions.Peek(42) != entity.ActionCheckCode {
		t.Fatal("pending action not recorded for allowed user")
	}
}

func TestConsumeAddCode(t *testing.T) {
	tgBot, fc := newTestBot(t)

	reply, keyboard := tgBot.consumeAction(testAdminId, entity.ActionAddCode, "PROMO2024")
	if keyboard != nil {
		t.Fatal("add reply must not carry a keyboard")
	}
	if !strings.Contains(reply, "added") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if !strings.Contains(reply, "ACTIVE \\- 30 days left") {
		t.Fatalf("reply must show the fresh status, got %q", reply)
	}
	code, ok := fc.codes["PROMO2024"]
	if !ok || code.Used {
		t.Fatalf("code not stored as unused: %+v", code)
	}
}

func TestConsumeAddCode_NonAdmin(t *testing.T) {
	tgBot, fc := newTestBot(t)
	fc.allowed[42] = true

	reply, _ := tgBot.consumeAction(42, entity.ActionAddCode, "PROMO2024")
	if !strings.Contains(reply, "not authorized") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if _, ok := fc.codes["PROMO2024"]; ok {
		t.Fatal("unauthorized add must not touch the registry")
	}
}

func TestConsumeDeleteCode(t *testing.T) {
	tgBot, fc := newTestBot(t)
	fc.codes["GONE"] = &entity.Code{Code: "GONE", AddedAt: testNow}

	reply, _ := tgBot.consumeAction(testAdminId, entity.ActionDeleteCode, "GONE")
	if !strings.Contains(reply, "deleted") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if _, ok := fc.codes["GONE"]; ok {
		t.Fatal("code still present after delete")
	}

	reply, _ = tgBot.consumeAction(testAdminId, entity.ActionDeleteCode, "GONE")
	if !strings.Contains(reply, "not found") {
		t.Fatalf("expected not-found reply, got %q", reply)
	}
}

func TestConsumeManageUser_InvalidInput(t *testing.T) {
	tgBot, fc := newTestBot(t)

	reply, _ := tgBot.consumeAction(testAdminId, entity.ActionManageUser, "not-a-number")
	if reply != "Please send a valid numeric user ID\\." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if len(fc.allowed) != 1 {
		t.Fatal("allow-list must be unchanged on invalid input")
	}
}

func TestConsumeManageUser_ToggleRoundTrip(t *testing.T) {
	tgBot, fc := newTestBot(t)

	reply, _ := tgBot.consumeAction(testAdminId, entity.ActionManageUser, "42")
	if !strings.Contains(reply, "granted") {
		t.Fatalf("expected grant, got %q", reply)
	}
	if !fc.allowed[42] {
		t.Fatal("user 42 not granted")
	}

	reply, _ = tgBot.consumeAction(testAdminId, entity.ActionManageUser, "42")
	if !strings.Contains(reply, "revoked") {
		t.Fatalf("expected revoke, got %q", reply)
	}
	if fc.allowed[42] {
		t.Fatal("user 42 not revoked")
	}
}

func TestConsumeCheckCode_ActiveHasActions(t *testing.T) {
	tgBot, fc := newTestBot(t)
	fc.allowed[42] = true
	fc.codes["PROMO2024"] = &entity.Code{Code: "PROMO2024", AddedAt: testNow}

	reply, keyboard := tgBot.consumeAction(42, entity.ActionCheckCode, "PROMO2024")
	if !strings.Contains(reply, "ACTIVE \\- 30 days left") {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if keyboard == nil {
		t.Fatal("active code must offer action buttons")
	}
	if len(keyboard.InlineKeyboard) != 3 {
		t.Fatalf("expected 3 action rows, got %d", len(keyboard.InlineKeyboard))
	}
	wantData := []string{"use:PROMO2024", "cxl:PROMO2024", "bck:PROMO2024"}
	for i, row := range keyboard.InlineKeyboard {
		if row[0].CallbackData != wantData[i] {
			t.Fatalf("row %d: expected %q, got %q", i, wantData[i], row[0].CallbackData)
		}
	}
}

func TestConsumeCheckCode_TerminalStatesHaveNoActions(t *testing.T) {
	tgBot, fc := newTestBot(t)
	fc.allowed[42] = true
	fc.codes["USED"] = &entity.Code{Code: "USED", AddedAt: testNow, Used: true}
	fc.codes["STALE"] = &entity.Code{Code: "STALE", AddedAt: testNow.AddDate(0, 0, -31)}

	reply, keyboard := tgBot.consumeAction(42, entity.ActionCheckCode, "USED")
	if !strings.Contains(reply, "USED") || keyboard != nil {
		t.Fatalf("used code: reply %q keyboard %v", reply, keyboard)
	}

	reply, keyboard = tgBot.consumeAction(42, entity.ActionCheckCode, "STALE")
	if !strings.Contains(reply, "EXPIRED") || keyboard != nil {
		t.Fatalf("expired code: reply %q keyboard %v", reply, keyboard)
	}
}

func TestConsumeCheckCode_NotFound(t *testing.T) {
	tgBot, _ := newTestBot(t)

	reply, keyboard := tgBot.consumeAction(testAdminId, entity.ActionCheckCode, "MISSING")
	if !strings.Contains(reply, "not found") || keyboard != nil {
		t.Fatalf("reply %q keyboard %v", reply, keyboard)
	}
}

func TestRenderCodeList(t *testing.T) {
	tgBot, fc := newTestBot(t)

	if got := tgBot.renderCodeList(nil); got != "No codes yet\\." {
		t.Fatalf("empty list: %q", got)
	}

	fc.codes["A1"] = &entity.Code{Code: "A1", AddedAt: testNow}
	codes, _ := fc.ListCodes()
	got := tgBot.renderCodeList(codes)
	if !strings.Contains(got, "`A1`") {
		t.Fatalf("list must name the code, got %q", got)
	}
	if !strings.Contains(got, "ACTIVE \\- 30 days left") {
		t.Fatalf("list must show derived status, got %q", got)
	}
}
