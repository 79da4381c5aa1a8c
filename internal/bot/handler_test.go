package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-builders/reward-rush-bot/internal/common/config"
	"github.com/open-builders/reward-rush-bot/internal/domain/reward"
	"github.com/open-builders/reward-rush-bot/internal/platform/filestore"
	"github.com/open-builders/reward-rush-bot/internal/platform/jsonstore"
	"github.com/open-builders/reward-rush-bot/internal/platform/telegram"
	"github.com/open-builders/reward-rush-bot/internal/service/admin"
	"github.com/open-builders/reward-rush-bot/internal/service/giveaway"
	"github.com/open-builders/reward-rush-bot/internal/service/membership"
	"github.com/open-builders/reward-rush-bot/internal/service/notifications"
	"github.com/open-builders/reward-rush-bot/internal/service/ratelimit"
	"github.com/open-builders/reward-rush-bot/internal/service/redemption"
	"github.com/open-builders/reward-rush-bot/internal/service/scheduler"
)

const (
	ownerID   int64 = 1
	channelID int64 = -1001
)

type sent struct {
	chatID int64
	text   string
	kb     telegram.Keyboard
}

type sentDoc struct {
	chatID int64
	name   string
	data   []byte
}

type forward struct {
	to, from int64
	msgID    int
}

type callbackAnswer struct {
	text  string
	alert bool
}

type fakeMessenger struct {
	mu         sync.Mutex
	messages   []sent
	edits      []sent
	answers    []callbackAnswer
	docs       []sentDoc
	files      []string
	forwards   []forward
	approved   []int64
	nonMembers map[int64]bool
	uploads    map[string][]byte
	onDownload func()
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{nonMembers: map[int64]bool{}, uploads: map[string][]byte{}}
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, sent{chatID: chatID, text: text, kb: kb})
	return nil
}

func (f *fakeMessenger) EditMessage(_ context.Context, chatID int64, _ int, text string, kb telegram.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, sent{chatID: chatID, text: text, kb: kb})
	return nil
}

func (f *fakeMessenger) AnswerCallback(_ context.Context, _ string, text string, alert bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, callbackAnswer{text: text, alert: alert})
	return nil
}

func (f *fakeMessenger) SendBytes(_ context.Context, chatID int64, name string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, sentDoc{chatID: chatID, name: name, data: data})
	return nil
}

func (f *fakeMessenger) SendFile(_ context.Context, _ int64, path, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, path)
	return nil
}

func (f *fakeMessenger) Forward(_ context.Context, to, from int64, msgID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.forwards = append(f.forwards, forward{to: to, from: from, msgID: msgID})
	return nil
}

func (f *fakeMessenger) Download(_ context.Context, fileID string) ([]byte, error) {
	f.mu.Lock()
	data, ok := f.uploads[fileID]
	hook := f.onDownload
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return nil, errors.New("file not found")
	}
	return data, nil
}

func (f *fakeMessenger) ApproveJoinRequest(_ context.Context, _ int64, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, userID)
	return nil
}

func (f *fakeMessenger) IsMember(_ context.Context, _ int64, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.nonMembers[userID], nil
}

func (f *fakeMessenger) InviteLink(_ context.Context, _ int64) (string, error) {
	return "https://t.me/+invite", nil
}

func (f *fakeMessenger) textsTo(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.messages {
		if m.chatID == chatID {
			out = append(out, m.text)
		}
	}
	return out
}

func (f *fakeMessenger) lastTo(chatID int64) sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.messages) - 1; i >= 0; i-- {
		if f.messages[i].chatID == chatID {
			return f.messages[i]
		}
	}
	return sent{}
}

func (f *fakeMessenger) lastAnswer() callbackAnswer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.answers) == 0 {
		return callbackAnswer{}
	}
	return f.answers[len(f.answers)-1]
}

type botFixture struct {
	h     *Handler
	tg    *fakeMessenger
	store *jsonstore.Store
	sched *scheduler.Scheduler
	admin *admin.Service
	files *filestore.Store
	msgID int
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	dir := t.TempDir()
	log := zerolog.Nop()

	store, err := jsonstore.Open(filepath.Join(dir, "data.json"), log)
	require.NoError(t, err)
	files, err := filestore.New(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	sched := scheduler.New(log)
	t.Cleanup(sched.Stop)

	tg := newFakeMessenger()
	tracker := ratelimit.NewTracker()
	notifier := notifications.NewService(tg, 0, log)
	adminSvc := admin.NewService(store, []int64{ownerID}, sched, files, log)
	gate := membership.NewGate([]config.Channel{{ID: channelID, Name: "KeyShareBD"}}, tg, nil, nil, log)
	engine := redemption.NewEngine(store, tg, files, notifier, adminSvc, tracker, log)
	manager := giveaway.NewManager(store, sched, notifier, adminSvc, log)

	h := NewHandler(Deps{
		Messenger: tg,
		Admin:     adminSvc,
		Engine:    engine,
		Giveaways: manager,
		Gate:      gate,
		Limits:    tracker,
		Notifier:  notifier,
		Files:     files,
	}, Options{SupportContacts: "@support", SessionTimeout: time.Minute}, log)

	return &botFixture{h: h, tg: tg, store: store, sched: sched, admin: adminSvc, files: files}
}

func person(id int64, username string) *tgbotapi.User {
	return &tgbotapi.User{ID: id, UserName: username, FirstName: strings.ToUpper(username)}
}

func (f *botFixture) message(from *tgbotapi.User, text string) *tgbotapi.Message {
	f.msgID++
	msg := &tgbotapi.Message{
		MessageID: f.msgID,
		From:      from,
		Chat:      &tgbotapi.Chat{ID: from.ID, Type: "private"},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		length := strings.IndexByte(text, ' ')
		if length < 0 {
			length = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return msg
}

func (f *botFixture) say(from *tgbotapi.User, text string) {
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: f.message(from, text)})
}

func (f *botFixture) click(from *tgbotapi.User, data string) {
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: from,
		Data: data,
		Message: &tgbotapi.Message{
			MessageID: 99,
			Chat:      &tgbotapi.Chat{ID: from.ID, Type: "private"},
		},
	}})
}

var (
	owner = person(ownerID, "owner")
	alice = person(10, "alice")
	bob   = person(11, "bob")
)

func TestStart_RegistersAndShowsMenu(t *testing.T) {
	f := newBotFixture(t)

	f.say(alice, "/start")

	last := f.tg.lastTo(alice.ID)
	assert.Contains(t, last.text, "Welcome to <b>Reward Rush Bot</b>")
	require.Len(t, last.kb, 2)
	assert.Equal(t, cbShowGuide, last.kb[1][1].Data)

	n, err := f.admin.TotalUsers()
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.say(owner, "/start")
	last = f.tg.lastTo(ownerID)
	require.Len(t, last.kb, 3)
	assert.Equal(t, cbAdminGuide, last.kb[1][1].Data)
	assert.Equal(t, cbAddNewAdmin, last.kb[2][0].Data)
}

func TestStart_GatedByChannelAndBan(t *testing.T) {
	f := newBotFixture(t)
	f.tg.nonMembers[alice.ID] = true

	f.say(alice, "/start")
	last := f.tg.lastTo(alice.ID)
	assert.Equal(t, "Join the required channels to use the bot.", last.text)
	require.Len(t, last.kb, 1)
	assert.Equal(t, "Join KeyShareBD", last.kb[0][0].Text)
	assert.Equal(t, "https://t.me/+invite", last.kb[0][0].URL)

	require.NoError(t, f.admin.Ban(bob.ID))
	f.say(bob, "/start")
	assert.Contains(t, f.tg.lastTo(bob.ID).text, "You are banned")
	assert.Contains(t, f.tg.lastTo(bob.ID).text, "@support")

	n, err := f.admin.TotalUsers()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStart_RateLimited(t *testing.T) {
	f := newBotFixture(t)
	var logs strings.Builder
	f.h.logger = zerolog.New(&logs).Level(zerolog.DebugLevel)
	for i := 0; i < 10; i++ {
		f.say(alice, "/start")
	}
	assert.Contains(t, f.tg.lastTo(alice.ID).text, "Welcome")

	f.say(alice, "/start")
	assert.Contains(t, f.tg.lastTo(alice.ID).text, "Too many commands! Wait")
	assert.Contains(t, logs.String(), "RATE_LIMIT_EXCEEDED")
	assert.Contains(t, logs.String(), "rate limit exceeded for commands")
}

func TestAddAndRedeemFlow(t *testing.T) {
	f := newBotFixture(t)

	f.say(owner, "/add KeyShareBD")
	f.say(owner, "user1:pass1\n\nuser2:pass2")

	doc, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, doc.Accounts, 2)
	assert.Contains(t, f.tg.lastTo(ownerID).text, doc.Accounts[0].RedeemCode)

	code := doc.Accounts[0].RedeemCode
	f.say(alice, code)
	assert.Contains(t, f.tg.lastTo(alice.ID).text, "user1:pass1")

	owners := f.tg.textsTo(ownerID)
	assert.Contains(t, owners[len(owners)-1], "Code Redeemed!")
	assert.Contains(t, owners[len(owners)-1], code)

	f.say(bob, "/redeem "+code)
	last := f.tg.lastTo(bob.ID).text
	assert.Contains(t, last, "already redeemed by someone else")
	assert.Contains(t, last, "unredeemed codes available")

	f.say(alice, doc.Accounts[1].RedeemCode)
	assert.Contains(t, f.tg.lastTo(alice.ID).text, "Wait")

	f.say(bob, "/redeem KeyShareBD-AAAA-BBBB-CCCC")
	assert.Contains(t, f.tg.lastTo(bob.ID).text, "Invalid or expired code")

	f.say(bob, "/redeem")
	assert.Contains(t, f.tg.lastTo(bob.ID).text, "Please provide a redeem code")
}

func TestAdd_RequiresAdmin(t *testing.T) {
	f := newBotFixture(t)
	f.say(alice, "/add")
	assert.Equal(t, textNotAuthorized, f.tg.lastTo(alice.ID).text)

	f.say(owner, "/add bad_prefix!")
	assert.Equal(t, textInvalidPrefix, f.tg.lastTo(ownerID).text)
}

func TestFileUploadFlow(t *testing.T) {
	f := newBotFixture(t)
	f.tg.uploads["f1"] = []byte("secret one")

	f.say(owner, "/addfile Pack")

	upload := f.message(owner, "")
	upload.Document = &tgbotapi.Document{FileID: "f1", FileName: "one.txt", MimeType: "text/plain"}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: upload})
	assert.Contains(t, f.tg.lastTo(ownerID).text, "File #1 received")

	photo := f.message(owner, "")
	photo.Document = &tgbotapi.Document{FileID: "p", FileName: "a.png", MimeType: "image/png"}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: photo})
	assert.Contains(t, f.tg.lastTo(ownerID).text, "not a text file")

	f.say(owner, "/done")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "Processed 1 files")

	doc, err := f.store.Load()
	require.NoError(t, err)
	require.Len(t, doc.Accounts, 1)
	assert.Equal(t, reward.TypeDeliveredFile, doc.Accounts[0].Type)
	path := doc.Accounts[0].Payload

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "secret one", string(data))

	f.say(alice, doc.Accounts[0].RedeemCode)
	assert.Equal(t, []string{path}, f.tg.files)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "delivered file is removed")

	f.say(owner, "/done")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "No upload session")
}

func TestUploadSessionReplacedRemovesFiles(t *testing.T) {
	f := newBotFixture(t)
	f.tg.uploads["f1"] = []byte("x")

	f.say(owner, "/addfile")
	upload := f.message(owner, "")
	upload.Document = &tgbotapi.Document{FileID: "f1", FileName: "one", MimeType: "text/plain"}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: upload})

	sess, ok := f.h.Sessions().Get(ownerID)
	require.True(t, ok)
	require.Len(t, sess.Files, 1)
	assert.Equal(t, ".txt", filepath.Ext(sess.Files[0]))

	f.say(owner, "/broadcast")
	_, err := os.Stat(sess.Files[0])
	assert.True(t, os.IsNotExist(err))
}

type stuckFiles struct {
	*filestore.Store
}

func (stuckFiles) Remove(path string) error {
	return &os.PathError{Op: "remove", Path: path, Err: os.ErrPermission}
}

func TestUploadSessionExpiresDuringDownload(t *testing.T) {
	f := newBotFixture(t)
	f.tg.uploads["f1"] = []byte("late")
	f.tg.onDownload = func() { f.h.Sessions().End(ownerID) }

	f.say(owner, "/addfile")
	upload := f.message(owner, "")
	upload.Document = &tgbotapi.Document{FileID: "f1", FileName: "one.txt", MimeType: "text/plain"}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: upload})

	assert.Contains(t, f.tg.lastTo(ownerID).text, "Upload session expired")
	entries, err := os.ReadDir(f.files.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "orphaned upload is removed")
}

func TestUploadSessionExpired_RemoveFailureIsLogged(t *testing.T) {
	f := newBotFixture(t)
	var logs strings.Builder
	f.h.logger = zerolog.New(&logs)
	f.h.files = stuckFiles{Store: f.files}
	f.tg.uploads["f1"] = []byte("late")
	f.tg.onDownload = func() { f.h.Sessions().End(ownerID) }

	f.say(owner, "/addfile")
	upload := f.message(owner, "")
	upload.Document = &tgbotapi.Document{FileID: "f1", FileName: "one.txt", MimeType: "text/plain"}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: upload})

	assert.Contains(t, f.tg.lastTo(ownerID).text, "Upload session expired")
	assert.Contains(t, logs.String(), "Failed to remove upload of expired session")
	assert.Contains(t, logs.String(), "permission denied")
}

func TestGiveawayFlow(t *testing.T) {
	f := newBotFixture(t)

	f.say(owner, "/random Movie 2 min")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "Giveaway <b>Movie</b> started for 2 min")

	f.say(owner, "acc1\nacc2")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "Added 2 account(s)")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "120 seconds")

	pending := f.sched.Pending()
	require.Len(t, pending, 2)

	f.click(alice, cbJoinGiveaways)
	require.NotEmpty(t, f.tg.edits)
	kb := f.tg.edits[len(f.tg.edits)-1].kb
	require.Len(t, kb, 2)
	assert.Equal(t, "join_movie", kb[0][0].Data)

	f.click(alice, "join_movie")
	assert.Equal(t, callbackAnswer{text: "✅ You have successfully joined the Movie giveaway!", alert: true}, f.tg.lastAnswer())

	f.click(alice, "join_movie")
	assert.Contains(t, f.tg.lastAnswer().text, "already joined")

	f.click(bob, cbCheckStatus)
	status := f.tg.edits[len(f.tg.edits)-1].text
	assert.Contains(t, status, "<b>Movie</b>")
	assert.Contains(t, status, "Participants: 1")

	f.click(bob, "join_series")
	assert.Contains(t, f.tg.lastAnswer().text, "doesn't exist or has ended")
}

func TestGiveaway_AbandonedPoolStillArms(t *testing.T) {
	f := newBotFixture(t)

	f.say(owner, "/random short 10 sec")
	assert.Empty(t, f.sched.Pending())

	f.say(owner, "/broadcast")
	pending := f.sched.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, scheduler.KindEnd, pending[0].Kind)
}

func TestRandom_Errors(t *testing.T) {
	f := newBotFixture(t)

	f.say(owner, "/random movie")
	assert.Equal(t, textRandomUsage, f.tg.lastTo(ownerID).text)

	f.say(owner, "/random movie 2 days")
	assert.Equal(t, textBadDuration, f.tg.lastTo(ownerID).text)

	f.say(owner, "/random movie 1 min")
	f.say(owner, "/random movie 1 min")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "already exists")
}

func TestForwardingAndAdminReply(t *testing.T) {
	f := newBotFixture(t)

	f.say(alice, "hello, I need help")
	require.Len(t, f.tg.forwards, 1)
	assert.Equal(t, forward{to: ownerID, from: alice.ID, msgID: f.msgID}, f.tg.forwards[0])

	reply := f.message(owner, "we are on it")
	reply.ReplyToMessage = &tgbotapi.Message{MessageID: 50, ForwardFrom: alice}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: reply})

	require.Len(t, f.tg.forwards, 2)
	assert.Equal(t, forward{to: alice.ID, from: ownerID, msgID: reply.MessageID}, f.tg.forwards[1])
	assert.Contains(t, f.tg.lastTo(ownerID).text, "Sent your reply to user <code>10</code>")

	hidden := f.message(owner, "hi")
	hidden.ReplyToMessage = &tgbotapi.Message{MessageID: 51}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: hidden})
	assert.Equal(t, textNotForwarded, f.tg.lastTo(ownerID).text)
}

func TestBanByReplyAndUnban(t *testing.T) {
	f := newBotFixture(t)

	ban := f.message(owner, "/ban")
	ban.ReplyToMessage = &tgbotapi.Message{MessageID: 5, ForwardFrom: alice}
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{Message: ban})
	assert.True(t, f.admin.IsBanned(alice.ID))

	f.say(owner, "/ban 10")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "already banned")

	f.say(owner, "/unban 10")
	assert.False(t, f.admin.IsBanned(alice.ID))

	f.say(owner, "/unban 10")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "not in the ban list")

	f.say(alice, "/ban 11")
	assert.Equal(t, textNotAuthorized, f.tg.lastTo(alice.ID).text)
}

func TestAddAdminViaButton(t *testing.T) {
	f := newBotFixture(t)

	f.click(owner, cbAddNewAdmin)
	assert.Contains(t, f.tg.lastTo(ownerID).text, "send the User ID")

	f.say(owner, "abc")
	assert.Equal(t, textInvalidAdminID, f.tg.lastTo(ownerID).text)

	f.click(owner, cbAddNewAdmin)
	f.say(owner, "42")
	assert.True(t, f.admin.IsAdmin(42))

	f.say(owner, "/addadmin 42")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "already an admin")

	f.click(alice, cbAddNewAdmin)
	assert.Equal(t, callbackAnswer{text: "❌ Owners only.", alert: true}, f.tg.lastAnswer())
}

func TestHelpIsRoleAware(t *testing.T) {
	f := newBotFixture(t)

	f.say(alice, "/cmd")
	assert.Contains(t, f.tg.lastTo(alice.ID).text, "Reward Rush Bot Guide")

	require.NoError(t, f.admin.AddAdmin(20))
	f.say(person(20, "mod"), "/cmd")
	text := f.tg.lastTo(20).text
	assert.Contains(t, text, "Admin Commands")
	assert.NotContains(t, text, "Owner Commands")

	f.say(owner, "/cmd")
	assert.Contains(t, f.tg.lastTo(ownerID).text, "Owner Commands")
}

func TestBroadcast(t *testing.T) {
	f := newBotFixture(t)
	f.say(alice, "/start")
	f.say(bob, "/start")

	f.say(owner, "/broadcast")
	f.say(owner, "Big <news>")

	assert.Equal(t, "Big &lt;news&gt;", f.tg.lastTo(alice.ID).text)
	assert.Equal(t, "Big &lt;news&gt;", f.tg.lastTo(bob.ID).text)
	assert.Contains(t, f.tg.lastTo(ownerID).text, "Total Users: 2")
}

func TestConfirmClear(t *testing.T) {
	f := newBotFixture(t)
	f.say(alice, "/start")
	f.say(owner, "/add")
	f.say(owner, "acc")
	f.say(owner, "/random movie 5 min")
	f.say(owner, "prize")
	require.NotEmpty(t, f.sched.Pending())

	f.say(owner, "/clear")
	last := f.tg.lastTo(ownerID)
	assert.Equal(t, textClearConfirm, last.text)
	assert.Equal(t, cbConfirmClear, last.kb[0][0].Data)

	f.click(alice, cbConfirmClear)
	assert.Equal(t, callbackAnswer{text: "You are not authorized.", alert: true}, f.tg.lastAnswer())

	f.click(owner, cbConfirmClear)
	require.Len(t, f.tg.docs, 1)
	assert.Equal(t, "data_backup.json", f.tg.docs[0].name)
	assert.Contains(t, string(f.tg.docs[0].data), "movie")

	doc, err := f.store.Load()
	require.NoError(t, err)
	assert.Empty(t, doc.Accounts)
	assert.Empty(t, doc.Giveaways)
	assert.Len(t, doc.Users, 1)
	assert.Empty(t, f.sched.Pending())
}

func TestRedeemMenuAndBackup(t *testing.T) {
	f := newBotFixture(t)

	f.click(alice, cbRedeemCode)
	assert.Equal(t, textRedeemMenuEmpty, f.tg.edits[len(f.tg.edits)-1].text)

	f.say(owner, "/add")
	f.say(owner, "acc")
	f.click(alice, cbRedeemCode)
	assert.Equal(t, textRedeemMenuOpen, f.tg.edits[len(f.tg.edits)-1].text)

	f.say(owner, "/backup")
	require.Len(t, f.tg.docs, 1)
	assert.Equal(t, "data.json", f.tg.docs[0].name)

	f.say(alice, "/backup")
	assert.Contains(t, f.tg.lastTo(alice.ID).text, "not allowed")
}

func TestBannedCallback(t *testing.T) {
	f := newBotFixture(t)
	require.NoError(t, f.admin.Ban(alice.ID))

	f.click(alice, cbJoinGiveaways)
	assert.Equal(t, callbackAnswer{text: "You are banned.", alert: true}, f.tg.lastAnswer())
	assert.Empty(t, f.tg.edits)
}

func TestJoinRequestApproved(t *testing.T) {
	f := newBotFixture(t)
	f.h.HandleUpdate(context.Background(), tgbotapi.Update{ChatJoinRequest: &tgbotapi.ChatJoinRequest{
		Chat: tgbotapi.Chat{ID: channelID},
		From: tgbotapi.User{ID: alice.ID},
	}})
	assert.Equal(t, []int64{alice.ID}, f.tg.approved)
}

func TestRun_StopsOnContext(t *testing.T) {
	f := newBotFixture(t)
	updates := make(chan tgbotapi.Update, 1)
	updates <- tgbotapi.Update{Message: f.message(alice, "/start")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.h.Run(ctx, updates) }()

	require.Eventually(t, func() bool { return len(f.tg.textsTo(alice.ID)) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
