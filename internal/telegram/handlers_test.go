package telegram

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/movielex/movielex-backend/internal/catalog"
	"github.com/movielex/movielex-backend/internal/deliveries"
	"github.com/movielex/movielex-backend/internal/entitlement"
	"github.com/movielex/movielex-backend/internal/reports"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

const testAdminID int64 = 999

type fakeSender struct {
	texts      map[int64][]string
	delivered  []string
	trailersTo []int64
	prompts    []*models.PaymentSubmission
	trailerErr error
}

func newFakeSender() *fakeSender {
	return &fakeSender{texts: make(map[int64][]string)}
}

func (f *fakeSender) SendText(ctx context.Context, chatID int64, text string) error {
	f.texts[chatID] = append(f.texts[chatID], text)
	return nil
}

func (f *fakeSender) Deliver(ctx context.Context, userID int64, item *models.ContentItem) error {
	f.delivered = append(f.delivered, item.Name)
	return nil
}

func (f *fakeSender) SendTrailers(ctx context.Context, userID int64, item *models.ContentItem) error {
	if f.trailerErr != nil {
		return f.trailerErr
	}
	f.trailersTo = append(f.trailersTo, userID)
	return nil
}

func (f *fakeSender) PromptApproval(ctx context.Context, submission *models.PaymentSubmission) error {
	f.prompts = append(f.prompts, submission)
	return nil
}

type fakeResolver struct {
	grant *entitlement.Grant
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, userID int64, contentName string) (*entitlement.Grant, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.grant, nil
}

type fakeGate struct {
	admitErr  error
	unblocked []int64
	blockErr  error
	statuses  []models.BlockStatus
}

func (f *fakeGate) Admit(ctx context.Context, userID int64) error { return f.admitErr }

func (f *fakeGate) Unblock(ctx context.Context, userID int64) error {
	if f.blockErr != nil {
		return f.blockErr
	}
	f.unblocked = append(f.unblocked, userID)
	return nil
}

func (f *fakeGate) ListBlocked(ctx context.Context) ([]models.BlockStatus, error) {
	return f.statuses, nil
}

type fakeBalances struct{ balance int }

func (f *fakeBalances) GetBalance(ctx context.Context, userID int64) (int, error) {
	return f.balance, nil
}

type fakeCatalog struct {
	items    map[string]*models.ContentItem
	upserts  []catalog.UpsertContentInput
	patches  map[string]catalog.MetadataPatch
	renames  [][2]string
	deletes  []string
	trailers map[string][]string
}

func newFakeCatalog(items ...*models.ContentItem) *fakeCatalog {
	f := &fakeCatalog{
		items:    make(map[string]*models.ContentItem),
		patches:  make(map[string]catalog.MetadataPatch),
		trailers: make(map[string][]string),
	}
	for _, item := range items {
		f.items[item.Name] = item
	}
	return f
}

func (f *fakeCatalog) Upsert(ctx context.Context, input catalog.UpsertContentInput) (*models.ContentItem, error) {
	f.upserts = append(f.upserts, input)
	item := &models.ContentItem{
		Name:          input.Name,
		Title:         input.Title,
		Category:      input.Category,
		PriceAmount:   input.PriceAmount,
		ContentHandle: input.ContentHandle,
	}
	f.items[input.Name] = item
	return item, nil
}

func (f *fakeCatalog) UpdateMetadata(ctx context.Context, name string, patch catalog.MetadataPatch) (*models.ContentItem, error) {
	item, ok := f.items[name]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "content not found")
	}
	f.patches[name] = patch
	return item, nil
}

func (f *fakeCatalog) AddTrailer(ctx context.Context, name, handle string) (*models.ContentItem, error) {
	item, ok := f.items[name]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "content not found")
	}
	f.trailers[name] = append(f.trailers[name], handle)
	item.TrailerHandles = append(item.TrailerHandles, handle)
	return item, nil
}

func (f *fakeCatalog) Rename(ctx context.Context, oldName, newName string) error {
	item, ok := f.items[oldName]
	if !ok {
		return errors.New(errors.CodeNotFound, "content not found")
	}
	delete(f.items, oldName)
	item.Name = newName
	f.items[newName] = item
	f.renames = append(f.renames, [2]string{oldName, newName})
	return nil
}

func (f *fakeCatalog) Delete(ctx context.Context, name string) error {
	if _, ok := f.items[name]; !ok {
		return errors.New(errors.CodeNotFound, "content not found")
	}
	delete(f.items, name)
	f.deletes = append(f.deletes, name)
	return nil
}

func (f *fakeCatalog) Get(ctx context.Context, name string) (*models.ContentItem, error) {
	item, ok := f.items[name]
	if !ok {
		return nil, errors.New(errors.CodeNotFound, "content not found")
	}
	return item, nil
}

func (f *fakeCatalog) List(ctx context.Context) ([]models.ContentItem, error) {
	var out []models.ContentItem
	for _, item := range f.items {
		out = append(out, *item)
	}
	return out, nil
}

type fakeApprovals struct {
	pending       map[int64]*models.PaymentSubmission
	approved      []int64
	amounts       []int
	subApproved   []int64
	subCategories []enums.SubscriptionCategory
	subDurations  []time.Duration
	rejected      []int64
	submitted     []int64
	settleErr     error
}

func newFakeApprovals() *fakeApprovals {
	return &fakeApprovals{pending: make(map[int64]*models.PaymentSubmission)}
}

func (f *fakeApprovals) Submit(ctx context.Context, userID int64) (*models.PaymentSubmission, error) {
	f.submitted = append(f.submitted, userID)
	submission := &models.PaymentSubmission{ID: int64(len(f.submitted)), UserID: userID, Status: enums.SubmissionStatusPending}
	f.pending[userID] = submission
	return submission, nil
}

func (f *fakeApprovals) Approve(ctx context.Context, id int64, amount int) (*models.PaymentSubmission, error) {
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	f.approved = append(f.approved, id)
	f.amounts = append(f.amounts, amount)
	return &models.PaymentSubmission{ID: id, UserID: 42, Status: enums.SubmissionStatusApproved}, nil
}

func (f *fakeApprovals) ApproveSubscription(ctx context.Context, id int64, category enums.SubscriptionCategory, duration time.Duration, price int) (*models.PaymentSubmission, error) {
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	f.subApproved = append(f.subApproved, id)
	f.subCategories = append(f.subCategories, category)
	f.subDurations = append(f.subDurations, duration)
	return &models.PaymentSubmission{ID: id, UserID: 42, Status: enums.SubmissionStatusApproved}, nil
}

func (f *fakeApprovals) Reject(ctx context.Context, id int64) (*models.PaymentSubmission, error) {
	if f.settleErr != nil {
		return nil, f.settleErr
	}
	f.rejected = append(f.rejected, id)
	return &models.PaymentSubmission{ID: id, UserID: 42, Status: enums.SubmissionStatusRejected}, nil
}

func (f *fakeApprovals) LatestPendingByUser(ctx context.Context, userID int64) (*models.PaymentSubmission, error) {
	return f.pending[userID], nil
}

type fakeSubscriptions struct {
	grants []models.Subscription
}

func (f *fakeSubscriptions) Activate(ctx context.Context, userID int64, category enums.SubscriptionCategory, duration time.Duration, pricePaid int) (*models.Subscription, error) {
	subscription := models.Subscription{
		UserID:    userID,
		Category:  category,
		StartAt:   time.Now(),
		EndAt:     time.Now().Add(duration),
		PricePaid: pricePaid,
	}
	f.grants = append(f.grants, subscription)
	return &subscription, nil
}

type fakeDeliveryLog struct {
	records []enums.GrantReason
	names   []string
}

func (f *fakeDeliveryLog) Record(ctx context.Context, userID int64, contentName string, reason enums.GrantReason) error {
	f.records = append(f.records, reason)
	f.names = append(f.names, contentName)
	return nil
}

type fakeReports struct {
	stats    []deliveries.ContentCount
	active   []models.Subscription
	activity *reports.UserActivity
}

func (f *fakeReports) DeliveryStats(ctx context.Context) ([]deliveries.ContentCount, error) {
	return f.stats, nil
}

func (f *fakeReports) ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	return f.active, nil
}

func (f *fakeReports) UserActivityReport(ctx context.Context, userID int64, limit int) (*reports.UserActivity, error) {
	return f.activity, nil
}

type fakeSessions struct {
	open map[int64]int64
}

func newFakeSessions() *fakeSessions { return &fakeSessions{open: make(map[int64]int64)} }

func (f *fakeSessions) Begin(ctx context.Context, adminID, submissionID int64) error {
	f.open[adminID] = submissionID
	return nil
}

func (f *fakeSessions) Pending(ctx context.Context, adminID int64) (int64, bool, error) {
	id, ok := f.open[adminID]
	return id, ok, nil
}

func (f *fakeSessions) Clear(ctx context.Context, adminID int64) error {
	delete(f.open, adminID)
	return nil
}

type handlerHarness struct {
	handlers      *Handlers
	sender        *fakeSender
	resolver      *fakeResolver
	gate          *fakeGate
	balances      *fakeBalances
	catalog       *fakeCatalog
	approvals     *fakeApprovals
	subscriptions *fakeSubscriptions
	deliveryLog   *fakeDeliveryLog
	reports       *fakeReports
	sessions      *fakeSessions
}

func newHandlerHarness(t *testing.T) *handlerHarness {
	t.Helper()
	h := &handlerHarness{
		sender:        newFakeSender(),
		resolver:      &fakeResolver{},
		gate:          &fakeGate{},
		balances:      &fakeBalances{balance: 5000},
		catalog:       newFakeCatalog(),
		approvals:     newFakeApprovals(),
		subscriptions: &fakeSubscriptions{},
		deliveryLog:   &fakeDeliveryLog{},
		reports:       &fakeReports{},
		sessions:      newFakeSessions(),
	}
	handlers, err := NewHandlers(HandlersParams{
		Sender:        h.sender,
		Resolver:      h.resolver,
		Gate:          h.gate,
		Balances:      h.balances,
		Catalog:       h.catalog,
		Approvals:     h.approvals,
		Subscriptions: h.subscriptions,
		Deliveries:    h.deliveryLog,
		Reports:       h.reports,
		Sessions:      h.sessions,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		AdminUserID:   testAdminID,
		CatalogURL:    "https://movies.example.com",
		BankDetails:   "IBAN DE00 1234",
	})
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	h.handlers = handlers
	return h
}

func TestStartReplyWelcome(t *testing.T) {
	h := newHandlerHarness(t)
	reply := h.handlers.startReply(context.Background(), 42, "")
	if !strings.Contains(reply, "https://movies.example.com") {
		t.Fatalf("welcome should point at the catalog, got %q", reply)
	}
}

func TestVideoRequestChargesAndReports(t *testing.T) {
	h := newHandlerHarness(t)
	h.resolver.grant = &entitlement.Grant{
		Item:    &models.ContentItem{Name: "inception"},
		Reason:  enums.GrantReasonPayPerView,
		Charged: 1500,
		Balance: 3500,
	}

	reply := h.handlers.videoRequestReply(context.Background(), 42, "inception")

	if !strings.Contains(reply, "1500") || !strings.Contains(reply, "3500") {
		t.Fatalf("paid reply should name the charge and balance, got %q", reply)
	}
	if h.resolver.calls != 1 {
		t.Fatalf("expected one resolve call, got %d", h.resolver.calls)
	}
}

func TestVideoRequestFreeReasons(t *testing.T) {
	h := newHandlerHarness(t)
	for reason, want := range map[enums.GrantReason]string{
		enums.GrantReasonSubscription: "subscription",
		enums.GrantReasonAlreadyPaid:  "free",
	} {
		h.resolver.grant = &entitlement.Grant{
			Item:   &models.ContentItem{Name: "inception"},
			Reason: reason,
		}
		reply := h.handlers.videoRequestReply(context.Background(), 42, "inception")
		if !strings.Contains(reply, want) {
			t.Fatalf("reason %s: reply %q should contain %q", reason, reply, want)
		}
	}
}

func TestVideoRequestBlockedSkipsResolver(t *testing.T) {
	h := newHandlerHarness(t)
	h.gate.admitErr = errors.New(errors.CodeBlocked, "request volume threshold exceeded")

	reply := h.handlers.videoRequestReply(context.Background(), 42, "inception")

	if !strings.Contains(reply, "blocked") {
		t.Fatalf("expected blocked message, got %q", reply)
	}
	if h.resolver.calls != 0 {
		t.Fatalf("blocked user must not reach the resolver")
	}
}

func TestVideoRequestShortfallNamesBankDetails(t *testing.T) {
	h := newHandlerHarness(t)
	h.resolver.err = errors.New(errors.CodeInsufficientBalance, "balance too low").
		WithDetails(errors.InsufficientBalanceDetails{Price: 6000, Balance: 5000, Shortfall: 1000})

	reply := h.handlers.videoRequestReply(context.Background(), 42, "tenet")

	for _, want := range []string{"6000", "5000", "1000", "IBAN DE00 1234"} {
		if !strings.Contains(reply, want) {
			t.Fatalf("shortfall reply should contain %q, got %q", want, reply)
		}
	}
}

func TestVideoRequestDeliveryFailure(t *testing.T) {
	h := newHandlerHarness(t)
	h.resolver.err = errors.New(errors.CodeDeliveryFailed, "send video")

	reply := h.handlers.videoRequestReply(context.Background(), 42, "inception")

	if !strings.Contains(reply, "not charged") {
		t.Fatalf("delivery failure reply should mention the refund, got %q", reply)
	}
}

func TestVideoRequestUnknownContent(t *testing.T) {
	h := newHandlerHarness(t)
	h.resolver.err = errors.New(errors.CodeNotFound, "content not found")

	reply := h.handlers.videoRequestReply(context.Background(), 42, "missing")

	if !strings.Contains(reply, "not available") {
		t.Fatalf("unknown content reply, got %q", reply)
	}
}

func TestTrailerRequest(t *testing.T) {
	h := newHandlerHarness(t)
	h.catalog.items["inception"] = &models.ContentItem{Name: "inception", TrailerHandles: []string{"t1"}}

	reply := h.handlers.trailerRequestReply(context.Background(), 42, "inception")
	if reply != "" {
		t.Fatalf("successful trailer send should not add a text reply, got %q", reply)
	}
	if len(h.sender.trailersTo) != 1 || h.sender.trailersTo[0] != 42 {
		t.Fatalf("trailers should go to the requesting user, got %v", h.sender.trailersTo)
	}

	h.sender.trailerErr = errors.New(errors.CodeNotFound, "no trailers")
	reply = h.handlers.trailerRequestReply(context.Background(), 42, "inception")
	if !strings.Contains(reply, "No trailers") {
		t.Fatalf("missing trailers reply, got %q", reply)
	}
}

func TestListReply(t *testing.T) {
	h := newHandlerHarness(t)
	if reply := h.handlers.listReply(context.Background()); !strings.Contains(reply, "empty") {
		t.Fatalf("empty catalog reply, got %q", reply)
	}
	h.catalog.items["inception"] = &models.ContentItem{
		Name: "inception", Title: "Inception", Category: enums.ContentCategoryMovie, PriceAmount: 1500,
	}
	reply := h.handlers.listReply(context.Background())
	if !strings.Contains(reply, "Inception") || !strings.Contains(reply, "1500") {
		t.Fatalf("catalog listing should show title and price, got %q", reply)
	}
}

func TestVideoUploadRegistersContent(t *testing.T) {
	h := newHandlerHarness(t)

	reply := h.handlers.videoUploadReply(context.Background(), "inception | Inception | movie | 1500", "file-123")

	if !strings.Contains(reply, "Registered inception") {
		t.Fatalf("register reply, got %q", reply)
	}
	if len(h.catalog.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(h.catalog.upserts))
	}
	input := h.catalog.upserts[0]
	if input.Name != "inception" || input.Title != "Inception" ||
		input.Category != enums.ContentCategoryMovie || input.PriceAmount != 1500 ||
		input.ContentHandle != "file-123" {
		t.Fatalf("unexpected upsert input: %+v", input)
	}
}

func TestVideoUploadTitleDefaultsToName(t *testing.T) {
	h := newHandlerHarness(t)
	h.handlers.videoUploadReply(context.Background(), "tenet | movie | 6000", "file-456")
	if len(h.catalog.upserts) != 1 || h.catalog.upserts[0].Title != "tenet" {
		t.Fatalf("three-part caption should reuse the name as title: %+v", h.catalog.upserts)
	}
}

func TestVideoUploadAddTrailer(t *testing.T) {
	h := newHandlerHarness(t)
	h.catalog.items["inception"] = &models.ContentItem{Name: "inception"}

	reply := h.handlers.videoUploadReply(context.Background(), "/addtrailer inception", "trailer-1")

	if !strings.Contains(reply, "Trailer 1 added") {
		t.Fatalf("trailer reply, got %q", reply)
	}
	if got := h.catalog.trailers["inception"]; len(got) != 1 || got[0] != "trailer-1" {
		t.Fatalf("trailer handle not stored: %v", got)
	}
}

func TestVideoUploadBadCaption(t *testing.T) {
	h := newHandlerHarness(t)
	for _, caption := range []string{"", "just words", "a | b | notacategory | 10", "a | movie | -5"} {
		reply := h.handlers.videoUploadReply(context.Background(), caption, "file")
		if len(h.catalog.upserts) != 0 {
			t.Fatalf("caption %q must not register content", caption)
		}
		if reply == "" {
			t.Fatalf("caption %q should produce guidance", caption)
		}
	}
}

func TestMetadataPatchFields(t *testing.T) {
	patch, err := metadataPatch("price", "2000")
	if err != nil || patch.PriceAmount == nil || *patch.PriceAmount != 2000 {
		t.Fatalf("price patch: %+v err %v", patch, err)
	}
	patch, err = metadataPatch("rating", "8.8")
	if err != nil || patch.Rating == nil || *patch.Rating != 8.8 {
		t.Fatalf("rating patch: %+v err %v", patch, err)
	}
	patch, err = metadataPatch("director", "Nolan")
	if err != nil || patch.Director == nil || *patch.Director != "Nolan" {
		t.Fatalf("director patch: %+v err %v", patch, err)
	}
	if _, err = metadataPatch("hairstyle", "bald"); err == nil {
		t.Fatal("unknown field should be rejected")
	}
	if _, err = metadataPatch("year", "soon"); err == nil {
		t.Fatal("non-numeric year should be rejected")
	}
}

func TestUnblockReply(t *testing.T) {
	h := newHandlerHarness(t)

	reply := h.handlers.unblockReply(context.Background(), 42)
	if !strings.Contains(reply, "unblocked") {
		t.Fatalf("unblock reply, got %q", reply)
	}
	if len(h.gate.unblocked) != 1 || h.gate.unblocked[0] != 42 {
		t.Fatalf("gate not called: %v", h.gate.unblocked)
	}

	h.gate.blockErr = errors.New(errors.CodeNotFound, "block status not found")
	reply = h.handlers.unblockReply(context.Background(), 43)
	if !strings.Contains(reply, "not blocked") {
		t.Fatalf("missing-block reply, got %q", reply)
	}
}

func TestSendVideoRecordsFreeDelivery(t *testing.T) {
	h := newHandlerHarness(t)
	h.catalog.items["inception"] = &models.ContentItem{Name: "inception", ContentHandle: "file-123"}

	reply := h.handlers.sendVideoReply(context.Background(), 42, "inception")

	if !strings.Contains(reply, "free of charge") {
		t.Fatalf("send reply, got %q", reply)
	}
	if len(h.sender.delivered) != 1 || h.sender.delivered[0] != "inception" {
		t.Fatalf("content not delivered: %v", h.sender.delivered)
	}
	if len(h.deliveryLog.records) != 1 || h.deliveryLog.records[0] != enums.GrantReasonAdminSend {
		t.Fatalf("delivery should be logged as an admin send: %v", h.deliveryLog.records)
	}
}

func TestGrantSubReply(t *testing.T) {
	h := newHandlerHarness(t)

	reply := h.handlers.grantSubReply(context.Background(), []string{"42", "movie", "30", "900"})
	if !strings.Contains(reply, "movie subscription") {
		t.Fatalf("grant reply, got %q", reply)
	}
	if len(h.subscriptions.grants) != 1 {
		t.Fatalf("expected one grant, got %d", len(h.subscriptions.grants))
	}
	grant := h.subscriptions.grants[0]
	if grant.UserID != 42 || grant.PricePaid != 900 {
		t.Fatalf("unexpected grant: %+v", grant)
	}
	if window := grant.EndAt.Sub(grant.StartAt); window < 29*24*time.Hour {
		t.Fatalf("30 day grant ended after %s", window)
	}

	for _, args := range [][]string{
		{"nope", "movie", "30"},
		{"42", "sneakers", "30"},
		{"42", "movie", "0"},
		{"42", "movie", "30", "-1"},
	} {
		if reply := h.handlers.grantSubReply(context.Background(), args); !strings.Contains(reply, "must be") && !strings.Contains(reply, "Unknown") {
			t.Fatalf("args %v should be rejected, got %q", args, reply)
		}
	}
	if len(h.subscriptions.grants) != 1 {
		t.Fatalf("invalid args must not grant, got %d grants", len(h.subscriptions.grants))
	}
}

func TestAdminAmountClosesVerification(t *testing.T) {
	h := newHandlerHarness(t)
	h.sessions.open[testAdminID] = 7

	reply := h.handlers.adminAmountReply(context.Background(), "250")

	if !strings.Contains(reply, "Approved submission #7") {
		t.Fatalf("approval reply, got %q", reply)
	}
	if len(h.approvals.approved) != 1 || h.approvals.approved[0] != 7 || h.approvals.amounts[0] != 250 {
		t.Fatalf("approve not called correctly: ids %v amounts %v", h.approvals.approved, h.approvals.amounts)
	}
	if _, open := h.sessions.open[testAdminID]; open {
		t.Fatal("session should be cleared after approval")
	}
}

func TestAdminAmountWithoutSessionIsSilent(t *testing.T) {
	h := newHandlerHarness(t)
	if reply := h.handlers.adminAmountReply(context.Background(), "250"); reply != "" {
		t.Fatalf("no open session, expected silence, got %q", reply)
	}
	if len(h.approvals.approved) != 0 {
		t.Fatal("nothing should be approved without a session")
	}
}

func TestAdminAmountRejectsGarbage(t *testing.T) {
	h := newHandlerHarness(t)
	h.sessions.open[testAdminID] = 7

	for _, text := range []string{"abc", "0", "-10"} {
		reply := h.handlers.adminAmountReply(context.Background(), text)
		if !strings.Contains(reply, "positive number") {
			t.Fatalf("text %q should ask for a number, got %q", text, reply)
		}
	}
	if len(h.approvals.approved) != 0 {
		t.Fatal("garbage input must not approve")
	}
	if _, open := h.sessions.open[testAdminID]; !open {
		t.Fatal("session should stay open until a valid amount lands")
	}
}

func TestAdminSubReplySettlesSubscription(t *testing.T) {
	h := newHandlerHarness(t)
	h.sessions.open[testAdminID] = 7

	reply := h.handlers.adminAmountReply(context.Background(), "sub movie 30 2000")

	if !strings.Contains(reply, "movie subscription") {
		t.Fatalf("subscription reply, got %q", reply)
	}
	if len(h.approvals.subApproved) != 1 || h.approvals.subApproved[0] != 7 {
		t.Fatalf("ApproveSubscription not called for submission 7: %v", h.approvals.subApproved)
	}
	if h.approvals.subCategories[0] != enums.SubscriptionCategoryMovie {
		t.Fatalf("expected movie category, got %s", h.approvals.subCategories[0])
	}
	if h.approvals.subDurations[0] != 30*24*time.Hour {
		t.Fatalf("expected 30 day duration, got %s", h.approvals.subDurations[0])
	}
	if len(h.approvals.approved) != 0 {
		t.Fatal("subscription settlement must not credit the balance")
	}
	if _, open := h.sessions.open[testAdminID]; open {
		t.Fatal("session should be cleared after settlement")
	}
}

func TestAdminSubReplyRejectsBadArgs(t *testing.T) {
	h := newHandlerHarness(t)
	h.sessions.open[testAdminID] = 7

	for _, text := range []string{"sub", "sub movie", "sub horror 30", "sub movie zero", "sub movie 30 -5", "sub movie 30 2000 extra"} {
		if h.handlers.adminAmountReply(context.Background(), text) == "" {
			t.Fatalf("text %q should produce a usage reply", text)
		}
	}
	if len(h.approvals.subApproved) != 0 {
		t.Fatal("bad input must not settle the submission")
	}
	if _, open := h.sessions.open[testAdminID]; !open {
		t.Fatal("session should stay open after bad input")
	}
}

func TestAdminSubReplyAlreadyProcessedClearsSession(t *testing.T) {
	h := newHandlerHarness(t)
	h.sessions.open[testAdminID] = 7
	h.approvals.settleErr = errors.New(errors.CodeAlreadyProcessed, "submission already processed")

	reply := h.handlers.adminAmountReply(context.Background(), "sub movie 30")

	if !strings.Contains(reply, "already processed") {
		t.Fatalf("already-processed reply, got %q", reply)
	}
	if _, open := h.sessions.open[testAdminID]; open {
		t.Fatal("stale session should be cleared")
	}
}

func TestAdminAmountAlreadyProcessedClearsSession(t *testing.T) {
	h := newHandlerHarness(t)
	h.sessions.open[testAdminID] = 7
	h.approvals.settleErr = errors.New(errors.CodeAlreadyProcessed, "submission already processed")

	reply := h.handlers.adminAmountReply(context.Background(), "250")

	if !strings.Contains(reply, "already processed") {
		t.Fatalf("already-processed reply, got %q", reply)
	}
	if _, open := h.sessions.open[testAdminID]; open {
		t.Fatal("stale session should be cleared")
	}
}

func TestStatsReply(t *testing.T) {
	h := newHandlerHarness(t)
	h.reports.stats = []deliveries.ContentCount{{ContentName: "inception", Count: 12}}
	h.reports.active = []models.Subscription{{UserID: 42}}

	reply := h.handlers.statsReply(context.Background())

	if !strings.Contains(reply, "inception: 12") {
		t.Fatalf("stats should list per-title counts, got %q", reply)
	}
	if !strings.Contains(reply, "Active subscriptions: 1") {
		t.Fatalf("stats should count active subscriptions, got %q", reply)
	}
}
