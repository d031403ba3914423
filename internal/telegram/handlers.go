package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/movielex/movielex-backend/internal/catalog"
	"github.com/movielex/movielex-backend/internal/deliveries"
	"github.com/movielex/movielex-backend/internal/entitlement"
	"github.com/movielex/movielex-backend/internal/reports"
	"github.com/movielex/movielex-backend/pkg/db/models"
	"github.com/movielex/movielex-backend/pkg/enums"
	"github.com/movielex/movielex-backend/pkg/errors"
	"github.com/movielex/movielex-backend/pkg/logger"
)

const (
	deepLinkVideoPrefix   = "video_"
	deepLinkTrailerPrefix = "trailer_"

	callbackApprovePrefix = "approve_"
	callbackRejectPrefix  = "reject_"
	callbackUnblockPrefix = "unblock_"
	callbackVideoPrefix   = "video_"

	subscriptionDayHours = 24 * time.Hour
)

// Sender is the outbound slice the handlers reply through.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
	Deliver(ctx context.Context, userID int64, item *models.ContentItem) error
	SendTrailers(ctx context.Context, userID int64, item *models.ContentItem) error
	PromptApproval(ctx context.Context, submission *models.PaymentSubmission) error
}

// Resolver grants content requests.
type Resolver interface {
	Resolve(ctx context.Context, userID int64, contentName string) (*entitlement.Grant, error)
}

// Gate admits or rejects content requests and manages blocks.
type Gate interface {
	Admit(ctx context.Context, userID int64) error
	Unblock(ctx context.Context, userID int64) error
	ListBlocked(ctx context.Context) ([]models.BlockStatus, error)
}

// Balances answers balance queries.
type Balances interface {
	GetBalance(ctx context.Context, userID int64) (int, error)
}

// Catalog is the content management surface behind the admin commands.
type Catalog interface {
	Upsert(ctx context.Context, input catalog.UpsertContentInput) (*models.ContentItem, error)
	UpdateMetadata(ctx context.Context, name string, patch catalog.MetadataPatch) (*models.ContentItem, error)
	AddTrailer(ctx context.Context, name, handle string) (*models.ContentItem, error)
	Rename(ctx context.Context, oldName, newName string) error
	Delete(ctx context.Context, name string) error
	Get(ctx context.Context, name string) (*models.ContentItem, error)
	List(ctx context.Context) ([]models.ContentItem, error)
}

// Approvals is the payment verification surface.
type Approvals interface {
	Submit(ctx context.Context, userID int64) (*models.PaymentSubmission, error)
	Approve(ctx context.Context, id int64, amount int) (*models.PaymentSubmission, error)
	ApproveSubscription(ctx context.Context, id int64, category enums.SubscriptionCategory, duration time.Duration, price int) (*models.PaymentSubmission, error)
	Reject(ctx context.Context, id int64) (*models.PaymentSubmission, error)
	LatestPendingByUser(ctx context.Context, userID int64) (*models.PaymentSubmission, error)
}

// Subscriptions backs the direct admin grant.
type Subscriptions interface {
	Activate(ctx context.Context, userID int64, category enums.SubscriptionCategory, duration time.Duration, pricePaid int) (*models.Subscription, error)
}

// DeliveryLog records deliveries made outside the resolver.
type DeliveryLog interface {
	Record(ctx context.Context, userID int64, contentName string, reason enums.GrantReason) error
}

// Reports renders the admin statistics views.
type Reports interface {
	DeliveryStats(ctx context.Context) ([]deliveries.ContentCount, error)
	ActiveSubscriptions(ctx context.Context) ([]models.Subscription, error)
	UserActivityReport(ctx context.Context, userID int64, limit int) (*reports.UserActivity, error)
}

// Sessions tracks the admin's open awaiting-amount conversation.
type Sessions interface {
	Begin(ctx context.Context, adminID, submissionID int64) error
	Pending(ctx context.Context, adminID int64) (int64, bool, error)
	Clear(ctx context.Context, adminID int64) error
}

// HandlersParams wire the transport to the engine.
type HandlersParams struct {
	Sender        Sender
	Resolver      Resolver
	Gate          Gate
	Balances      Balances
	Catalog       Catalog
	Approvals     Approvals
	Subscriptions Subscriptions
	Deliveries    DeliveryLog
	Reports       Reports
	Sessions      Sessions
	Logger        *logger.Logger
	AdminUserID   int64
	CatalogURL    string
	BankDetails   string
}

// Handlers routes telegram updates into the engine. All entitlement
// decisions live behind the resolver; the handlers only translate updates
// into operations and results into chat messages.
type Handlers struct {
	sender        Sender
	resolver      Resolver
	gate          Gate
	balances      Balances
	catalog       Catalog
	approvals     Approvals
	subscriptions Subscriptions
	deliveryLog   DeliveryLog
	reports       Reports
	sessions      Sessions
	logg          *logger.Logger
	adminID       int64
	catalogURL    string
	bankDetails   string
}

// NewHandlers builds the update router.
func NewHandlers(params HandlersParams) (*Handlers, error) {
	if params.Sender == nil {
		return nil, fmt.Errorf("sender required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("resolver required")
	}
	if params.Gate == nil {
		return nil, fmt.Errorf("access gate required")
	}
	if params.Balances == nil {
		return nil, fmt.Errorf("balances required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog required")
	}
	if params.Approvals == nil {
		return nil, fmt.Errorf("approvals required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions required")
	}
	if params.Deliveries == nil {
		return nil, fmt.Errorf("delivery log required")
	}
	if params.Reports == nil {
		return nil, fmt.Errorf("reports required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("sessions required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.AdminUserID == 0 {
		return nil, fmt.Errorf("admin user id required")
	}
	return &Handlers{
		sender:        params.Sender,
		resolver:      params.Resolver,
		gate:          params.Gate,
		balances:      params.Balances,
		catalog:       params.Catalog,
		approvals:     params.Approvals,
		subscriptions: params.Subscriptions,
		deliveryLog:   params.Deliveries,
		reports:       params.Reports,
		sessions:      params.Sessions,
		logg:          params.Logger,
		adminID:       params.AdminUserID,
		catalogURL:    params.CatalogURL,
		bankDetails:   params.BankDetails,
	}, nil
}

// Register attaches every command, callback, and media handler to the bot.
func (h *Handlers) Register(bot *Bot) {
	raw := bot.Raw()

	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypePrefix, h.onStart)
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/balance", tgbot.MatchTypeExact, h.onBalance)
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/list", tgbot.MatchTypeExact, h.onList)

	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/rename", tgbot.MatchTypePrefix, h.adminOnly(h.onRename))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/delete", tgbot.MatchTypePrefix, h.adminOnly(h.onDelete))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/updatemeta", tgbot.MatchTypePrefix, h.adminOnly(h.onUpdateMeta))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/unblock", tgbot.MatchTypePrefix, h.adminOnly(h.onUnblock))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/blocked", tgbot.MatchTypeExact, h.adminOnly(h.onBlocked))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/videologs", tgbot.MatchTypePrefix, h.adminOnly(h.onVideoLogs))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/stats", tgbot.MatchTypeExact, h.adminOnly(h.onStats))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/verifypayment", tgbot.MatchTypePrefix, h.adminOnly(h.onVerifyPayment))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/sendvideo", tgbot.MatchTypePrefix, h.adminOnly(h.onSendVideo))
	raw.RegisterHandler(tgbot.HandlerTypeMessageText, "/grantsub", tgbot.MatchTypePrefix, h.adminOnly(h.onGrantSub))

	raw.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, callbackApprovePrefix, tgbot.MatchTypePrefix, h.onApproveCallback)
	raw.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, callbackRejectPrefix, tgbot.MatchTypePrefix, h.onRejectCallback)
	raw.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, callbackUnblockPrefix, tgbot.MatchTypePrefix, h.onUnblockCallback)
	raw.RegisterHandler(tgbot.HandlerTypeCallbackQueryData, callbackVideoPrefix, tgbot.MatchTypePrefix, h.onVideoCallback)

	raw.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
		return update.Message != nil && len(update.Message.Photo) > 0
	}, h.onPhoto)
	raw.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
		return update.Message != nil && update.Message.Video != nil
	}, h.onVideoUpload)
	raw.RegisterHandlerMatchFunc(func(update *tgmodels.Update) bool {
		return update.Message != nil &&
			update.Message.Video == nil &&
			len(update.Message.Photo) == 0 &&
			update.Message.Text != "" &&
			!strings.HasPrefix(update.Message.Text, "/")
	}, h.onPlainText)
}

// --- user commands ---

func (h *Handlers) onStart(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	userID := update.Message.From.ID
	payload := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/start"))
	h.reply(ctx, userID, h.startReply(ctx, userID, payload))
}

func (h *Handlers) startReply(ctx context.Context, userID int64, payload string) string {
	switch {
	case payload == "":
		return h.welcomeText()
	case strings.HasPrefix(payload, deepLinkVideoPrefix):
		return h.videoRequestReply(ctx, userID, strings.TrimPrefix(payload, deepLinkVideoPrefix))
	case strings.HasPrefix(payload, deepLinkTrailerPrefix):
		return h.trailerRequestReply(ctx, userID, strings.TrimPrefix(payload, deepLinkTrailerPrefix))
	default:
		return h.welcomeText()
	}
}

func (h *Handlers) welcomeText() string {
	text := "Welcome to MovieLex. Browse the catalog and tap a title to receive it here."
	if h.catalogURL != "" {
		text += "\nCatalog: " + h.catalogURL
	}
	text += "\nUse /balance to check your balance."
	return text
}

// videoRequestReply runs the full gated entitlement flow for one content
// request and renders the outcome as a chat message.
func (h *Handlers) videoRequestReply(ctx context.Context, userID int64, name string) string {
	if err := h.gate.Admit(ctx, userID); err != nil {
		if errors.IsCode(err, errors.CodeBlocked) {
			return "Your access is blocked. Contact support to get unblocked."
		}
		h.logg.Error(ctx, "admit content request", err)
		return "Something went wrong. Please try again later."
	}

	grant, err := h.resolver.Resolve(ctx, userID, name)
	if err != nil {
		return h.resolveErrorReply(err)
	}
	switch grant.Reason {
	case enums.GrantReasonSubscription:
		return "Covered by your subscription. Enjoy!"
	case enums.GrantReasonAlreadyPaid:
		return "You already own this one, so it is free. Enjoy!"
	default:
		return fmt.Sprintf("Enjoy! %d was charged. Your balance is now %d.", grant.Charged, grant.Balance)
	}
}

func (h *Handlers) resolveErrorReply(err error) string {
	switch {
	case errors.IsCode(err, errors.CodeNotFound):
		return "That title is not available."
	case errors.IsCode(err, errors.CodeInsufficientBalance):
		details, ok := errors.As(err).Details().(errors.InsufficientBalanceDetails)
		if !ok {
			return "Your balance is too low for this title."
		}
		text := fmt.Sprintf(
			"This title costs %d but your balance is %d. You are %d short.",
			details.Price, details.Balance, details.Shortfall,
		)
		if h.bankDetails != "" {
			text += "\nTop up by bank transfer and send a screenshot of the receipt:\n" + h.bankDetails
		} else {
			text += "\nTop up and send a screenshot of the receipt."
		}
		return text
	case errors.IsCode(err, errors.CodeDeliveryFailed):
		return "Delivery failed and you were not charged. Please try again."
	default:
		return "Something went wrong. Please try again later."
	}
}

func (h *Handlers) trailerRequestReply(ctx context.Context, userID int64, name string) string {
	item, err := h.catalog.Get(ctx, name)
	if err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return "That title is not available."
		}
		h.logg.Error(ctx, "load content for trailer", err)
		return "Something went wrong. Please try again later."
	}
	if err := h.sender.SendTrailers(ctx, userID, item); err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return "No trailers available for this title."
		}
		h.logg.Error(ctx, "send trailers", err)
		return "Could not send the trailers right now. Please try again."
	}
	return ""
}

func (h *Handlers) onBalance(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	userID := update.Message.From.ID
	balance, err := h.balances.GetBalance(ctx, userID)
	if err != nil {
		h.logg.Error(ctx, "read balance", err)
		h.reply(ctx, userID, "Could not read your balance right now.")
		return
	}
	h.reply(ctx, userID, fmt.Sprintf("Your balance is %d.", balance))
}

func (h *Handlers) onList(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	userID := update.Message.From.ID
	h.reply(ctx, userID, h.listReply(ctx))
}

func (h *Handlers) listReply(ctx context.Context) string {
	items, err := h.catalog.List(ctx)
	if err != nil {
		h.logg.Error(ctx, "list catalog", err)
		return "Could not load the catalog right now."
	}
	if len(items) == 0 {
		return "The catalog is empty."
	}
	var b strings.Builder
	b.WriteString("Available titles:\n")
	for _, item := range items {
		fmt.Fprintf(&b, "• %s (%s) — %d\n", item.Title, item.Category, item.PriceAmount)
	}
	return strings.TrimRight(b.String(), "\n")
}

// onPhoto treats any photo from a non-admin as a payment proof.
func (h *Handlers) onPhoto(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	userID := update.Message.From.ID
	if userID == h.adminID {
		return
	}
	submission, err := h.approvals.Submit(ctx, userID)
	if err != nil {
		h.logg.Error(ctx, "open payment submission", err)
		h.reply(ctx, userID, "Could not register your payment proof. Please try again.")
		return
	}
	if err := h.sender.PromptApproval(ctx, submission); err != nil {
		h.logg.Error(ctx, "forward payment proof to admin", err)
	}
	h.reply(ctx, userID, "Thanks! Your payment proof is being verified.")
}

// --- admin commands ---

func (h *Handlers) adminOnly(next tgbot.HandlerFunc) tgbot.HandlerFunc {
	return func(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update) {
		if update.Message == nil || update.Message.From.ID != h.adminID {
			return
		}
		next(ctx, bot, update)
	}
}

// onVideoUpload registers content when the admin sends a video. The caption
// carries either the new item's fields or an /addtrailer command.
func (h *Handlers) onVideoUpload(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	userID := update.Message.From.ID
	if userID != h.adminID {
		return
	}
	caption := strings.TrimSpace(update.Message.Caption)
	fileID := update.Message.Video.FileID
	h.reply(ctx, userID, h.videoUploadReply(ctx, caption, fileID))
}

func (h *Handlers) videoUploadReply(ctx context.Context, caption, fileID string) string {
	if caption == "" {
		return "Add a caption: name | title | category | price, or /addtrailer <name>."
	}
	if strings.HasPrefix(caption, "/addtrailer") {
		name := strings.TrimSpace(strings.TrimPrefix(caption, "/addtrailer"))
		if name == "" {
			return "Usage: /addtrailer <name> as the video caption."
		}
		item, err := h.catalog.AddTrailer(ctx, name, fileID)
		if err != nil {
			return h.adminErrorReply(ctx, "add trailer", err)
		}
		return fmt.Sprintf("Trailer %d added to %s.", len(item.TrailerHandles), item.Name)
	}

	input, err := parseAddVideoCaption(caption, fileID)
	if err != nil {
		return err.Error()
	}
	item, upsertErr := h.catalog.Upsert(ctx, input)
	if upsertErr != nil {
		return h.adminErrorReply(ctx, "register content", upsertErr)
	}
	return fmt.Sprintf("Registered %s (%s) at price %d.", item.Name, item.Category, item.PriceAmount)
}

// parseAddVideoCaption parses "name | title | category | price"; the title
// may be omitted.
func parseAddVideoCaption(caption, fileID string) (catalog.UpsertContentInput, error) {
	parts := strings.Split(caption, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) != 3 && len(parts) != 4 {
		return catalog.UpsertContentInput{}, fmt.Errorf("caption format: name | title | category | price")
	}
	name := parts[0]
	title := name
	rest := parts[1:]
	if len(parts) == 4 {
		title = parts[1]
		rest = parts[2:]
	}
	category, err := enums.ParseContentCategory(rest[0])
	if err != nil {
		return catalog.UpsertContentInput{}, fmt.Errorf("unknown category %q", rest[0])
	}
	price, err := strconv.Atoi(rest[1])
	if err != nil || price < 0 {
		return catalog.UpsertContentInput{}, fmt.Errorf("price must be a non-negative number")
	}
	return catalog.UpsertContentInput{
		Name:          name,
		Title:         title,
		Category:      category,
		PriceAmount:   price,
		ContentHandle: fileID,
	}, nil
}

func (h *Handlers) onRename(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/rename")
	if len(args) != 2 {
		h.reply(ctx, h.adminID, "Usage: /rename <old> <new>")
		return
	}
	if err := h.catalog.Rename(ctx, args[0], args[1]); err != nil {
		h.reply(ctx, h.adminID, h.adminErrorReply(ctx, "rename content", err))
		return
	}
	h.reply(ctx, h.adminID, fmt.Sprintf("Renamed %s to %s.", args[0], args[1]))
}

func (h *Handlers) onDelete(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/delete")
	if len(args) != 1 {
		h.reply(ctx, h.adminID, "Usage: /delete <name>")
		return
	}
	if err := h.catalog.Delete(ctx, args[0]); err != nil {
		h.reply(ctx, h.adminID, h.adminErrorReply(ctx, "delete content", err))
		return
	}
	h.reply(ctx, h.adminID, fmt.Sprintf("Deleted %s and its delivery history.", args[0]))
}

func (h *Handlers) onUpdateMeta(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/updatemeta")
	if len(args) < 3 {
		h.reply(ctx, h.adminID, "Usage: /updatemeta <name> <field> <value>")
		return
	}
	name, field, value := args[0], args[1], strings.Join(args[2:], " ")
	patch, err := metadataPatch(field, value)
	if err != nil {
		h.reply(ctx, h.adminID, err.Error())
		return
	}
	if _, err := h.catalog.UpdateMetadata(ctx, name, patch); err != nil {
		h.reply(ctx, h.adminID, h.adminErrorReply(ctx, "update metadata", err))
		return
	}
	h.reply(ctx, h.adminID, fmt.Sprintf("Updated %s of %s.", field, name))
}

// metadataPatch maps an /updatemeta field name to a one-field patch.
func metadataPatch(field, value string) (catalog.MetadataPatch, error) {
	var patch catalog.MetadataPatch
	switch strings.ToLower(field) {
	case "title":
		patch.Title = &value
	case "category":
		category, err := enums.ParseContentCategory(value)
		if err != nil {
			return patch, fmt.Errorf("unknown category %q", value)
		}
		patch.Category = &category
	case "price":
		price, err := strconv.Atoi(value)
		if err != nil {
			return patch, fmt.Errorf("price must be a number")
		}
		patch.PriceAmount = &price
	case "year":
		year, err := strconv.Atoi(value)
		if err != nil {
			return patch, fmt.Errorf("year must be a number")
		}
		patch.Year = &year
	case "genre":
		patch.Genre = &value
	case "duration":
		patch.Duration = &value
	case "rating":
		rating, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return patch, fmt.Errorf("rating must be a number")
		}
		patch.Rating = &rating
	case "description":
		patch.Description = &value
	case "director":
		patch.Director = &value
	case "cast":
		patch.Cast = &value
	case "release":
		patch.Release = &value
	case "poster":
		patch.Poster = &value
	default:
		return patch, fmt.Errorf("unknown field %q", field)
	}
	return patch, nil
}

func (h *Handlers) onUnblock(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/unblock")
	if len(args) != 1 {
		h.reply(ctx, h.adminID, "Usage: /unblock <user_id>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.reply(ctx, h.adminID, "User id must be a number.")
		return
	}
	h.reply(ctx, h.adminID, h.unblockReply(ctx, targetID))
}

func (h *Handlers) unblockReply(ctx context.Context, targetID int64) string {
	if err := h.gate.Unblock(ctx, targetID); err != nil {
		if errors.IsCode(err, errors.CodeNotFound) {
			return fmt.Sprintf("User %d is not blocked.", targetID)
		}
		return h.adminErrorReply(ctx, "unblock user", err)
	}
	return fmt.Sprintf("User %d unblocked; their request window starts fresh.", targetID)
}

func (h *Handlers) onBlocked(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	statuses, err := h.gate.ListBlocked(ctx)
	if err != nil {
		h.reply(ctx, h.adminID, h.adminErrorReply(ctx, "list blocked users", err))
		return
	}
	if len(statuses) == 0 {
		h.reply(ctx, h.adminID, "No blocked users.")
		return
	}
	var b strings.Builder
	b.WriteString("Blocked users:\n")
	for _, status := range statuses {
		fmt.Fprintf(&b, "• %d since %s\n", status.UserID, status.BlockedAt.Format("2006-01-02 15:04"))
	}
	h.reply(ctx, h.adminID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handlers) onVideoLogs(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/videologs")
	if len(args) != 1 {
		h.reply(ctx, h.adminID, "Usage: /videologs <user_id>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.reply(ctx, h.adminID, "User id must be a number.")
		return
	}
	report, err := h.reports.UserActivityReport(ctx, targetID, 20)
	if err != nil {
		h.reply(ctx, h.adminID, h.adminErrorReply(ctx, "build user report", err))
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "User %d — balance %d\n", report.UserID, report.Balance)
	if len(report.Deliveries) == 0 {
		b.WriteString("No deliveries.\n")
	}
	for _, record := range report.Deliveries {
		fmt.Fprintf(&b, "• %s (%s) %s\n", record.ContentName, record.Reason, record.CreatedAt.Format("2006-01-02"))
	}
	fmt.Fprintf(&b, "Submissions: %d", len(report.Submissions))
	h.reply(ctx, h.adminID, b.String())
}

func (h *Handlers) onStats(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	h.reply(ctx, h.adminID, h.statsReply(ctx))
}

func (h *Handlers) statsReply(ctx context.Context) string {
	counts, err := h.reports.DeliveryStats(ctx)
	if err != nil {
		return h.adminErrorReply(ctx, "load delivery stats", err)
	}
	active, err := h.reports.ActiveSubscriptions(ctx)
	if err != nil {
		return h.adminErrorReply(ctx, "load active subscriptions", err)
	}
	var b strings.Builder
	b.WriteString("Deliveries per title:\n")
	if len(counts) == 0 {
		b.WriteString("none yet\n")
	}
	for _, count := range counts {
		fmt.Fprintf(&b, "• %s: %d\n", count.ContentName, count.Count)
	}
	fmt.Fprintf(&b, "Active subscriptions: %d", len(active))
	return b.String()
}

func (h *Handlers) onVerifyPayment(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/verifypayment")
	if len(args) != 1 {
		h.reply(ctx, h.adminID, "Usage: /verifypayment <user_id>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.reply(ctx, h.adminID, "User id must be a number.")
		return
	}
	submission, err := h.approvals.LatestPendingByUser(ctx, targetID)
	if err != nil {
		h.reply(ctx, h.adminID, h.adminErrorReply(ctx, "load pending submission", err))
		return
	}
	if submission == nil {
		h.reply(ctx, h.adminID, fmt.Sprintf("User %d has no pending submission.", targetID))
		return
	}
	if err := h.sender.PromptApproval(ctx, submission); err != nil {
		h.logg.Error(ctx, "prompt approval", err)
	}
}

// onSendVideo delivers content directly, outside the entitlement flow.
// Nothing is charged; the delivery is logged so the user can re-request it
// for free later.
func (h *Handlers) onSendVideo(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/sendvideo")
	if len(args) != 2 {
		h.reply(ctx, h.adminID, "Usage: /sendvideo <user_id> <name>")
		return
	}
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		h.reply(ctx, h.adminID, "User id must be a number.")
		return
	}
	h.reply(ctx, h.adminID, h.sendVideoReply(ctx, targetID, args[1]))
}

func (h *Handlers) sendVideoReply(ctx context.Context, targetID int64, name string) string {
	item, err := h.catalog.Get(ctx, name)
	if err != nil {
		return h.adminErrorReply(ctx, "load content", err)
	}
	if err := h.sender.Deliver(ctx, targetID, item); err != nil {
		return h.adminErrorReply(ctx, "deliver content", err)
	}
	if err := h.deliveryLog.Record(ctx, targetID, item.Name, enums.GrantReasonAdminSend); err != nil {
		return h.adminErrorReply(ctx, "record delivery", err)
	}
	return fmt.Sprintf("Sent %s to user %d free of charge.", item.Name, targetID)
}

func (h *Handlers) onGrantSub(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	args := commandArgs(update.Message.Text, "/grantsub")
	if len(args) != 3 && len(args) != 4 {
		h.reply(ctx, h.adminID, "Usage: /grantsub <user_id> <category> <days> [price]")
		return
	}
	h.reply(ctx, h.adminID, h.grantSubReply(ctx, args))
}

func (h *Handlers) grantSubReply(ctx context.Context, args []string) string {
	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return "User id must be a number."
	}
	category, err := enums.ParseSubscriptionCategory(args[1])
	if err != nil {
		return fmt.Sprintf("Unknown category %q.", args[1])
	}
	days, err := strconv.Atoi(args[2])
	if err != nil || days <= 0 {
		return "Days must be a positive number."
	}
	price := 0
	if len(args) == 4 {
		price, err = strconv.Atoi(args[3])
		if err != nil || price < 0 {
			return "Price must be a non-negative number."
		}
	}
	subscription, err := h.subscriptions.Activate(ctx, targetID, category, time.Duration(days)*subscriptionDayHours, price)
	if err != nil {
		return h.adminErrorReply(ctx, "grant subscription", err)
	}
	return fmt.Sprintf(
		"Granted %s subscription to user %d until %s.",
		subscription.Category, targetID, subscription.EndAt.Format("2006-01-02"),
	)
}

// --- callbacks ---

func (h *Handlers) onApproveCallback(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update) {
	submissionID, ok := h.callbackTarget(ctx, bot, update, callbackApprovePrefix)
	if !ok {
		return
	}
	if err := h.sessions.Begin(ctx, h.adminID, submissionID); err != nil {
		h.logg.Error(ctx, "open verification session", err)
		h.reply(ctx, h.adminID, "Could not start verification. Tap approve again.")
		return
	}
	h.reply(ctx, h.adminID, fmt.Sprintf(
		"Send the amount to credit for submission #%d, or \"sub <category> <days> [price]\" to grant a subscription instead.",
		submissionID,
	))
}

// onPlainText closes the awaiting-amount conversation: a bare number from
// the admin is the amount for the submission they last tapped approve on.
func (h *Handlers) onPlainText(ctx context.Context, _ *tgbot.Bot, update *tgmodels.Update) {
	userID := update.Message.From.ID
	if userID != h.adminID {
		return
	}
	h.reply(ctx, h.adminID, h.adminAmountReply(ctx, strings.TrimSpace(update.Message.Text)))
}

func (h *Handlers) adminAmountReply(ctx context.Context, text string) string {
	submissionID, open, err := h.sessions.Pending(ctx, h.adminID)
	if err != nil {
		return h.adminErrorReply(ctx, "read verification session", err)
	}
	if !open {
		return ""
	}
	if strings.HasPrefix(text, "sub ") || text == "sub" {
		return h.adminSubscriptionReply(ctx, submissionID, strings.Fields(text)[1:])
	}
	amount, err := strconv.Atoi(text)
	if err != nil || amount <= 0 {
		return "Send the amount as a positive number, or \"sub <category> <days> [price]\"."
	}
	submission, err := h.approvals.Approve(ctx, submissionID, amount)
	if err != nil {
		if errors.IsCode(err, errors.CodeAlreadyProcessed) {
			_ = h.sessions.Clear(ctx, h.adminID)
			return fmt.Sprintf("Submission #%d was already processed.", submissionID)
		}
		return h.adminErrorReply(ctx, "approve submission", err)
	}
	if err := h.sessions.Clear(ctx, h.adminID); err != nil {
		h.logg.Error(ctx, "close verification session", err)
	}
	return fmt.Sprintf("Approved submission #%d for user %d: +%d.", submission.ID, submission.UserID, amount)
}

// adminSubscriptionReply settles a pending submission as a subscription
// purchase instead of a balance top-up.
func (h *Handlers) adminSubscriptionReply(ctx context.Context, submissionID int64, args []string) string {
	if len(args) < 2 || len(args) > 3 {
		return "Usage: sub <category> <days> [price]"
	}
	category, err := enums.ParseSubscriptionCategory(args[0])
	if err != nil {
		return fmt.Sprintf("Unknown category %q.", args[0])
	}
	days, err := strconv.Atoi(args[1])
	if err != nil || days <= 0 {
		return "Days must be a positive number."
	}
	price := 0
	if len(args) == 3 {
		price, err = strconv.Atoi(args[2])
		if err != nil || price < 0 {
			return "Price must be a non-negative number."
		}
	}
	submission, err := h.approvals.ApproveSubscription(ctx, submissionID, category, time.Duration(days)*subscriptionDayHours, price)
	if err != nil {
		if errors.IsCode(err, errors.CodeAlreadyProcessed) {
			_ = h.sessions.Clear(ctx, h.adminID)
			return fmt.Sprintf("Submission #%d was already processed.", submissionID)
		}
		return h.adminErrorReply(ctx, "approve subscription", err)
	}
	if err := h.sessions.Clear(ctx, h.adminID); err != nil {
		h.logg.Error(ctx, "close verification session", err)
	}
	return fmt.Sprintf(
		"Approved submission #%d: granted %s subscription to user %d for %d days.",
		submission.ID, category, submission.UserID, days,
	)
}

func (h *Handlers) onRejectCallback(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update) {
	submissionID, ok := h.callbackTarget(ctx, bot, update, callbackRejectPrefix)
	if !ok {
		return
	}
	submission, err := h.approvals.Reject(ctx, submissionID)
	if err != nil {
		if errors.IsCode(err, errors.CodeAlreadyProcessed) {
			h.reply(ctx, h.adminID, fmt.Sprintf("Submission #%d was already processed.", submissionID))
			return
		}
		h.reply(ctx, h.adminID, h.adminErrorReply(ctx, "reject submission", err))
		return
	}
	h.reply(ctx, h.adminID, fmt.Sprintf("Rejected submission #%d from user %d.", submission.ID, submission.UserID))
}

func (h *Handlers) onUnblockCallback(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update) {
	targetID, ok := h.callbackTarget(ctx, bot, update, callbackUnblockPrefix)
	if !ok {
		return
	}
	h.reply(ctx, h.adminID, h.unblockReply(ctx, targetID))
}

// onVideoCallback serves catalog browse buttons the same way as a deep
// link.
func (h *Handlers) onVideoCallback(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update) {
	if update.CallbackQuery == nil {
		return
	}
	h.answerCallback(ctx, bot, update)
	userID := update.CallbackQuery.From.ID
	name := strings.TrimPrefix(update.CallbackQuery.Data, callbackVideoPrefix)
	h.reply(ctx, userID, h.videoRequestReply(ctx, userID, name))
}

// callbackTarget answers the callback, checks the admin, and parses the id
// out of the callback data.
func (h *Handlers) callbackTarget(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update, prefix string) (int64, bool) {
	if update.CallbackQuery == nil {
		return 0, false
	}
	h.answerCallback(ctx, bot, update)
	if update.CallbackQuery.From.ID != h.adminID {
		return 0, false
	}
	raw := strings.TrimPrefix(update.CallbackQuery.Data, prefix)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		h.logg.Error(ctx, "parse callback data", err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) answerCallback(ctx context.Context, bot *tgbot.Bot, update *tgmodels.Update) {
	_, err := bot.AnswerCallbackQuery(ctx, &tgbot.AnswerCallbackQueryParams{
		CallbackQueryID: update.CallbackQuery.ID,
	})
	if err != nil {
		h.logg.Error(ctx, "answer callback query", err)
	}
}

// --- helpers ---

func (h *Handlers) reply(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if err := h.sender.SendText(ctx, chatID, text); err != nil {
		h.logg.Error(h.logg.WithUserID(ctx, chatID), "send reply", err)
	}
}

func (h *Handlers) adminErrorReply(ctx context.Context, action string, err error) string {
	h.logg.Error(ctx, action, err)
	if typed := errors.As(err); typed != nil {
		return fmt.Sprintf("Failed to %s: %s.", action, errors.MetadataFor(typed.Code()).PublicMessage)
	}
	return fmt.Sprintf("Failed to %s.", action)
}

func commandArgs(text, command string) []string {
	return strings.Fields(strings.TrimSpace(strings.TrimPrefix(text, command)))
}
