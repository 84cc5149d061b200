package notification

import (
	"context"
	"strconv"
	"strings"
	"time"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/attachment"
	"CampusNotify/internal/auth"
	"CampusNotify/pkg/monitoring"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// searchScanLimit bounds the in-memory scan of a free-text query.
	searchScanLimit = 5000
)

// Service is the message API used by the HTTP handlers.
type Service struct {
	store       Store
	resolver    *Resolver
	dispatcher  *Dispatcher
	scheduler   *Scheduler
	tracker     *Tracker
	directory   Directory
	attachments Attachments
	logger      *zap.Logger
	metrics     *monitoring.Metrics
	location    *time.Location
	now         func() time.Time
}

func NewService(
	store Store,
	resolver *Resolver,
	dispatcher *Dispatcher,
	scheduler *Scheduler,
	tracker *Tracker,
	dir Directory,
	attachments Attachments,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *Service {
	return &Service{
		store:       store,
		resolver:    resolver,
		dispatcher:  dispatcher,
		scheduler:   scheduler,
		tracker:     tracker,
		directory:   dir,
		attachments: attachments,
		logger:      logger,
		metrics:     metrics,
		location:    time.Local,
		now:         time.Now,
	}
}

// Create validates, resolves and stores a message, then either dispatches it
// or leaves it for the sweep.
func (s *Service) Create(ctx context.Context, sender auth.Identity, req CreateRequest) (*MessageView, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, apperr.Invalid("content is required")
	}
	channels, err := normalizeChannels(req.Channels)
	if err != nil {
		return nil, err
	}
	scheduledAt, err := ParseScheduleAt(req.ScheduleAt, s.location)
	if err != nil {
		return nil, err
	}
	files, err := attachment.Decode(req.Attachments)
	if err != nil {
		return nil, err
	}

	tenantID := sender.Tenant()
	if sender.IsGlobal() && strings.TrimSpace(req.TenantID) != "" {
		tenantID = strings.TrimSpace(req.TenantID)
	}
	year := strings.TrimSpace(req.Year)
	if year == "" {
		year = strconv.Itoa(s.now().In(s.location).Year())
	}

	res, err := s.resolver.Resolve(ctx, ResolveInput{
		Sender:     sender,
		TenantID:   tenantID,
		Year:       year,
		GroupIDs:   req.GroupIDs,
		Recipients: req.Recipients,
	})
	if err != nil {
		return nil, err
	}

	senderEmail := normalizeAddress(sender.Email)
	m := &Message{
		ID:             uuid.NewString(),
		TenantID:       tenantID,
		Year:           year,
		Content:        content,
		Reason:         strings.TrimSpace(req.Reason),
		SenderID:       senderEmail,
		SenderEmail:    senderEmail,
		SenderName:     s.senderName(ctx, sender),
		Recipients:     res.Recipients,
		RecipientNames: s.directory.DisplayNames(ctx, res.Recipients),
		GroupIDs:       res.GroupIDs,
		Broadcast:      res.Broadcast,
		Channels:       channels,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.dispatcher.PrepareChannels(ctx, m); err != nil {
		return nil, err
	}
	if m.HasChannel(ChannelEmail) {
		m.EmailStatus = StatusPending
	}
	if m.HasChannel(ChannelApp) {
		m.AppStatus = StatusPending
	}

	if len(files) > 0 {
		metas, err := s.attachments.Save(ctx, tenantID, m.ID, files)
		if err != nil {
			return nil, err
		}
		m.Attachments = metas
	}

	if s.scheduler.ShouldDefer(scheduledAt) {
		at := scheduledAt.UTC()
		m.ScheduledAt = &at
		m.Status = StatusScheduled
		if err := s.store.Save(ctx, m); err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "could not save message")
		}
		s.metrics.MessagesCreated.WithLabelValues("scheduled").Inc()
		s.logger.Info("message scheduled", zap.String("message", m.ID), zap.Time("at", at), zap.Int("recipients", len(m.Recipients)))
		return s.view(sender, m), nil
	}

	m.Status = StatusDispatching
	if err := s.store.Save(ctx, m); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not save message")
	}
	school := s.scheduler.school(ctx, tenantID)
	if err := s.dispatcher.Dispatch(ctx, m, files, school); err != nil {
		s.dispatcher.MarkFailed(ctx, m, err)
		return nil, err
	}
	s.metrics.MessagesCreated.WithLabelValues("immediate").Inc()
	s.logger.Info("message dispatched",
		zap.String("message", m.ID),
		zap.String("status", string(m.Status)),
		zap.Int("recipients", len(m.Recipients)))
	return s.view(sender, m), nil
}

// senderName prefers the token name. A blank name falls back to the address
// local part; a name that is just the address is looked up in the directory.
func (s *Service) senderName(ctx context.Context, sender auth.Identity) string {
	name := strings.TrimSpace(sender.Name)
	if name == "" {
		local, _, _ := strings.Cut(sender.Email, "@")
		return local
	}
	if strings.EqualFold(name, strings.TrimSpace(sender.Email)) {
		if found := strings.TrimSpace(s.directory.UserName(ctx, normalizeAddress(sender.Email))); found != "" {
			return found
		}
	}
	return name
}

func normalizeChannels(in []string) ([]string, error) {
	out := make([]string, 0, 2)
	for _, raw := range in {
		ch := strings.ToLower(strings.TrimSpace(raw))
		switch ch {
		case "":
			continue
		case ChannelEmail, ChannelApp:
			if !contains(out, ch) {
				out = append(out, ch)
			}
		default:
			return nil, apperr.Invalid("unknown channel %q", raw)
		}
	}
	if len(out) == 0 {
		out = append(out, ChannelEmail)
	}
	return out, nil
}

// List returns one page of the messages the caller may see.
func (s *Service) List(ctx context.Context, caller auth.Identity, q ListQuery) (*ListResult, error) {
	f, err := scopeFilter(caller, q)
	if err != nil {
		return nil, err
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}

	term := strings.ToLower(strings.TrimSpace(q.Query))
	if term != "" {
		return s.search(ctx, caller, f, term, page, size)
	}

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not count messages")
	}
	items, err := s.store.Find(ctx, f, int64((page-1)*size), int64(size))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not list messages")
	}
	return &ListResult{
		Items:    s.views(caller, items),
		Total:    total,
		Page:     page,
		PageSize: size,
		HasMore:  int64(page*size) < total,
	}, nil
}

func (s *Service) search(ctx context.Context, caller auth.Identity, f Filter, term string, page, size int) (*ListResult, error) {
	scanned, err := s.store.Find(ctx, f, 0, searchScanLimit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not search messages")
	}
	matched := make([]*Message, 0)
	for _, m := range scanned {
		if m.matches(term) {
			matched = append(matched, m)
		}
	}
	total := int64(len(matched))
	if len(scanned) >= searchScanLimit {
		total++
	}

	start := (page - 1) * size
	if start > len(matched) {
		start = len(matched)
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return &ListResult{
		Items:    s.views(caller, matched[start:end]),
		Total:    total,
		Page:     page,
		PageSize: size,
		HasMore:  int64(page*size) < total,
	}, nil
}

// Get returns a single message the caller may see.
func (s *Service) Get(ctx context.Context, caller auth.Identity, id string) (*MessageView, error) {
	m, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanView(caller, m) {
		return nil, apperr.Forbid("you cannot view this message")
	}
	return s.view(caller, m), nil
}

// Delete removes a message. Stored attachment blobs are kept.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, id string) error {
	m, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !CanDelete(caller, m) {
		return apperr.Forbid("you cannot delete this message")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return apperr.Wrap(apperr.Internal, err, "could not delete message")
	}
	s.logger.Info("message deleted", zap.String("message", id), zap.String("by", caller.Email))
	return nil
}

// MarkRead records that the caller read the message in the app.
func (s *Service) MarkRead(ctx context.Context, caller auth.Identity, id string) (*MessageView, error) {
	if strings.TrimSpace(caller.Email) == "" {
		return nil, apperr.Invalid("missing recipient")
	}
	m, err := s.tracker.MarkAppRead(ctx, id, caller.Email)
	if err != nil {
		return nil, err
	}
	return s.view(caller, m), nil
}

// TrackOpen records an email open from the tracking pixel.
func (s *Service) TrackOpen(ctx context.Context, id, recipient string) {
	s.tracker.MarkEmailOpened(ctx, id, recipient)
}

// ProcessScheduled runs the sweep on behalf of a privileged caller.
func (s *Service) ProcessScheduled(ctx context.Context, caller auth.Identity) (int, error) {
	if !caller.IsGlobal() {
		return 0, apperr.Forbid("only platform administrators can process scheduled messages")
	}
	return s.scheduler.ProcessScheduled(ctx)
}

func (s *Service) load(ctx context.Context, id string) (*Message, error) {
	m, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not load message")
	}
	if m == nil {
		return nil, apperr.Missing("message not found")
	}
	return m, nil
}

func (s *Service) view(caller auth.Identity, m *Message) *MessageView {
	return &MessageView{Message: m, CanDelete: CanDelete(caller, m)}
}

func (s *Service) views(caller auth.Identity, ms []*Message) []MessageView {
	out := make([]MessageView, 0, len(ms))
	for _, m := range ms {
		out = append(out, *s.view(caller, m))
	}
	return out
}
