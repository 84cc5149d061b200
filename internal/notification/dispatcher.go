package notification

import (
	"context"
	"strings"
	"time"

	"CampusNotify/internal/apperr"
	"CampusNotify/internal/attachment"
	"CampusNotify/internal/channel"
	"CampusNotify/internal/directory"
	"CampusNotify/pkg/monitoring"

	"go.uber.org/zap"
)

// Dispatcher delivers a message over its requested channels and records the
// per-recipient outcome.
type Dispatcher struct {
	store        Store
	email        channel.EmailProvider
	push         channel.PushProvider
	directory    Directory
	devices      DeviceTokens
	renderer     *channel.Renderer
	trackingBase string
	brand        string
	logger       *zap.Logger
	metrics      *monitoring.Metrics
}

// DispatcherConfig holds the presentation settings of outgoing mail.
type DispatcherConfig struct {
	TrackingBaseURL string
	BrandName       string
}

func NewDispatcher(
	store Store,
	email channel.EmailProvider,
	push channel.PushProvider,
	dir Directory,
	devices DeviceTokens,
	renderer *channel.Renderer,
	cfg DispatcherConfig,
	logger *zap.Logger,
	metrics *monitoring.Metrics,
) *Dispatcher {
	return &Dispatcher{
		store:        store,
		email:        email,
		push:         push,
		directory:    dir,
		devices:      devices,
		renderer:     renderer,
		trackingBase: cfg.TrackingBaseURL,
		brand:        cfg.BrandName,
		logger:       logger,
		metrics:      metrics,
	}
}

// Subject returns "<school> - New message from <sender>".
func (d *Dispatcher) Subject(m *Message, school *directory.School) string {
	name := d.brand
	if school != nil && strings.TrimSpace(school.Name) != "" {
		name = school.Name
	}
	return name + " - New message from " + m.SenderName
}

// PrepareChannels initializes the per-recipient status maps for the
// requested channels. "app" is dropped when no recipient is a student or
// guardian.
func (d *Dispatcher) PrepareChannels(ctx context.Context, m *Message) error {
	if m.HasChannel(ChannelApp) {
		eligible, err := d.appEligible(ctx, m)
		if err != nil {
			return err
		}
		if len(eligible) == 0 {
			m.RemoveChannel(ChannelApp)
			m.AppStatuses = nil
		} else {
			m.AppStatuses = make(map[string]Status, len(eligible))
			for _, r := range eligible {
				m.AppStatuses[r] = StatusPending
			}
		}
	}
	if m.HasChannel(ChannelEmail) {
		m.EmailStatuses = make(map[string]Status, len(m.Recipients))
		for _, r := range m.Recipients {
			m.EmailStatuses[r] = StatusPending
		}
	}
	return nil
}

func (d *Dispatcher) appEligible(ctx context.Context, m *Message) ([]string, error) {
	eligible, err := d.directory.StudentContacts(ctx, m.Recipients)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "could not resolve app recipients")
	}
	return eligible, nil
}

// Dispatch sends m over every requested channel, then writes the full
// document with scheduledAt cleared.
func (d *Dispatcher) Dispatch(ctx context.Context, m *Message, files []attachment.Payload, school *directory.School) error {
	mailOK := true
	if m.HasChannel(ChannelEmail) {
		mailOK = d.deliverEmail(ctx, m, files, school)
		if mailOK {
			m.EmailStatus = StatusSent
		} else {
			m.EmailStatus = StatusFailed
		}
	}

	if m.HasChannel(ChannelApp) {
		if err := d.deliverApp(ctx, m, school); err != nil {
			return err
		}
	}

	if mailOK {
		m.Status = StatusSent
	} else {
		m.Status = StatusFailed
	}
	m.ScheduledAt = nil

	if err := d.store.Save(ctx, m); err != nil {
		return apperr.Wrap(apperr.Internal, err, "could not save message")
	}
	return nil
}

// MarkFailed records a dispatch that could not complete so the message does
// not stay in Dispatching. Per-recipient progress already on m is kept.
func (d *Dispatcher) MarkFailed(ctx context.Context, m *Message, cause error) {
	m.Status = StatusFailed
	m.ScheduledAt = nil
	if err := d.store.Save(ctx, m); err != nil {
		d.logger.Error("could not record failed dispatch",
			zap.String("message", m.ID),
			zap.NamedError("cause", cause),
			zap.Error(err))
	}
}

func (d *Dispatcher) deliverEmail(ctx context.Context, m *Message, files []attachment.Payload, school *directory.School) bool {
	if m.EmailStatuses == nil {
		m.EmailStatuses = make(map[string]Status, len(m.Recipients))
	}
	if !d.email.IsEnabled() {
		for _, r := range m.Recipients {
			m.EmailStatuses[r] = StatusFailed
		}
		d.metrics.EmailDeliveries.WithLabelValues("disabled").Add(float64(len(m.Recipients)))
		return false
	}

	subject := d.Subject(m, school)
	view := channel.EmailView{
		Heading:     m.Reason,
		SenderName:  m.SenderName,
		SenderEmail: m.SenderEmail,
		Content:     m.Content,
	}
	if school != nil {
		view.SchoolName = school.Name
		view.LogoURL = school.LogoURL
	}
	for _, f := range files {
		if f.IsInlineImage() {
			view.InlineImageCID = f.ContentID
			break
		}
	}

	attempted := 0
	ok := true
	for _, r := range m.Recipients {
		if !strings.Contains(r, "@") {
			// never attempted; the entry stays Pending
			continue
		}
		attempted++
		view.Recipient = r
		view.RecipientName = m.RecipientNames[r]
		html, err := d.renderer.Render(view)
		if err != nil {
			d.logger.Error("email render failed", zap.String("message", m.ID), zap.Error(err))
			m.EmailStatuses[r] = StatusFailed
			ok = false
			continue
		}
		html = channel.WithTrackingPixel(html, channel.TrackingURL(d.trackingBase, m.ID, r))

		err = d.email.Send(ctx, channel.Email{To: r, Subject: subject, HTML: html, Attachments: files})
		if err != nil {
			d.logger.Warn("email send failed", zap.String("message", m.ID), zap.String("recipient", r), zap.Error(err))
			m.EmailStatuses[r] = StatusFailed
			d.metrics.EmailDeliveries.WithLabelValues("failed").Inc()
			ok = false
			continue
		}
		m.EmailStatuses[r] = StatusSent
		d.metrics.EmailDeliveries.WithLabelValues("sent").Inc()
	}
	return ok && attempted > 0
}

func (d *Dispatcher) deliverApp(ctx context.Context, m *Message, school *directory.School) error {
	eligible, err := d.appEligible(ctx, m)
	if err != nil {
		return err
	}
	if len(eligible) == 0 {
		m.RemoveChannel(ChannelApp)
		m.AppStatuses = nil
		m.AppStatus = ""
		return nil
	}
	if m.AppStatuses == nil {
		m.AppStatuses = make(map[string]Status, len(eligible))
	}
	for _, r := range eligible {
		if _, seen := m.AppStatuses[r]; !seen {
			m.AppStatuses[r] = StatusPending
		}
	}
	m.AppStatus = StatusPending

	tokens, err := d.devices.TokensForRecipients(ctx, eligible, m.TenantID)
	if err != nil {
		d.logger.Warn("device token lookup failed", zap.String("message", m.ID), zap.Error(err))
		return nil
	}
	if len(tokens) == 0 {
		return nil
	}

	n := channel.PushNotification{
		Title:     d.pushTitle(school),
		Body:      pushBody(m),
		MessageID: m.ID,
		TenantID:  m.TenantID,
	}
	pushCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := d.push.Send(pushCtx, tokens, n); err != nil {
		d.logger.Warn("push delivery failed", zap.String("message", m.ID), zap.Int("tokens", len(tokens)), zap.Error(err))
		d.metrics.PushBatches.WithLabelValues("failed").Inc()
	} else {
		d.metrics.PushBatches.WithLabelValues("sent").Inc()
	}
	for r, st := range m.AppStatuses {
		if st == StatusPending {
			m.AppStatuses[r] = StatusSent
		}
	}
	return nil
}

func (d *Dispatcher) pushTitle(school *directory.School) string {
	if school != nil && strings.TrimSpace(school.Name) != "" {
		return school.Name
	}
	return d.brand
}

func pushBody(m *Message) string {
	body := strings.TrimSpace(m.Content)
	if r := []rune(body); len(r) > 140 {
		body = string(r[:137]) + "..."
	}
	if m.SenderName != "" {
		return m.SenderName + ": " + body
	}
	return body
}
