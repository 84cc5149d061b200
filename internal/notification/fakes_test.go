package notification

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"CampusNotify/internal/attachment"
	"CampusNotify/internal/auth"
	"CampusNotify/internal/channel"
	"CampusNotify/internal/directory"
	"CampusNotify/pkg/monitoring"

	"go.uber.org/zap"
)

type memStore struct {
	mu   sync.Mutex
	docs map[string]*Message
	saves    int
	failSave func(n int) bool
}

var errSaveFailed = errors.New("save failed")

func newMemStore() *memStore { return &memStore{docs: map[string]*Message{}} }

func clone(m *Message) *Message {
	c := *m
	c.Recipients = append([]string(nil), m.Recipients...)
	c.Channels = append([]string(nil), m.Channels...)
	c.AppReadBy = append([]string(nil), m.AppReadBy...)
	c.Attachments = append([]attachment.Metadata(nil), m.Attachments...)
	if m.EmailStatuses != nil {
		c.EmailStatuses = make(map[string]Status, len(m.EmailStatuses))
		for k, v := range m.EmailStatuses {
			c.EmailStatuses[k] = v
		}
	}
	if m.AppStatuses != nil {
		c.AppStatuses = make(map[string]Status, len(m.AppStatuses))
		for k, v := range m.AppStatuses {
			c.AppStatuses[k] = v
		}
	}
	if m.ScheduledAt != nil {
		at := *m.ScheduledAt
		c.ScheduledAt = &at
	}
	return &c
}

func (s *memStore) Save(_ context.Context, m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if s.failSave != nil && s.failSave(s.saves) {
		return errSaveFailed
	}
	s.docs[m.ID] = clone(m)
	return nil
}

func (s *memStore) FindByID(_ context.Context, id string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.docs[id]
	if !ok {
		return nil, nil
	}
	return clone(m), nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	return nil
}

func (s *memStore) FindDue(_ context.Context, now time.Time) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Message
	for _, m := range s.docs {
		if m.Status == StatusScheduled && m.ScheduledAt != nil && !m.ScheduledAt.After(now) {
			out = append(out, clone(m))
		}
	}
	return out, nil
}

func (s *memStore) ClaimScheduled(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.docs[id]
	if !ok || m.Status != StatusScheduled {
		return false, nil
	}
	m.Status = StatusDispatching
	m.ScheduledAt = nil
	return true, nil
}

func (s *memStore) filtered(f Filter) []*Message {
	var out []*Message
	for _, m := range s.docs {
		if f.TenantID != "" && m.TenantID != f.TenantID {
			continue
		}
		if f.Year != "" && m.Year != f.Year {
			continue
		}
		if f.SenderEmail != "" && m.SenderEmail != f.SenderEmail {
			continue
		}
		if f.Recipient != "" && !m.IsRecipient(f.Recipient) {
			continue
		}
		out = append(out, clone(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *memStore) Count(_ context.Context, f Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.filtered(f))), nil
}

func (s *memStore) Find(_ context.Context, f Filter, skip, limit int64) ([]*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.filtered(f)
	if skip >= int64(len(all)) {
		return nil, nil
	}
	all = all[skip:]
	if limit > 0 && limit < int64(len(all)) {
		all = all[:limit]
	}
	return all, nil
}

// failSaves makes count saves fail after the next skip succeed.
func (s *memStore) failSaves(skip, count int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := s.saves + skip
	s.failSave = func(n int) bool { return n > start && n <= start+count }
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

type fakeDirectory struct {
	roles    map[string]auth.Role
	students map[string]bool
	names    map[string]string
}

func (d *fakeDirectory) RolesByEmail(_ context.Context, emails []string) (map[string]auth.Role, error) {
	out := map[string]auth.Role{}
	for _, e := range emails {
		if r, ok := d.roles[e]; ok {
			out[e] = r
		}
	}
	return out, nil
}

func (d *fakeDirectory) StudentContacts(_ context.Context, emails []string) ([]string, error) {
	var out []string
	for _, e := range emails {
		if d.students[e] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (d *fakeDirectory) DisplayNames(_ context.Context, emails []string) map[string]string {
	out := map[string]string{}
	for _, e := range emails {
		if n, ok := d.names[e]; ok {
			out[e] = n
		}
	}
	return out
}

func (d *fakeDirectory) UserName(_ context.Context, email string) string { return d.names[email] }

type fakeGroups map[string]*directory.Group

func (g fakeGroups) FindByID(_ context.Context, id, _ string) (*directory.Group, error) {
	return g[id], nil
}

type fakePerms map[string][]string

func (p fakePerms) AllowedGroups(_ context.Context, _, email string) ([]string, error) {
	return p[email], nil
}

type fakeDevices map[string][]string

func (d fakeDevices) TokensForRecipients(_ context.Context, emails []string, _ string) ([]string, error) {
	var out []string
	for _, e := range emails {
		out = append(out, d[e]...)
	}
	return out, nil
}

type fakeAttachments struct {
	mu    sync.Mutex
	blobs map[string]attachment.Payload
}

func (a *fakeAttachments) Save(_ context.Context, tenantID, messageID string, payloads []attachment.Payload) ([]attachment.Metadata, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.blobs == nil {
		a.blobs = map[string]attachment.Payload{}
	}
	metas := make([]attachment.Metadata, 0, len(payloads))
	for _, p := range payloads {
		key := attachment.ObjectKey(tenantID, messageID, p.FileName)
		a.blobs[key] = p
		metas = append(metas, attachment.Metadata{FileName: p.FileName, MimeType: p.MimeType, SizeBytes: int64(len(p.Content)), ObjectKey: key})
	}
	return metas, nil
}

func (a *fakeAttachments) Load(_ context.Context, metas []attachment.Metadata) []attachment.Payload {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []attachment.Payload
	for _, m := range metas {
		if p, ok := a.blobs[m.ObjectKey]; ok {
			out = append(out, p)
		}
	}
	return out
}

type recordingEmail struct {
	mu      sync.Mutex
	enabled bool
	fail    map[string]bool
	sent    []channel.Email
}

func (e *recordingEmail) IsEnabled() bool { return e.enabled }

func (e *recordingEmail) Send(_ context.Context, m channel.Email) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail[m.To] {
		return channel.ErrEmailDisabled
	}
	e.sent = append(e.sent, m)
	return nil
}

func (e *recordingEmail) sentTo(addr string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, m := range e.sent {
		if m.To == addr {
			n++
		}
	}
	return n
}

type recordingPush struct {
	mu    sync.Mutex
	calls [][]string
	last  channel.PushNotification
}

func (p *recordingPush) Send(_ context.Context, tokens []string, n channel.PushNotification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, tokens)
	p.last = n
	return nil
}

type fakeSchools map[string]*directory.School

func (s fakeSchools) FindSchool(_ context.Context, id string) (*directory.School, error) {
	return s[id], nil
}

type harness struct {
	store   *memStore
	dir     *fakeDirectory
	groups  fakeGroups
	perms   fakePerms
	devices fakeDevices
	files   *fakeAttachments
	email   *recordingEmail
	push    *recordingPush
	now     time.Time

	dispatcher *Dispatcher
	scheduler  *Scheduler
	tracker    *Tracker
	service    *Service
}

func newHarness() *harness {
	h := &harness{
		store: newMemStore(),
		dir: &fakeDirectory{
			roles: map[string]auth.Role{
				"coord@school.test": auth.RoleCoordinator,
				"peer@school.test":  auth.RoleTeacher,
				"kid@school.test":   auth.RoleStudent,
			},
			students: map[string]bool{"kid@school.test": true, "mom@home.test": true},
			names:    map[string]string{"kid@school.test": "Kid Doe"},
		},
		groups:  fakeGroups{},
		perms:   fakePerms{},
		devices: fakeDevices{},
		files:   &fakeAttachments{},
		email:   &recordingEmail{enabled: true},
		push:    &recordingPush{},
		now:     time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	logger := zap.NewNop()
	metrics := monitoring.NewMetrics(nil)
	schools := fakeSchools{"t1": {ID: "t1", Name: "North High"}}

	h.dispatcher = NewDispatcher(h.store, h.email, h.push, h.dir, h.devices,
		channel.NewRenderer("CampusNotify", ""),
		DispatcherConfig{TrackingBaseURL: "https://notify.test", BrandName: "CampusNotify"},
		logger, metrics)
	h.scheduler = NewScheduler(h.store, h.files, schools, h.dispatcher, nil, 0, logger, metrics)
	h.scheduler.now = func() time.Time { return h.now }
	h.tracker = NewTracker(h.store, logger)
	resolver := NewResolver(h.groups, h.perms, h.dir, logger)
	h.service = NewService(h.store, resolver, h.dispatcher, h.scheduler, h.tracker, h.dir, h.files, logger, metrics)
	h.service.now = func() time.Time { return h.now }
	h.service.location = time.UTC
	return h
}

func admin() auth.Identity {
	return auth.Identity{Email: "admin@school.test", Name: "Ada Admin", Role: auth.RoleAdmin, TenantID: "t1"}
}

func teacher() auth.Identity {
	return auth.Identity{Email: "teacher@school.test", Name: "Tom Teacher", Role: auth.RoleTeacher, TenantID: "t1"}
}

func members(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strings.ToLower(prefix) + string(rune('a'+i%26)) + strings.Repeat("x", i/26) + "@school.test"
	}
	return out
}
