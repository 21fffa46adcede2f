package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthe/healthe-api/internal/models"
	"github.com/healthe/healthe-api/internal/store"
)

type memUsers struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]models.User
	findErrs  []error // returned by successive FindByID calls before the map is consulted
	insertErr error
	findCalls int
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[primitive.ObjectID]models.User{}}
}

func (m *memUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if len(m.findErrs) > 0 {
		err := m.findErrs[0]
		m.findErrs = m.findErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) Insert(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
	}
	if _, ok := m.byID[user.ID]; ok {
		return store.ErrDuplicate
	}
	m.byID[user.ID] = *user
	return nil
}

func (m *memUsers) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd models.ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Phone != nil {
		u.Phone = *upd.Phone
	}
	if upd.Specialty != nil {
		u.Specialty = *upd.Specialty
	}
	if upd.ServiceType != nil {
		u.ServiceType = *upd.ServiceType
	}
	m.byID[id] = u
	return &u, nil
}

type memWithdrawals struct {
	mu       sync.Mutex
	byID     map[primitive.ObjectID]models.Withdrawal
	casHook  func() // runs inside CompareAndSetStatus before the check
	casCalls int
}

func newMemWithdrawals() *memWithdrawals {
	return &memWithdrawals{byID: map[primitive.ObjectID]models.Withdrawal{}}
}

func (m *memWithdrawals) put(w models.Withdrawal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[w.ID] = w
}

func (m *memWithdrawals) get(id primitive.ObjectID) models.Withdrawal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id]
}

func (m *memWithdrawals) Insert(ctx context.Context, w *models.Withdrawal) error {
	m.put(*w)
	return nil
}

func (m *memWithdrawals) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &w, nil
}

func (m *memWithdrawals) List(ctx context.Context, f models.WithdrawalFilter) ([]models.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Withdrawal, 0)
	for _, w := range m.byID {
		if f.ProfessionalID != nil && w.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.Status != "" && w.Status != f.Status {
			continue
		}
		out = append(out, w)
	}
	return out, nil
}

func (m *memWithdrawals) CompareAndSetStatus(ctx context.Context, id primitive.ObjectID, expected models.WithdrawalStatus, upd models.WithdrawalStatusUpdate) (bool, error) {
	if m.casHook != nil {
		m.casHook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.casCalls++
	w, ok := m.byID[id]
	if !ok || w.Status != expected {
		return false, nil
	}
	w.Status = upd.Status
	at := upd.ProcessedAt
	w.ProcessedAt = &at
	w.ProcessedBy = upd.ProcessedBy
	if upd.Note != "" {
		w.Note = upd.Note
	}
	if upd.TransactionID != "" {
		w.TransactionID = upd.TransactionID
	}
	m.byID[id] = w
	return true, nil
}

func (m *memWithdrawals) SumOpen(ctx context.Context, professionalID primitive.ObjectID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, w := range m.byID {
		if w.ProfessionalID == professionalID && (w.Status == models.WithdrawalPending || w.Status == models.WithdrawalApproved) {
			total += w.Amount
		}
	}
	return total, nil
}

type memTransactions struct {
	mu        sync.Mutex
	items     []models.RevenueTransaction
	insertErr error
}

func (m *memTransactions) Insert(ctx context.Context, tx *models.RevenueTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, existing := range m.items {
		if existing.Reference == tx.Reference {
			return store.ErrDuplicate
		}
	}
	if tx.ID.IsZero() {
		tx.ID = primitive.NewObjectID()
	}
	m.items = append(m.items, *tx)
	return nil
}

func (m *memTransactions) Totals(ctx context.Context, professionalID primitive.ObjectID) (models.RevenueTotals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var t models.RevenueTotals
	for _, tx := range m.items {
		if tx.ProfessionalID != professionalID {
			continue
		}
		switch tx.Kind {
		case models.TransactionConsultationFee:
			t.Earned += tx.ProfessionalAmount
		case models.TransactionWithdrawal:
			t.Withdrawn += tx.Amount
		}
	}
	return t, nil
}

func (m *memTransactions) ListForProfessional(ctx context.Context, professionalID primitive.ObjectID, limit int64) ([]models.RevenueTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.RevenueTransaction, 0)
	for _, tx := range m.items {
		if tx.ProfessionalID == professionalID {
			out = append(out, tx)
		}
	}
	return out, nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (m *memNotifications) Insert(ctx context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	m.items = append(m.items, *n)
	return nil
}

func (m *memNotifications) forRecipient(id string) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.items {
		if n.RecipientID == id {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (m *memNotifications) ListForRecipients(ctx context.Context, recipients []string, limit int64) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Notification, 0)
	for _, n := range m.items {
		if contains(recipients, n.RecipientID) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) CountUnread(ctx context.Context, recipients []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for _, n := range m.items {
		if contains(recipients, n.RecipientID) && n.Status == models.NotificationUnread {
			c++
		}
	}
	return c, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, id primitive.ObjectID, recipients []string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.items {
		if n.ID != id || !contains(recipients, n.RecipientID) {
			continue
		}
		if n.Status == models.NotificationUnread {
			m.items[i].Status = models.NotificationRead
			m.items[i].ReadAt = &at
		}
		return true, nil
	}
	return false, nil
}

func (m *memNotifications) MarkAllRead(ctx context.Context, recipients []string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c int64
	for i, n := range m.items {
		if contains(recipients, n.RecipientID) && n.Status == models.NotificationUnread {
			m.items[i].Status = models.NotificationRead
			m.items[i].ReadAt = &at
			c++
		}
	}
	return c, nil
}

type memConsultations struct {
	mu           sync.Mutex
	byID         map[primitive.ObjectID]models.Consultation
	markPaidErrs []error // consumed one per MarkPaid call
}

func newMemConsultations() *memConsultations {
	return &memConsultations{byID: map[primitive.ObjectID]models.Consultation{}}
}

func (m *memConsultations) Insert(ctx context.Context, c *models.Consultation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	m.byID[c.ID] = *c
	return nil
}

func (m *memConsultations) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (m *memConsultations) List(ctx context.Context, f models.ConsultationFilter) ([]models.Consultation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Consultation, 0)
	for _, c := range m.byID {
		if f.PatientID != nil && c.PatientID != *f.PatientID {
			continue
		}
		if f.ProfessionalID != nil && c.ProfessionalID != *f.ProfessionalID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memConsultations) MarkPaid(ctx context.Context, id primitive.ObjectID, paymentRef string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.markPaidErrs) > 0 {
		err := m.markPaidErrs[0]
		m.markPaidErrs = m.markPaidErrs[1:]
		if err != nil {
			return false, err
		}
	}
	c, ok := m.byID[id]
	if !ok || c.Status != models.ConsultationPendingPayment {
		return false, nil
	}
	c.Status = models.ConsultationConfirmed
	c.PaymentRef = paymentRef
	c.PaidAt = &at
	m.byID[id] = c
	return true, nil
}

func (m *memConsultations) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.ConsultationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	c.Status = status
	m.byID[id] = c
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(ctx context.Context, exchange, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return p.err
}

type failingCache struct{}

func (failingCache) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	return false, errCacheDown
}

func (failingCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return errCacheDown
}

func (failingCache) Delete(ctx context.Context, key string) error {
	return errCacheDown
}

var errCacheDown = errors.New("cache down")

type memTickets struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]models.Ticket
}

func newMemTickets() *memTickets {
	return &memTickets{byID: map[primitive.ObjectID]models.Ticket{}}
}

func (m *memTickets) Insert(ctx context.Context, t *models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[t.ID] = *t
	return nil
}

func (m *memTickets) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Replies = append([]models.TicketReply(nil), t.Replies...)
	return &t, nil
}

func (m *memTickets) List(ctx context.Context, userID *primitive.ObjectID, status models.TicketStatus) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Ticket, 0)
	for _, t := range m.byID {
		if userID != nil && t.UserID != *userID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *memTickets) AddReply(ctx context.Context, id primitive.ObjectID, reply models.TicketReply) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok || t.Status == models.TicketClosed {
		return false, nil
	}
	t.Replies = append(t.Replies, reply)
	m.byID[id] = t
	return true, nil
}

func (m *memTickets) SetStatus(ctx context.Context, id primitive.ObjectID, status models.TicketStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = at
	m.byID[id] = t
	return nil
}

type memDirectory struct {
	users *memUsers
}

func (d memDirectory) ListProfessionals(ctx context.Context, specialty string) ([]models.User, error) {
	d.users.mu.Lock()
	defer d.users.mu.Unlock()
	out := make([]models.User, 0)
	for _, u := range d.users.byID {
		if u.Type == models.UserTypeProfessional && (specialty == "" || u.Specialty == specialty) {
			out = append(out, u)
		}
	}
	return out, nil
}
