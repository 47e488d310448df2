package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"diamondbot/pkg/domain"
)

// MemoryStore keeps records in-process. Used by tests and local runs
// without Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]domain.User
	byAddr   map[string]string // channel address -> user ID
	sessions map[string]domain.Session
	uploads  map[string]domain.Upload
	diamonds map[string]domain.Diamond
	designs  map[string]domain.Design
	messages []domain.Message
	listings map[string]domain.Listing
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]domain.User),
		byAddr:   make(map[string]string),
		sessions: make(map[string]domain.Session),
		uploads:  make(map[string]domain.Upload),
		diamonds: make(map[string]domain.Diamond),
		designs:  make(map[string]domain.Design),
		listings: make(map[string]domain.Listing),
	}
}

func (m *MemoryStore) Ping() error { return nil }

func (m *MemoryStore) CreateUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.byAddr[u.ChannelAddress] = u.ID
	return nil
}

func (m *MemoryStore) GetUser(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByAddress(address string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byAddr[strings.TrimSpace(address)]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) TouchUser(id string, lastIntent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	u.LastInteraction = time.Now().UTC()
	if lastIntent != "" {
		u.LastIntent = lastIntent
	}
	m.users[id] = u
	return nil
}

func (m *MemoryStore) DeleteUser(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil
	}
	delete(m.users, id)
	delete(m.byAddr, u.ChannelAddress)
	delete(m.sessions, id)
	for k, v := range m.uploads {
		if v.UserID == id {
			delete(m.uploads, k)
		}
	}
	for k, v := range m.diamonds {
		if v.UserID == id {
			delete(m.diamonds, k)
		}
	}
	for k, v := range m.designs {
		if v.UserID == id {
			delete(m.designs, k)
		}
	}
	for k, v := range m.listings {
		if v.UserID == id {
			delete(m.listings, k)
		}
	}
	kept := m.messages[:0]
	for _, msg := range m.messages {
		if msg.UserID != id {
			kept = append(kept, msg)
		}
	}
	m.messages = kept
	return nil
}

func (m *MemoryStore) GetSession(userID string) (domain.Session, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[userID]
	return s, ok, nil
}

func (m *MemoryStore) UpsertSession(session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.UpdatedAt = time.Now().UTC()
	m.sessions[session.UserID] = session
	return nil
}

func (m *MemoryStore) CreateUpload(u domain.Upload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads[u.ID] = u
	return nil
}

func (m *MemoryStore) SetUploadStatus(id string, status domain.UploadStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.uploads[id]
	if !ok {
		return nil
	}
	u.Status = status
	u.ErrorMessage = errMsg
	m.uploads[id] = u
	return nil
}

func (m *MemoryStore) ListUploadsByUser(userID string, opts ListOptions) ([]domain.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Upload
	for _, u := range m.uploads {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts), nil
}

func (m *MemoryStore) CreateDiamond(d domain.Diamond) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diamonds[d.ID] = d
	return nil
}

func (m *MemoryStore) GetDiamond(id string) (domain.Diamond, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.diamonds[id]
	return d, ok, nil
}

func (m *MemoryStore) GetDiamondByCertificate(certificateNumber string) (domain.Diamond, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.diamonds {
		if d.CertificateNumber == strings.TrimSpace(certificateNumber) {
			return d, true, nil
		}
	}
	return domain.Diamond{}, false, nil
}

func (m *MemoryStore) ListDiamondsByUser(userID string, opts ListOptions) ([]domain.Diamond, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Diamond
	for _, d := range m.diamonds {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts), nil
}

func (m *MemoryStore) CreateDesign(d domain.Design) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.designs[d.ID] = d
	return nil
}

func (m *MemoryStore) GetDesign(id string) (domain.Design, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.designs[id]
	return d, ok, nil
}

func (m *MemoryStore) SetDesignStatus(id string, status domain.DesignStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.designs[id]
	if !ok {
		return nil
	}
	d.Status = status
	m.designs[id] = d
	return nil
}

func (m *MemoryStore) ListDesignsByUser(userID string, opts ListOptions) ([]domain.Design, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Design
	for _, d := range m.designs {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts), nil
}

func (m *MemoryStore) AppendMessage(msg domain.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return nil
}

func (m *MemoryStore) ListMessagesByUser(userID string, opts ListOptions) ([]domain.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts), nil
}

func (m *MemoryStore) CreateListing(l domain.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
	return nil
}

func (m *MemoryStore) GetListing(id string) (domain.Listing, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[id]
	return l, ok, nil
}

func (m *MemoryStore) SetListingStatus(id string, status domain.ListingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil
	}
	l.Status = status
	m.listings[id] = l
	return nil
}

func (m *MemoryStore) ListListingsByUser(userID string, opts ListOptions) ([]domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Listing
	for _, l := range m.listings {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts), nil
}

func (m *MemoryStore) SearchListings(search ListingSearch, opts ListOptions) ([]domain.Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Listing
	for _, l := range m.listings {
		if l.Status != domain.ListingApproved {
			continue
		}
		d, ok := m.diamonds[l.DiamondID]
		if !ok {
			continue
		}
		if search.Shape != "" && !strings.EqualFold(d.Shape, search.Shape) {
			continue
		}
		if search.Color != "" && !strings.EqualFold(d.PrimaryHue, search.Color) {
			continue
		}
		if search.Clarity != "" && !strings.EqualFold(d.Clarity, search.Clarity) {
			continue
		}
		if search.Cut != "" && !strings.EqualFold(d.Cut, search.Cut) {
			continue
		}
		if search.CaratMin != nil && d.Carat < *search.CaratMin {
			continue
		}
		if search.CaratMax != nil && d.Carat > *search.CaratMax {
			continue
		}
		out = append(out, l)
	}
	out = FilterListingsByPrice(out, search.PriceMin, search.PriceMax)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, opts), nil
}

func page[T any](items []T, opts ListOptions) []T {
	opts = normalizeOpts(opts)
	if opts.Skip >= len(items) {
		return nil
	}
	items = items[opts.Skip:]
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}
