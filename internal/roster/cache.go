package roster

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/deskpilot/deskpilot/internal/util"
	log "github.com/sirupsen/logrus"
)

// ErrUserNotFound is returned when a user id is not in the roster.
var ErrUserNotFound = errors.New("roster: user not found")

// Persister loads and saves the whole roster.
type Persister interface {
	Load(ctx context.Context) ([]User, error)
	Save(ctx context.Context, users []User) error
}

// Prober resolves a user id under a credential at the booking service.
type Prober interface {
	ResolveByID(ctx context.Context, userID int64, cred Credential, silent bool) (*User, error)
}

// Cache owns the roster. It is the only component that mutates credentials or persists users.
type Cache struct {
	mu        sync.RWMutex
	users     []*User
	persister Persister
	prober    Prober

	version uint64
	writeMu sync.Mutex
	written uint64
	pending sync.WaitGroup
}

// NewCache constructs an empty cache. prober may be nil; unknown users are then never provisioned.
func NewCache(persister Persister, prober Prober) *Cache {
	return &Cache{persister: persister, prober: prober}
}

// Load replaces the in-memory roster with the persisted one.
func (c *Cache) Load(ctx context.Context) error {
	if c == nil || c.persister == nil {
		return nil
	}
	users, errLoad := c.persister.Load(ctx)
	if errLoad != nil {
		return errLoad
	}
	loaded := make([]*User, 0, len(users))
	for i := range users {
		u := users[i].Clone()
		loaded = append(loaded, &u)
	}
	c.mu.Lock()
	c.users = loaded
	c.mu.Unlock()
	log.Infof("roster: loaded %d users", len(loaded))
	return nil
}

// GetAll returns a snapshot of every user in roster order.
func (c *Cache) GetAll() []User {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]User, 0, len(c.users))
	for _, u := range c.users {
		out = append(out, u.Clone())
	}
	return out
}

// Get returns a snapshot of one user.
func (c *Cache) Get(userID int64) (User, bool) {
	if c == nil {
		return User{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	u := c.findLocked(userID)
	if u == nil {
		return User{}, false
	}
	return u.Clone(), true
}

// IsAuthenticated reports whether the user has all three tokens cached.
func (c *Cache) IsAuthenticated(userID int64) bool {
	u, ok := c.Get(userID)
	return ok && u.Authenticated()
}

// GetCredential returns the cached triple for a known user.
func (c *Cache) GetCredential(userID int64) (Credential, bool) {
	u, ok := c.Get(userID)
	if !ok {
		return Credential{}, false
	}
	return u.Credential(), true
}

// RefreshCredential stores cred for userID. Unknown users are provisioned through the prober.
func (c *Cache) RefreshCredential(ctx context.Context, userID int64, cred Credential) error {
	if c == nil || userID == 0 {
		return nil
	}
	if c.refreshExisting(userID, cred) {
		return nil
	}
	if c.prober == nil {
		return ErrUserNotFound
	}

	resolved, errResolve := c.prober.ResolveByID(ctx, userID, cred, false)
	if errResolve != nil {
		return errResolve
	}
	if resolved == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.findLocked(userID); existing != nil {
		c.applyCredentialLocked(existing, cred)
		return nil
	}
	u := resolved.Clone()
	u.SetCredential(cred)
	c.users = append(c.users, &u)
	log.Infof("Add new user %s", u.UserName)
	c.persistLocked()
	return nil
}

func (c *Cache) refreshExisting(userID int64, cred Credential) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.findLocked(userID)
	if u == nil {
		return false
	}
	c.applyCredentialLocked(u, cred)
	return true
}

func (c *Cache) applyCredentialLocked(u *User, cred Credential) {
	if u.Credential() == cred {
		return
	}
	if u.APIKey != cred.APIKey && u.APIKey != "" {
		log.Warnf("User %d has updated API key from %s to %s", u.UserID, util.HideAPIKey(u.APIKey), util.HideAPIKey(cred.APIKey))
	}
	u.SetCredential(cred)
	c.persistLocked()
}

// ClearCredential blanks the first two tokens. The api key is kept.
func (c *Cache) ClearCredential(userID int64) error {
	if c == nil || userID == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.findLocked(userID)
	if u == nil {
		return ErrUserNotFound
	}
	u.AppAuthToken = ""
	u.Authorization = ""
	c.persistLocked()
	return nil
}

// ResolveByCredential finds the user owning cred, probing the booking service when no cached triple matches.
func (c *Cache) ResolveByCredential(ctx context.Context, cred Credential) (User, bool) {
	if c == nil {
		return User{}, false
	}

	c.mu.RLock()
	var matches []User
	for _, u := range c.users {
		if u.Credential() == cred {
			matches = append(matches, u.Clone())
		}
	}
	candidates := make([]int64, 0, len(c.users))
	for _, u := range c.users {
		candidates = append(candidates, u.UserID)
	}
	c.mu.RUnlock()

	if len(matches) > 0 {
		if len(matches) > 1 {
			names := make([]string, 0, len(matches))
			for _, m := range matches {
				names = append(names, m.UserName)
			}
			log.Warnf("Users %s has duplicated auth for %s", strings.Join(names, ", "), util.HideAPIKey(cred.Authorization))
		}
		return matches[0], true
	}
	if c.prober == nil || len(candidates) == 0 {
		return User{}, false
	}

	confirmed := make([]bool, len(candidates))
	var wg sync.WaitGroup
	for i, id := range candidates {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			resolved, errProbe := c.prober.ResolveByID(ctx, id, cred, true)
			confirmed[i] = errProbe == nil && resolved != nil
		}(i, id)
	}
	wg.Wait()

	for i, id := range candidates {
		if !confirmed[i] {
			continue
		}
		if errRefresh := c.RefreshCredential(ctx, id, cred); errRefresh != nil {
			log.WithError(errRefresh).Warnf("roster: failed to refresh credential for user %d", id)
		}
		if u, ok := c.Get(id); ok {
			return u, true
		}
	}
	return User{}, false
}

// Update applies fn to a copy of the user and stores the result when fn succeeds.
func (c *Cache) Update(userID int64, fn func(*User) error) error {
	if c == nil {
		return ErrUserNotFound
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.findLocked(userID)
	if u == nil {
		return ErrUserNotFound
	}
	next := u.Clone()
	if errApply := fn(&next); errApply != nil {
		return errApply
	}
	next.UserID = u.UserID
	*u = next
	c.persistLocked()
	return nil
}

// Flush waits for pending roster writes.
func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.pending.Wait()
}

func (c *Cache) findLocked(userID int64) *User {
	for _, u := range c.users {
		if u.UserID == userID {
			return u
		}
	}
	return nil
}

// persistLocked schedules an asynchronous save of the current snapshot.
// Callers must hold c.mu for writing.
func (c *Cache) persistLocked() {
	if c.persister == nil {
		return
	}
	c.version++
	version := c.version
	snapshot := make([]User, 0, len(c.users))
	for _, u := range c.users {
		snapshot = append(snapshot, u.Clone())
	}
	c.pending.Add(1)
	go c.write(version, snapshot)
}

func (c *Cache) write(version uint64, snapshot []User) {
	defer c.pending.Done()
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	// a newer snapshot already landed
	if version <= c.written {
		return
	}
	if errSave := c.persister.Save(context.Background(), snapshot); errSave != nil {
		log.WithError(errSave).Error("Failed to save users")
		return
	}
	c.written = version
}
