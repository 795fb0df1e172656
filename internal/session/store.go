package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/septivank/meter-resolution-console/internal/domain"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketSession = []byte("session")
	bucketCookies = []byte("cookies")
	keyToken      = []byte("token")
	keyUser       = []byte("user")
)

// Store mirrors the authenticated identity to disk so separate console invocations
// share one login. It also backs the HTTP client's cookie jar.
type Store struct {
	db  *bolt.DB
	now func() time.Time

	mu    sync.RWMutex
	token string
	user  *domain.User
	jar   *persistentJar
}

// Open opens (or creates) the session mirror at path
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSession); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketCookies)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialise session store: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	s.jar = &persistentJar{store: s}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying file
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Token returns the stored bearer token, or "" when none is stored or it has expired
func (s *Store) Token() string {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return ""
	}
	if claims, err := ParseClaims(token); err == nil && claims.Expired(s.now()) {
		return ""
	}
	return token
}

// User returns the mirrored user
func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

// Jar returns the cookie jar that persists the server session cookie
func (s *Store) Jar() http.CookieJar {
	return s.jar
}

// Save replaces the mirrored identity
func (s *Store) Save(token string, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if err := b.Put(keyToken, []byte(token)); err != nil {
			return err
		}
		return b.Put(keyUser, raw)
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()
	return nil
}

// Clear forgets the identity and every stored cookie
func (s *Store) Clear() error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketCookies); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}
		if _, err := tx.CreateBucket(bucketCookies); err != nil {
			return err
		}
		b := tx.Bucket(bucketSession)
		if err := b.Delete(keyToken); err != nil {
			return err
		}
		return b.Delete(keyUser)
	})
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()
	s.jar.reset()
	return nil
}

func (s *Store) load() error {
	var cookies map[string][]storedCookie
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSession)
		if raw := b.Get(keyToken); raw != nil {
			s.token = string(raw)
		}
		if raw := b.Get(keyUser); raw != nil {
			var user domain.User
			if err := json.Unmarshal(raw, &user); err != nil {
				return fmt.Errorf("failed to decode stored user: %w", err)
			}
			s.user = &user
		}
		cookies = make(map[string][]storedCookie)
		return tx.Bucket(bucketCookies).ForEach(func(k, v []byte) error {
			var list []storedCookie
			if err := json.Unmarshal(v, &list); err != nil {
				return fmt.Errorf("failed to decode stored cookies: %w", err)
			}
			cookies[string(k)] = list
			return nil
		})
	})
	if err != nil {
		return err
	}
	return s.jar.restore(cookies)
}

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// persistentJar is an in-memory cookie jar whose contents are written through to the
// store, keyed by origin.
type persistentJar struct {
	store *Store

	mu    sync.Mutex
	inner *cookiejar.Jar
}

func (j *persistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ensure()
	j.inner.SetCookies(u, cookies)
	// On a write failure the in-memory jar still serves this process.
	_ = j.persist(u)
}

func (j *persistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ensure()
	return j.inner.Cookies(u)
}

func (j *persistentJar) ensure() {
	if j.inner == nil {
		j.inner, _ = cookiejar.New(nil)
	}
}

func (j *persistentJar) reset() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.inner, _ = cookiejar.New(nil)
}

func (j *persistentJar) restore(byOrigin map[string][]storedCookie) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ensure()
	now := j.store.now()
	for origin, list := range byOrigin {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		cookies := make([]*http.Cookie, 0, len(list))
		for _, c := range list {
			if !c.Expires.IsZero() && c.Expires.Before(now) {
				continue
			}
			cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path, Expires: c.Expires})
		}
		j.inner.SetCookies(u, cookies)
	}
	return nil
}

func (j *persistentJar) persist(u *url.URL) error {
	origin := u.Scheme + "://" + u.Host
	originURL := &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}

	current := j.inner.Cookies(originURL)
	list := make([]storedCookie, 0, len(current))
	for _, c := range current {
		list = append(list, storedCookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return err
	}
	return j.store.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCookies).Put([]byte(origin), raw)
	})
}
