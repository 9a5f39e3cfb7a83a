package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/goliatone/go-catalog-cache/cache"
	rc "github.com/goliatone/go-catalog-cache/repositorycache"
	"github.com/goliatone/go-catalog-cache/store"
)

const (
	indexUsername = "username"
	indexEmail    = "email"
)

// NewDj holds the fields required to create a Dj.
type NewDj struct {
	Fullname string
	Username string
	Email    string
	Password string
}

func (n NewDj) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Fullname, validation.Required),
		validation.Field(&n.Username, validation.Required),
		validation.Field(&n.Email, validation.Required),
		validation.Field(&n.Password, validation.Required),
	)
}

// Djs manages DJ accounts with username and email index caches.
type Djs struct {
	entities  *rc.EntityCache[*Dj]
	usernames *rc.UniqueField[*Dj]
	emails    *rc.UniqueField[*Dj]
	locks     *rc.KeyedMutex[string]
	settings  Settings
	opts      options

	dummyOnce sync.Once
	dummyHash string
}

// NewDjs creates the DJ service over st.
func NewDjs(client *cache.Client, st store.Store[*Dj], settings Settings, opts ...Option) *Djs {
	ec := entityCache(client, st)
	return &Djs{
		entities: ec,
		usernames: &rc.UniqueField[*Dj]{
			Index:    rc.NewIndexCache(ec.Scope(), indexUsername),
			Value:    func(d *Dj) string { return d.Username },
			Set:      func(d *Dj, v string) { d.Username = v },
			Find:     findEqual(st, "username"),
			Conflict: conflict(indexUsername),
		},
		emails: &rc.UniqueField[*Dj]{
			Index:    rc.NewIndexCache(ec.Scope(), indexEmail),
			Value:    func(d *Dj) string { return d.Email },
			Set:      func(d *Dj, v string) { d.Email = v },
			Find:     findEqual(st, "email"),
			Conflict: conflict(indexEmail),
		},
		locks:    rc.NewKeyedMutex[string](),
		settings: settings,
		opts:     buildOptions(opts),
	}
}

func (d *Djs) lock(keys ...string) func() {
	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, d.locks.Lock(key))
	}
	return func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}
}

// Get returns the DJ with id.
func (d *Djs) Get(ctx context.Context, id uuid.UUID) (*Dj, error) {
	dj, err := d.entities.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "dj", id.String())
	}
	return dj, nil
}

// GetByUsername returns the DJ owning username.
func (d *Djs) GetByUsername(ctx context.Context, username string) (*Dj, error) {
	username = strings.TrimSpace(username)
	dj, err := rc.GetByIndex(ctx, d.usernames.Index, d.entities, username, d.usernames.Find, d.usernames.Value)
	if err != nil {
		return nil, notFound(err, indexUsername, username)
	}
	return dj, nil
}

// KeyByUsername returns the primary key of the DJ owning username.
func (d *Djs) KeyByUsername(ctx context.Context, username string) (uuid.UUID, error) {
	username = strings.TrimSpace(username)
	id, err := d.usernames.Index.Resolve(ctx, username, d.usernames.Find)
	if err != nil {
		return uuid.Nil, notFound(err, indexUsername, username)
	}
	return id, nil
}

// GetByEmail returns the DJ owning email. Bare addresses are completed first.
func (d *Djs) GetByEmail(ctx context.Context, email string) (*Dj, error) {
	email = FixBareEmail(email, d.settings.EmailDomain)
	dj, err := rc.GetByIndex(ctx, d.emails.Index, d.entities, email, d.emails.Find, d.emails.Value)
	if err != nil {
		return nil, notFound(err, indexEmail, email)
	}
	return dj, nil
}

// KeyByEmail returns the primary key of the DJ owning email.
func (d *Djs) KeyByEmail(ctx context.Context, email string) (uuid.UUID, error) {
	email = FixBareEmail(email, d.settings.EmailDomain)
	id, err := d.emails.Index.Resolve(ctx, email, d.emails.Find)
	if err != nil {
		return uuid.Nil, notFound(err, indexEmail, email)
	}
	return id, nil
}

// EmailMatches reports whether email, completed if bare, is the DJ's address.
func (d *Djs) EmailMatches(dj *Dj, email string) bool {
	return dj != nil && dj.Email == FixBareEmail(email, d.settings.EmailDomain)
}

// All returns every DJ ordered by full name, capped at ListAllLimit.
func (d *Djs) All(ctx context.Context) ([]*Dj, error) {
	gen := d.entities.Scope().Generation()
	djs, err := d.entities.Store().Query(ctx, store.Query{
		Order: &store.Order{Field: "fullname"},
		Limit: d.settings.ListAllLimit,
	})
	if err != nil {
		return nil, err
	}
	for _, dj := range djs {
		d.entities.Fill(ctx, dj, gen)
	}
	return djs, nil
}

// Create registers a DJ. Username and email must be unused.
func (d *Djs) Create(ctx context.Context, in NewDj) (*Dj, error) {
	in.Fullname = strings.TrimSpace(in.Fullname)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = FixBareEmail(in.Email, d.settings.EmailDomain)
	if err := in.Validate(); err != nil {
		return nil, invalidInput(err, "new dj")
	}

	unlock := d.lock(indexUsername+":"+in.Username, indexEmail+":"+in.Email)
	defer unlock()

	id, err := d.entities.Store().AllocateKey(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.usernames.Claim(ctx, id, in.Username); err != nil {
		return nil, err
	}
	if err := d.emails.Claim(ctx, id, in.Email); err != nil {
		return nil, err
	}

	hash, err := d.opts.hasher.Hash(in.Password)
	if err != nil {
		return nil, invalidInput(err, "password")
	}

	dj, err := d.entities.Put(ctx, &Dj{
		ID:           id,
		Fullname:     in.Fullname,
		Lowername:    strings.ToLower(in.Fullname),
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: hash,
	})
	if err != nil {
		return nil, err
	}

	d.opts.logger.Info("dj created", zap.String("id", id.String()), zap.String("username", dj.Username))
	return dj, nil
}

// update loads the DJ, applies fn and writes the result through the entity cache.
func (d *Djs) update(ctx context.Context, id uuid.UUID, fn func(*Dj) error) (*Dj, error) {
	dj, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(dj); err != nil {
		return nil, err
	}
	return d.entities.Put(ctx, dj)
}

// SetFullname changes the display name and its lowercase form.
func (d *Djs) SetFullname(ctx context.Context, id uuid.UUID, fullname string) (*Dj, error) {
	fullname = strings.TrimSpace(fullname)
	if err := validation.Validate(fullname, validation.Required); err != nil {
		return nil, invalidInput(err, "fullname")
	}

	unlock := d.lock("dj:" + id.String())
	defer unlock()

	return d.update(ctx, id, func(dj *Dj) error {
		dj.Fullname = fullname
		dj.Lowername = strings.ToLower(fullname)
		return nil
	})
}

// SetUsername moves the DJ to username. It fails with a *ConflictError when another DJ owns it.
func (d *Djs) SetUsername(ctx context.Context, id uuid.UUID, username string) (*Dj, error) {
	username = strings.TrimSpace(username)
	if err := validation.Validate(username, validation.Required); err != nil {
		return nil, invalidInput(err, "username")
	}
	return d.changeUnique(ctx, id, d.usernames, indexUsername, username)
}

// SetEmail moves the DJ to email, completing bare addresses.
func (d *Djs) SetEmail(ctx context.Context, id uuid.UUID, email string) (*Dj, error) {
	email = FixBareEmail(email, d.settings.EmailDomain)
	if err := validation.Validate(email, validation.Required); err != nil {
		return nil, invalidInput(err, "email")
	}
	return d.changeUnique(ctx, id, d.emails, indexEmail, email)
}

func (d *Djs) changeUnique(ctx context.Context, id uuid.UUID, field *rc.UniqueField[*Dj], index, value string) (*Dj, error) {
	unlock := d.lock("dj:"+id.String(), index+":"+value)
	defer unlock()

	dj, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return field.Change(ctx, dj, value, d.entities.Put)
}

// SetPassword stores a new password hash.
func (d *Djs) SetPassword(ctx context.Context, id uuid.UUID, password string) (*Dj, error) {
	if err := validation.Validate(password, validation.Required); err != nil {
		return nil, invalidInput(err, "password")
	}
	hash, err := d.opts.hasher.Hash(password)
	if err != nil {
		return nil, invalidInput(err, "password")
	}

	unlock := d.lock("dj:" + id.String())
	defer unlock()

	return d.update(ctx, id, func(dj *Dj) error {
		dj.PasswordHash = hash
		return nil
	})
}

// Delete removes the DJ and its index entries.
func (d *Djs) Delete(ctx context.Context, id uuid.UUID) error {
	unlock := d.lock("dj:" + id.String())
	defer unlock()

	dj, err := d.Get(ctx, id)
	if err != nil {
		return err
	}
	d.usernames.Index.Purge(ctx, dj.Username)
	d.emails.Index.Purge(ctx, dj.Email)
	return notFound(d.entities.Delete(ctx, id), "dj", id.String())
}

// dummyCompare burns the time of one hash comparison so unknown users are not
// distinguishable from wrong passwords.
func (d *Djs) dummyCompare(plain string) {
	d.dummyOnce.Do(func() {
		hash, err := d.opts.hasher.Hash("catalog-dummy-password")
		if err != nil {
			d.opts.logger.Warn("dummy hash failed", zap.Error(err))
		}
		d.dummyHash = hash
	})
	d.opts.hasher.Compare(d.dummyHash, plain)
}

// credentialOwner returns the DJ for username, or ErrInvalidCredential when there is none.
func (d *Djs) credentialOwner(ctx context.Context, username, secret string) (*Dj, error) {
	dj, err := d.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		d.dummyCompare(secret)
		return nil, ErrInvalidCredential
	}
	return dj, err
}

// Login returns the DJ when password matches. Unknown users and wrong passwords both return
// ErrInvalidCredential.
func (d *Djs) Login(ctx context.Context, username, password string) (*Dj, error) {
	dj, err := d.credentialOwner(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !d.opts.hasher.Compare(dj.PasswordHash, password) {
		return nil, ErrInvalidCredential
	}
	return dj, nil
}

// ResetPassword issues a one-time recovery token valid for ResetTokenTTL. Only its hash is stored.
func (d *Djs) ResetPassword(ctx context.Context, id uuid.UUID) (string, error) {
	token, err := newResetToken()
	if err != nil {
		return "", err
	}
	hash, err := d.opts.hasher.Hash(token)
	if err != nil {
		return "", err
	}

	unlock := d.lock("dj:" + id.String())
	defer unlock()

	_, err = d.update(ctx, id, func(dj *Dj) error {
		dj.ResetHash = hash
		dj.ResetExpire = d.opts.now().Add(d.settings.ResetTokenTTL)
		return nil
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// RecoveryLogin logs the DJ in with a reset token. A successful login consumes the token.
func (d *Djs) RecoveryLogin(ctx context.Context, username, token string) (*Dj, error) {
	dj, err := d.credentialOwner(ctx, username, token)
	if err != nil {
		return nil, err
	}

	now := d.opts.now()
	if dj.ResetHash == "" || dj.ResetExpire.IsZero() || now.After(dj.ResetExpire) {
		d.dummyCompare(token)
		return nil, ErrInvalidCredential
	}
	if !d.opts.hasher.Compare(dj.ResetHash, token) {
		return nil, ErrInvalidCredential
	}

	unlock := d.lock("dj:" + dj.ID.String())
	defer unlock()

	return d.update(ctx, dj.ID, func(fresh *Dj) error {
		if fresh.ResetHash != dj.ResetHash {
			return ErrInvalidCredential
		}
		fresh.ResetHash = ""
		fresh.ResetExpire = now
		return nil
	})
}
