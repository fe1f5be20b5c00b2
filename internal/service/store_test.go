package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"members/internal/credential"
	"members/internal/model"
	"members/internal/permission"
	"members/internal/repository"
)

// memStore is an in-memory stand-in for the gorm repositories. Reads return
// copies so services cannot mutate stored rows without calling Update.
type memStore struct {
	nextID      uint
	users       map[uint]model.User
	roles       map[uint]model.Role
	sessions    map[string]model.Session
	groups      map[uint]model.Group
	memberships []model.GroupMembership
	activities  map[uint]model.Activity
	subs        []model.Subscription
	audit       []model.AuditLog
	pages       map[uint]model.Page
	partners    map[uint]model.Partner
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uint]model.User{},
		roles:      map[uint]model.Role{},
		sessions:   map[string]model.Session{},
		groups:     map[uint]model.Group{},
		activities: map[uint]model.Activity{},
		pages:      map[uint]model.Page{},
		partners:   map[uint]model.Partner{},
	}
}

func (s *memStore) id() uint {
	s.nextID++
	return s.nextID
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(context.Context) error) error { return fn(ctx) }

type recordedEvent struct {
	Type    string
	Payload any
}

type eventLog struct {
	events []recordedEvent
}

func (e *eventLog) Publish(eventType string, payload any) {
	e.events = append(e.events, recordedEvent{Type: eventType, Payload: payload})
}

// --- users ---

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, u *model.User) error {
	u.Email = strings.ToLower(u.Email)
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	u.ID = r.s.id()
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) FindByID(_ context.Context, id uint) (*model.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r memUsers) FindWithRelations(ctx context.Context, id uint) (*model.User, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = r.s.roles[u.RoleID]
	for _, m := range r.s.memberships {
		if m.UserID == id {
			m.Group = r.s.groups[m.GroupID]
			u.Memberships = append(u.Memberships, m)
		}
	}
	return u, nil
}

func (r memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.s.users {
		if u.Email == strings.ToLower(email) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memUsers) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	ids := make([]uint, 0, len(r.s.users))
	for id := range r.s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	var out []model.User
	for _, id := range ids {
		u, _ := r.FindWithRelations(ctx, id)
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r memUsers) Update(_ context.Context, u *model.User) error {
	for id, existing := range r.s.users {
		if id != u.ID && existing.Email == u.Email {
			return repository.ErrDuplicate
		}
	}
	stored := *u
	stored.Role = model.Role{}
	stored.Memberships = nil
	r.s.users[u.ID] = stored
	return nil
}

func (r memUsers) Delete(_ context.Context, id uint) error {
	if _, ok := r.s.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.users, id)
	for token, sess := range r.s.sessions {
		if sess.UserID == id {
			delete(r.s.sessions, token)
		}
	}
	return nil
}

func (r memUsers) CountByRole(_ context.Context, roleID uint) (int64, error) {
	var n int64
	for _, u := range r.s.users {
		if u.RoleID == roleID {
			n++
		}
	}
	return n, nil
}

// --- roles ---

type memRoles struct{ s *memStore }

func (r memRoles) Create(_ context.Context, role *model.Role) error {
	for _, existing := range r.s.roles {
		if existing.Name == role.Name {
			return repository.ErrDuplicate
		}
	}
	role.ID = r.s.id()
	r.s.roles[role.ID] = *role
	return nil
}

func (r memRoles) Update(_ context.Context, role *model.Role) error {
	r.s.roles[role.ID] = *role
	return nil
}

func (r memRoles) Delete(_ context.Context, id uint) error {
	if _, ok := r.s.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.roles, id)
	return nil
}

func (r memRoles) FindByID(_ context.Context, id uint) (*model.Role, error) {
	role, ok := r.s.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &role, nil
}

func (r memRoles) FindByName(_ context.Context, name string) (*model.Role, error) {
	for _, role := range r.s.roles {
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memRoles) ListAll(_ context.Context) ([]model.Role, error) {
	var out []model.Role
	for _, role := range r.s.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memRoles) FindOrCreate(ctx context.Context, role *model.Role) error {
	if existing, err := r.FindByName(ctx, role.Name); err == nil {
		*role = *existing
		return nil
	}
	return r.Create(ctx, role)
}

// --- sessions ---

type memSessions struct {
	s *memStore
	// collide makes the first n inserts fail as duplicates.
	collide int
}

func (r *memSessions) Create(_ context.Context, sess *model.Session) error {
	if r.collide > 0 {
		r.collide--
		return repository.ErrDuplicate
	}
	if _, ok := r.s.sessions[sess.Token]; ok {
		return repository.ErrDuplicate
	}
	sess.ID = r.s.id()
	r.s.sessions[sess.Token] = *sess
	return nil
}

func (r *memSessions) FindByToken(_ context.Context, token string) (*model.Session, error) {
	sess, ok := r.s.sessions[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

func (r *memSessions) DeleteByToken(_ context.Context, token string) error {
	delete(r.s.sessions, token)
	return nil
}

func (r *memSessions) DeleteByUser(_ context.Context, userID uint) error {
	for token, sess := range r.s.sessions {
		if sess.UserID == userID {
			delete(r.s.sessions, token)
		}
	}
	return nil
}

func (r *memSessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for token, sess := range r.s.sessions {
		if sess.Expired(now) {
			delete(r.s.sessions, token)
			n++
		}
	}
	return n, nil
}

// --- groups ---

type memGroups struct{ s *memStore }

func (r memGroups) Create(_ context.Context, g *model.Group) error {
	for _, existing := range r.s.groups {
		if existing.FullName == g.FullName {
			return repository.ErrDuplicate
		}
	}
	g.ID = r.s.id()
	r.s.groups[g.ID] = *g
	return nil
}

func (r memGroups) Update(_ context.Context, g *model.Group) error {
	stored := *g
	stored.Memberships = nil
	r.s.groups[g.ID] = stored
	return nil
}

func (r memGroups) Delete(_ context.Context, id uint) error {
	if _, ok := r.s.groups[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.groups, id)
	return nil
}

func (r memGroups) FindByID(_ context.Context, id uint) (*model.Group, error) {
	g, ok := r.s.groups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &g, nil
}

func (r memGroups) FindWithMembers(ctx context.Context, id uint) (*model.Group, error) {
	g, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, m := range r.s.memberships {
		if m.GroupID == id {
			m.User = r.s.users[m.UserID]
			g.Memberships = append(g.Memberships, m)
		}
	}
	return g, nil
}

func (r memGroups) List(ctx context.Context, groupType string) ([]model.Group, error) {
	var out []model.Group
	for id, g := range r.s.groups {
		if groupType == "" || g.Type == groupType {
			full, _ := r.FindWithMembers(ctx, id)
			out = append(out, *full)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memGroups) CountActivities(_ context.Context, groupID uint) (int64, error) {
	var n int64
	for _, a := range r.s.activities {
		if a.OrganizerID == groupID {
			n++
		}
	}
	return n, nil
}

func (r memGroups) AddMember(_ context.Context, m *model.GroupMembership) error {
	for _, existing := range r.s.memberships {
		if existing.GroupID == m.GroupID && existing.UserID == m.UserID {
			return repository.ErrDuplicate
		}
	}
	m.ID = r.s.id()
	r.s.memberships = append(r.s.memberships, *m)
	return nil
}

func (r memGroups) UpdateMember(_ context.Context, m *model.GroupMembership) error {
	for i, existing := range r.s.memberships {
		if existing.ID == m.ID {
			r.s.memberships[i].Function = m.Function
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r memGroups) RemoveMember(_ context.Context, groupID, userID uint) error {
	for i, m := range r.s.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			r.s.memberships = append(r.s.memberships[:i], r.s.memberships[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r memGroups) FindMembership(_ context.Context, groupID, userID uint) (*model.GroupMembership, error) {
	for _, m := range r.s.memberships {
		if m.GroupID == groupID && m.UserID == userID {
			return &m, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- activities ---

type memActivities struct{ s *memStore }

func (r memActivities) Create(_ context.Context, a *model.Activity) error {
	a.ID = r.s.id()
	stored := *a
	stored.Organizer = model.Group{}
	r.s.activities[a.ID] = stored
	return nil
}

func (r memActivities) Update(_ context.Context, a *model.Activity) error {
	stored := *a
	stored.Organizer = model.Group{}
	r.s.activities[a.ID] = stored
	return nil
}

func (r memActivities) Delete(_ context.Context, id uint) error {
	if _, ok := r.s.activities[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.activities, id)
	return nil
}

func (r memActivities) FindByID(_ context.Context, id uint) (*model.Activity, error) {
	a, ok := r.s.activities[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (r memActivities) FindWithOrganizer(ctx context.Context, id uint) (*model.Activity, error) {
	a, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if g, err := (memGroups{r.s}).FindWithMembers(ctx, a.OrganizerID); err == nil {
		a.Organizer = *g
	}
	return a, nil
}

func (r memActivities) List(ctx context.Context, filter repository.ActivityFilter) ([]model.Activity, error) {
	var out []model.Activity
	for id, a := range r.s.activities {
		if filter.OrganizerID != 0 && a.OrganizerID != filter.OrganizerID {
			continue
		}
		if filter.PublishedOnly && !a.Published {
			continue
		}
		full, _ := r.FindWithOrganizer(ctx, id)
		out = append(out, *full)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memActivities) CreateSubscription(_ context.Context, sub *model.Subscription) error {
	for _, existing := range r.s.subs {
		if existing.ActivityID == sub.ActivityID && existing.UserID == sub.UserID {
			return repository.ErrDuplicate
		}
	}
	sub.ID = r.s.id()
	r.s.subs = append(r.s.subs, *sub)
	return nil
}

func (r memActivities) FindSubscription(_ context.Context, activityID, userID uint) (*model.Subscription, error) {
	for _, sub := range r.s.subs {
		if sub.ActivityID == activityID && sub.UserID == userID {
			return &sub, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memActivities) DeleteSubscription(_ context.Context, activityID, userID uint) error {
	for i, sub := range r.s.subs {
		if sub.ActivityID == activityID && sub.UserID == userID {
			r.s.subs = append(r.s.subs[:i], r.s.subs[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r memActivities) ListSubscriptions(_ context.Context, activityID uint) ([]model.Subscription, error) {
	var out []model.Subscription
	for _, sub := range r.s.subs {
		if sub.ActivityID == activityID {
			sub.User = r.s.users[sub.UserID]
			out = append(out, sub)
		}
	}
	return out, nil
}

// --- pages ---

type memPages struct{ s *memStore }

func (r memPages) Create(_ context.Context, p *model.Page) error {
	for _, existing := range r.s.pages {
		if existing.Slug == p.Slug {
			return repository.ErrDuplicate
		}
	}
	p.ID = r.s.id()
	r.s.pages[p.ID] = *p
	return nil
}

func (r memPages) Update(_ context.Context, p *model.Page) error {
	for id, existing := range r.s.pages {
		if id != p.ID && existing.Slug == p.Slug {
			return repository.ErrDuplicate
		}
	}
	r.s.pages[p.ID] = *p
	return nil
}

func (r memPages) Delete(_ context.Context, id uint) error {
	if _, ok := r.s.pages[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.pages, id)
	return nil
}

func (r memPages) FindByID(_ context.Context, id uint) (*model.Page, error) {
	p, ok := r.s.pages[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPages) FindBySlug(_ context.Context, slug string) (*model.Page, error) {
	for _, p := range r.s.pages {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r memPages) List(_ context.Context, publishedOnly bool) ([]model.Page, error) {
	var out []model.Page
	for _, p := range r.s.pages {
		if publishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// --- partners ---

type memPartners struct{ s *memStore }

func (r memPartners) Create(_ context.Context, p *model.Partner) error {
	p.ID = r.s.id()
	r.s.partners[p.ID] = *p
	return nil
}

func (r memPartners) Update(_ context.Context, p *model.Partner) error {
	r.s.partners[p.ID] = *p
	return nil
}

func (r memPartners) Delete(_ context.Context, id uint) error {
	if _, ok := r.s.partners[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.partners, id)
	return nil
}

func (r memPartners) FindByID(_ context.Context, id uint) (*model.Partner, error) {
	p, ok := r.s.partners[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r memPartners) List(_ context.Context, filter repository.PartnerFilter, _, _ int) ([]model.Partner, int64, error) {
	var out []model.Partner
	for _, p := range r.s.partners {
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.ActiveOnly && !p.IsActive {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

// --- audit ---

type memAudit struct{ s *memStore }

func (r memAudit) Log(_ context.Context, entry *model.AuditLog) error {
	r.s.audit = append(r.s.audit, *entry)
	return nil
}

func (r memAudit) List(_ context.Context, filter repository.AuditFilter, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		entry := r.s.audit[i]
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.EntityType != "" && entry.EntityType != filter.EntityType {
			continue
		}
		out = append(out, entry)
	}
	return out, int64(len(out)), nil
}

// --- fixture ---

// fixture wires every service against one memStore and the real resolver.
type fixture struct {
	store      *memStore
	sessions   *memSessions
	resolver   *permission.Resolver
	hasher     *credential.Hasher
	events     *eventLog
	audit      AuditService
	auth       *authService
	users      UserService
	roles      RoleService
	groups     GroupService
	activities *activityService
	pages      PageService
	partners   PartnerService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newMemStore()
	sessions := &memSessions{s: st}
	resolver := permission.NewResolver(memRoles{st}, memUsers{st}, memGroups{st}, memActivities{st})
	hasher := credential.NewHasher(1000)
	audit := NewAuditService(memAudit{st}, resolver)
	events := &eventLog{}

	f := &fixture{
		store:      st,
		sessions:   sessions,
		resolver:   resolver,
		hasher:     hasher,
		events:     events,
		audit:      audit,
		auth:       NewAuthService(memUsers{st}, memRoles{st}, sessions, noTx{}, audit, hasher, time.Hour).(*authService),
		users:      NewUserService(memUsers{st}, memRoles{st}, sessions, noTx{}, resolver, audit, hasher),
		roles:      NewRoleService(memRoles{st}, memUsers{st}, noTx{}, resolver, audit),
		groups:     NewGroupService(memGroups{st}, memUsers{st}, noTx{}, resolver, audit),
		activities: NewActivityService(memActivities{st}, noTx{}, resolver, audit, events).(*activityService),
		pages:      NewPageService(memPages{st}, noTx{}, resolver, audit),
		partners:   NewPartnerService(memPartners{st}, noTx{}, resolver, audit),
	}
	if err := f.roles.SeedDefaultRoles(context.Background()); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	return f
}

func (f *fixture) role(t *testing.T, name string) *model.Role {
	t.Helper()
	role, err := memRoles{f.store}.FindByName(context.Background(), name)
	if err != nil {
		t.Fatalf("role %q: %v", name, err)
	}
	return role
}

// addUser stores an approved user with the given role and password.
func (f *fixture) addUser(t *testing.T, email, password, roleName string) *model.User {
	t.Helper()
	salt, err := credential.GenerateSalt(credential.SaltLength)
	if err != nil {
		t.Fatalf("salt: %v", err)
	}
	hash, err := f.hasher.Hash(context.Background(), password, salt)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := &model.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     strings.Split(email, "@")[0],
		PasswordHash: hash,
		PasswordSalt: salt,
		Approved:     true,
		RoleID:       f.role(t, roleName).ID,
	}
	if err := (memUsers{f.store}).Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) actor(t *testing.T, u *model.User) permission.Actor {
	t.Helper()
	actor, err := f.resolver.ResolveActor(context.Background(), permission.ByUser(u))
	if err != nil {
		t.Fatalf("resolve actor: %v", err)
	}
	return actor
}

func (f *fixture) anonymous(t *testing.T) permission.Actor {
	t.Helper()
	actor, err := f.resolver.ResolveActor(context.Background(), permission.Anonymous())
	if err != nil {
		t.Fatalf("resolve anonymous: %v", err)
	}
	return actor
}

func (f *fixture) addGroup(t *testing.T, name string, canOrganize bool, members ...*model.User) *model.Group {
	t.Helper()
	g := &model.Group{FullName: name, DisplayName: name, CanOrganize: canOrganize, Type: model.GroupTypeCommittee}
	if err := (memGroups{f.store}).Create(context.Background(), g); err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, u := range members {
		m := &model.GroupMembership{UserID: u.ID, GroupID: g.ID, Function: "member"}
		if err := (memGroups{f.store}).AddMember(context.Background(), m); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	return g
}
