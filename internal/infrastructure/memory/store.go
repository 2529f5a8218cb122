package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/go-rbac-auth/internal/domain/entity"
	repo "github.com/oksasatya/go-rbac-auth/internal/domain/repository"
)

// Store is a map-backed implementation of the three repositories. It
// mirrors the postgres constraints: unique email and names, link rows that
// reference existing rows, cascading deletes.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]entity.User
	roles     map[int64]entity.Role
	perms     map[int64]entity.Permission
	userRoles map[int64]map[int64]bool
	rolePerms map[int64]map[int64]bool
	err       error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:     map[int64]entity.User{},
		roles:     map[int64]entity.Role{},
		perms:     map[int64]entity.Permission{},
		userRoles: map[int64]map[int64]bool{},
		rolePerms: map[int64]map[int64]bool{},
	}
}

// FailWith makes every subsequent call return err; nil restores normal
// behaviour.
func (m *Store) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Store) Users() repo.UserRepository             { return userRepo{m} }
func (m *Store) Roles() repo.RoleRepository             { return roleRepo{m} }
func (m *Store) Permissions() repo.PermissionRepository { return permissionRepo{m} }

func (m *Store) id() int64 {
	m.nextID++
	return m.nextID
}

func sortedKeys(set map[int64]bool) []int64 {
	out := make([]int64, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Store) roleWithPerms(id int64) entity.Role {
	r := m.roles[id]
	r.Permissions = []entity.Permission{}
	for _, pid := range sortedKeys(m.rolePerms[id]) {
		r.Permissions = append(r.Permissions, m.perms[pid])
	}
	return r
}

func (m *Store) userWithRoles(id int64) entity.User {
	u := m.users[id]
	u.Roles = []entity.Role{}
	for _, rid := range sortedKeys(m.userRoles[id]) {
		u.Roles = append(u.Roles, m.roleWithPerms(rid))
	}
	return u
}

type userRepo struct{ *Store }

func (m userRepo) FindByEmail(_ context.Context, email string, withRoles bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for id, u := range m.users {
		if u.Email == email {
			if withRoles {
				u = m.userWithRoles(id)
			}
			return &u, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m userRepo) FindByID(_ context.Context, id int64, withRoles bool) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	if withRoles {
		u = m.userWithRoles(id)
	}
	return &u, nil
}

func (m userRepo) FindAll(context.Context) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ids := make(map[int64]bool, len(m.users))
	for id := range m.users {
		ids[id] = true
	}
	out := []entity.User{}
	for _, id := range sortedKeys(ids) {
		out = append(out, m.userWithRoles(id))
	}
	return out, nil
}

func (m userRepo) emailTaken(email string, except int64) bool {
	for id, u := range m.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (m userRepo) Create(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.emailTaken(u.Email, 0) {
		return repo.ErrDuplicate
	}
	u.ID = m.id()
	u.CreatedAt, u.UpdatedAt = time.Now(), time.Now()
	stored := *u
	stored.Roles = nil
	m.users[u.ID] = stored
	return nil
}

func (m userRepo) Update(_ context.Context, u *entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[u.ID]; !ok {
		return repo.ErrNotFound
	}
	if m.emailTaken(u.Email, u.ID) {
		return repo.ErrDuplicate
	}
	stored := *u
	stored.Roles = nil
	m.users[u.ID] = stored
	return nil
}

func (m userRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.users, id)
	delete(m.userRoles, id)
	return nil
}

func (m userRepo) ReplaceRoles(_ context.Context, userID int64, roleIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[userID]; !ok {
		return repo.ErrNotFound
	}
	next := map[int64]bool{}
	for _, rid := range roleIDs {
		if _, ok := m.roles[rid]; !ok {
			return repo.ErrReference
		}
		next[rid] = true
	}
	m.userRoles[userID] = next
	return nil
}

func (m userRepo) AddRole(_ context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	_, uok := m.users[userID]
	_, rok := m.roles[roleID]
	if !uok || !rok {
		return repo.ErrReference
	}
	if m.userRoles[userID][roleID] {
		return repo.ErrDuplicate
	}
	if m.userRoles[userID] == nil {
		m.userRoles[userID] = map[int64]bool{}
	}
	m.userRoles[userID][roleID] = true
	return nil
}

func (m userRepo) RemoveRole(_ context.Context, userID, roleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if !m.userRoles[userID][roleID] {
		return repo.ErrNotFound
	}
	delete(m.userRoles[userID], roleID)
	return nil
}

type roleRepo struct{ *Store }

func (m roleRepo) FindByID(_ context.Context, id int64) (*entity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.roles[id]; !ok {
		return nil, repo.ErrNotFound
	}
	r := m.roleWithPerms(id)
	return &r, nil
}

func (m roleRepo) FindByIDs(_ context.Context, ids []int64) ([]entity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []entity.Role{}
	for _, id := range ids {
		if _, ok := m.roles[id]; ok {
			out = append(out, m.roleWithPerms(id))
		}
	}
	return out, nil
}

func (m roleRepo) list(activeOnly bool) ([]entity.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ids := map[int64]bool{}
	for id, r := range m.roles {
		if !activeOnly || r.IsActive {
			ids[id] = true
		}
	}
	out := []entity.Role{}
	for _, id := range sortedKeys(ids) {
		out = append(out, m.roleWithPerms(id))
	}
	return out, nil
}

func (m roleRepo) FindAll(context.Context) ([]entity.Role, error)    { return m.list(false) }
func (m roleRepo) FindActive(context.Context) ([]entity.Role, error) { return m.list(true) }

func (m roleRepo) nameTaken(name string, except int64) bool {
	for id, r := range m.roles {
		if id != except && r.Name == name {
			return true
		}
	}
	return false
}

func (m roleRepo) linkSet(ids []int64) (map[int64]bool, error) {
	set := map[int64]bool{}
	for _, pid := range ids {
		if _, ok := m.perms[pid]; !ok {
			return nil, repo.ErrReference
		}
		set[pid] = true
	}
	return set, nil
}

func (m roleRepo) Create(_ context.Context, r *entity.Role, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.nameTaken(r.Name, 0) {
		return repo.ErrDuplicate
	}
	set, err := m.linkSet(permissionIDs)
	if err != nil {
		return err
	}
	r.ID = m.id()
	r.CreatedAt, r.UpdatedAt = time.Now(), time.Now()
	stored := *r
	stored.Permissions = nil
	m.roles[r.ID] = stored
	m.rolePerms[r.ID] = set
	return nil
}

func (m roleRepo) Update(_ context.Context, r *entity.Role, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.roles[r.ID]; !ok {
		return repo.ErrNotFound
	}
	if m.nameTaken(r.Name, r.ID) {
		return repo.ErrDuplicate
	}
	if permissionIDs != nil {
		set, err := m.linkSet(permissionIDs)
		if err != nil {
			return err
		}
		m.rolePerms[r.ID] = set
	}
	stored := *r
	stored.Permissions = nil
	m.roles[r.ID] = stored
	return nil
}

func (m roleRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.roles[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.roles, id)
	delete(m.rolePerms, id)
	for _, set := range m.userRoles {
		delete(set, id)
	}
	return nil
}

func (m roleRepo) ReplacePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.roles[roleID]; !ok {
		return repo.ErrNotFound
	}
	set, err := m.linkSet(permissionIDs)
	if err != nil {
		return err
	}
	m.rolePerms[roleID] = set
	return nil
}

func (m roleRepo) AddPermission(_ context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	_, rok := m.roles[roleID]
	_, pok := m.perms[permissionID]
	if !rok || !pok {
		return repo.ErrReference
	}
	if m.rolePerms[roleID][permissionID] {
		return repo.ErrDuplicate
	}
	if m.rolePerms[roleID] == nil {
		m.rolePerms[roleID] = map[int64]bool{}
	}
	m.rolePerms[roleID][permissionID] = true
	return nil
}

func (m roleRepo) RemovePermission(_ context.Context, roleID, permissionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if !m.rolePerms[roleID][permissionID] {
		return repo.ErrNotFound
	}
	delete(m.rolePerms[roleID], permissionID)
	return nil
}

type permissionRepo struct{ *Store }

func (m permissionRepo) FindByID(_ context.Context, id int64) (*entity.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.perms[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &p, nil
}

func (m permissionRepo) FindByIDs(_ context.Context, ids []int64) ([]entity.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []entity.Permission{}
	for _, id := range ids {
		if p, ok := m.perms[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m permissionRepo) FindAll(context.Context) ([]entity.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	ids := map[int64]bool{}
	for id := range m.perms {
		ids[id] = true
	}
	out := []entity.Permission{}
	for _, id := range sortedKeys(ids) {
		out = append(out, m.perms[id])
	}
	return out, nil
}

func (m permissionRepo) Create(_ context.Context, p *entity.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.perms {
		if existing.Name == p.Name {
			return repo.ErrDuplicate
		}
	}
	p.ID = m.id()
	p.CreatedAt, p.UpdatedAt = time.Now(), time.Now()
	m.perms[p.ID] = *p
	return nil
}

func (m permissionRepo) Update(_ context.Context, p *entity.Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.perms[p.ID]; !ok {
		return repo.ErrNotFound
	}
	for id, existing := range m.perms {
		if id != p.ID && existing.Name == p.Name {
			return repo.ErrDuplicate
		}
	}
	m.perms[p.ID] = *p
	return nil
}

func (m permissionRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.perms[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.perms, id)
	for _, set := range m.rolePerms {
		delete(set, id)
	}
	return nil
}

var (
	_ repo.UserRepository       = userRepo{}
	_ repo.RoleRepository       = roleRepo{}
	_ repo.PermissionRepository = permissionRepo{}
)
