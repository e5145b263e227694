package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/2beens/realestate/internal/auth"
)

var _ usersRepo = (*repoMock)(nil)

type mockUser struct {
	User
	passwordHash string
}

type repoMock struct {
	mutex  sync.Mutex
	users  map[int]*mockUser
	nextID int
}

func NewRepoMock() *repoMock {
	return &repoMock{
		users:  make(map[int]*mockUser),
		nextID: 1,
	}
}

func (r *repoMock) GetCredentialByEmail(_ context.Context, email string) (*auth.Credential, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.users {
		if u.Email == email {
			return &auth.Credential{
				ID:           u.ID,
				Email:        u.Email,
				Name:         u.Name,
				Role:         u.Role,
				PasswordHash: u.passwordHash,
			}, nil
		}
	}
	return nil, auth.ErrCredentialNotFound
}

func (r *repoMock) Add(_ context.Context, user *User, passwordHash string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user.ID = r.nextID
	user.CreatedAt = time.Now()
	r.nextID++
	r.users[user.ID] = &mockUser{User: *user, passwordHash: passwordHash}
	return nil
}

func (r *repoMock) Update(_ context.Context, user *User, passwordHash string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	stored, ok := r.users[user.ID]
	if !ok {
		return ErrUserNotFound
	}
	stored.Name = user.Name
	stored.Email = user.Email
	stored.Role = user.Role
	if passwordHash != "" {
		stored.passwordHash = passwordHash
	}
	user.CreatedAt = stored.CreatedAt
	return nil
}

func (r *repoMock) Delete(_ context.Context, id int) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *repoMock) Get(_ context.Context, id int) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	user := u.User
	return &user, nil
}

func (r *repoMock) List(context.Context) ([]User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	users := make([]User, 0, len(r.users))
	for _, u := range r.users {
		users = append(users, u.User)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].ID > users[j].ID
	})
	return users, nil
}

func (r *repoMock) EmailTaken(_ context.Context, email string, excludeID int) (bool, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.users {
		if u.Email == email && u.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repoMock) passwordHash(id int) string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if u, ok := r.users[id]; ok {
		return u.passwordHash
	}
	return ""
}
