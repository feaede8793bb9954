package db

import (
	"context"
	"sort"

	"restaurantfinder/src/types"
)

// StaticUserStore keeps bcrypt hashes in memory, keyed by username.
type StaticUserStore struct {
	users map[string]string
}

func NewStaticUserStore(users map[string]string) *StaticUserStore {
	copied := make(map[string]string, len(users))
	for name, hash := range users {
		copied[name] = hash
	}
	return &StaticUserStore{users: copied}
}

func (s *StaticUserStore) GetUser(_ context.Context, username string) (*types.UserInDB, error) {
	hash, ok := s.users[username]
	if !ok {
		return nil, types.ErrUserNotFound
	}
	return &types.UserInDB{User: types.User{Username: username}, HashedPassword: hash}, nil
}

// UsersFromMap turns a username→hash map into records, sorted by username.
func UsersFromMap(users map[string]string) []types.UserInDB {
	out := make([]types.UserInDB, 0, len(users))
	for name, hash := range users {
		out = append(out, types.UserInDB{User: types.User{Username: name}, HashedPassword: hash})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
