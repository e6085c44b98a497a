package auth0

import (
	"context"
	"sync"
)

// FakeClient is a test implementation of Client. It is safe for concurrent
// use.
type FakeClient struct {
	mu    sync.RWMutex
	users map[string]*UserInfo // keyed by access token
}

func NewFakeClient() *FakeClient {
	return &FakeClient{
		users: make(map[string]*UserInfo),
	}
}

func (c *FakeClient) GetUserInfo(_ context.Context, accessToken string) (*UserInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if user, ok := c.users[accessToken]; ok {
		return user, nil
	}
	return nil, ErrUserInfoFailed
}

// AddUser adds a user to the fake for testing
func (c *FakeClient) AddUser(accessToken string, info *UserInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[accessToken] = info
}
