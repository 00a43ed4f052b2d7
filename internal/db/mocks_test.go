package db

import (
	"context"
	"time"
)

type mockTokenProvider struct {
	GetTokenFunc func(ctx context.Context) (string, time.Time, error)
	calls        int
}

func (m *mockTokenProvider) GetToken(ctx context.Context) (string, time.Time, error) {
	m.calls++
	if m.GetTokenFunc != nil {
		return m.GetTokenFunc(ctx)
	}
	return "token", time.Now().Add(time.Hour), nil
}

func (m *mockTokenProvider) String() string {
	return "mockTokenProvider"
}
