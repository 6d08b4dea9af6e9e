package upload

import (
	"time"

	"github.com/stretchr/testify/mock"
)

type mockExchanger struct {
	mock.Mock
}

func (m *mockExchanger) Exchange(cmd string) (string, error) {
	args := m.Called(cmd)
	return args.String(0), args.Error(1)
}

func (m *mockExchanger) Drain(window time.Duration) (string, error) {
	args := m.Called(window)
	return args.String(0), args.Error(1)
}

func (m *mockExchanger) on(cmd, resp string) *mock.Call {
	return m.On("Exchange", cmd).Return(resp, nil)
}
