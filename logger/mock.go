package logger

import (
	"github.com/stretchr/testify/mock"
)

// MockLogger is a testify mock implementing Logger.
type MockLogger struct {
	mock.Mock
}

var _ Logger = (*MockLogger)(nil)

func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

// ExpectWith registers a With expectation that returns m itself, so that
// calls on derived loggers such as the per-session one land on m. Debug
// calls are accepted too, since sessions trace their traffic at that level.
func (m *MockLogger) ExpectWith(keyValues ...any) *MockLogger {
	m.On("With", keyValues...).Return(m)
	m.On("Debug", mock.Anything, mock.Anything).Return().Maybe()

	return m
}

func (m *MockLogger) Debug(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Info(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Warn(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Error(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) Fatal(msg string, keysAndValues ...any) {
	m.Called(msg, keysAndValues)
}

func (m *MockLogger) SetLevel(level Level) {
	m.Called(level)
}

func (m *MockLogger) Level() Level {
	args := m.Called()
	return args.Get(0).(Level)
}

func (m *MockLogger) With(keyValues ...any) Logger {
	args := m.Called(keyValues...)
	return args.Get(0).(Logger)
}
