package mocks

import (
	"github.com/stretchr/testify/mock"
	"weatherdash.app/internal/ports"
)

// Logger is a mock type for the ports.Logger interface.
// Fields are passed to Called as a single []ports.Field argument.
type Logger struct {
	mock.Mock
}

// NewLogger creates a mock that asserts its expectations on cleanup
func NewLogger(t interface {
	mock.TestingT
	Cleanup(func())
}) *Logger {
	m := &Logger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// NewPermissiveLogger accepts any log call without expectations
func NewPermissiveLogger() *Logger {
	m := &Logger{}
	for _, level := range []string{"Debug", "Info", "Warn", "Error"} {
		m.On(level, mock.Anything, mock.Anything).Maybe()
	}
	return m
}

func (m *Logger) Debug(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}

func (m *Logger) Info(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}

func (m *Logger) Warn(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}

func (m *Logger) Error(msg string, fields ...ports.Field) {
	m.Called(msg, fields)
}
