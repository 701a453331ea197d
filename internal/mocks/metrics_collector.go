package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MetricsCollector is a mock type for the ports.MetricsCollector interface
type MetricsCollector struct {
	mock.Mock
}

// NewMetricsCollector creates a mock that asserts its expectations on cleanup
func NewMetricsCollector(t interface {
	mock.TestingT
	Cleanup(func())
}) *MetricsCollector {
	m := &MetricsCollector{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

// NewPermissiveMetricsCollector accepts any call without expectations
func NewPermissiveMetricsCollector() *MetricsCollector {
	m := &MetricsCollector{}
	m.On("RecordCacheHit", mock.Anything).Maybe()
	m.On("RecordCacheMiss", mock.Anything).Maybe()
	m.On("RecordWeatherAPICall", mock.Anything, mock.Anything).Maybe()
	m.On("RecordWeeklyFallback").Maybe()
	m.On("RecordStaleResult", mock.Anything).Maybe()
	m.On("RecordSearch", mock.Anything).Maybe()
	return m
}

func (m *MetricsCollector) RecordCacheHit(kind string) {
	m.Called(kind)
}

func (m *MetricsCollector) RecordCacheMiss(kind string) {
	m.Called(kind)
}

func (m *MetricsCollector) RecordWeatherAPICall(endpoint string, success bool) {
	m.Called(endpoint, success)
}

func (m *MetricsCollector) RecordWeeklyFallback() {
	m.Called()
}

func (m *MetricsCollector) RecordStaleResult(panel string) {
	m.Called(panel)
}

func (m *MetricsCollector) RecordSearch(trigger string) {
	m.Called(trigger)
}
