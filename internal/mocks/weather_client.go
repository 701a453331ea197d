// Package mocks holds testify mocks for the ports package.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"weatherdash.app/internal/ports"
)

// WeatherClient is a mock type for the ports.WeatherClient interface
type WeatherClient struct {
	mock.Mock
}

// NewWeatherClient creates a mock that asserts its expectations on cleanup
func NewWeatherClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *WeatherClient {
	m := &WeatherClient{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *WeatherClient) FetchCurrent(ctx context.Context, city string) (*ports.CurrentWeather, error) {
	args := m.Called(ctx, city)
	var current *ports.CurrentWeather
	if v := args.Get(0); v != nil {
		current = v.(*ports.CurrentWeather)
	}
	return current, args.Error(1)
}

func (m *WeatherClient) FetchHourly(ctx context.Context, coords ports.Coordinates, fallbackUTCOffset int) (*ports.HourlyForecast, error) {
	args := m.Called(ctx, coords, fallbackUTCOffset)
	var hourly *ports.HourlyForecast
	if v := args.Get(0); v != nil {
		hourly = v.(*ports.HourlyForecast)
	}
	return hourly, args.Error(1)
}

func (m *WeatherClient) FetchWeekly(ctx context.Context, coords ports.Coordinates, fallbackUTCOffset int) (*ports.WeeklyForecast, error) {
	args := m.Called(ctx, coords, fallbackUTCOffset)
	var weekly *ports.WeeklyForecast
	if v := args.Get(0); v != nil {
		weekly = v.(*ports.WeeklyForecast)
	}
	return weekly, args.Error(1)
}

func (m *WeatherClient) ProviderName() string {
	args := m.Called()
	return args.String(0)
}
