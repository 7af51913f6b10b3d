package di

import (
	"context"
	"testing"

	"github.com/ssargent/nucleon/pkg/api"
	"github.com/ssargent/nucleon/pkg/config"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type stubStarter struct{}

func (stubStarter) StartServer(context.Context, *config.Config, *zap.Logger) error { return nil }

type stubFactory struct{}

func (stubFactory) CreateServerStarter() api.ServerStarter { return stubStarter{} }

func TestNewContainer(t *testing.T) {
	c := NewContainer()

	factory := c.GetServerFactory()
	assert.IsType(t, &api.DefaultServerFactory{}, factory)
	assert.IsType(t, &api.DefaultServerStarter{}, factory.CreateServerStarter())
}

func TestSetServerFactory(t *testing.T) {
	c := NewContainer()
	c.SetServerFactory(stubFactory{})

	assert.Equal(t, stubFactory{}, c.GetServerFactory())
	assert.Equal(t, stubStarter{}, c.GetServerFactory().CreateServerStarter())
}
