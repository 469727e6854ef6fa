// Package mocks holds testify mocks for the application ports.
package mocks

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"kbweb/application/ports"
	"kbweb/domain/core/aggregates"
	"kbweb/domain/core/entities"
	"kbweb/domain/core/valueobjects"
	"kbweb/domain/events"
)

// MockGraphService is a testify mock of ports.GraphService
type MockGraphService struct {
	mock.Mock
}

func (m *MockGraphService) ClassifyElements(ctx context.Context, addrs []valueobjects.Addr) ([]valueobjects.ElementType, error) {
	args := m.Called(ctx, addrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]valueobjects.ElementType), args.Error(1)
}

func (m *MockGraphService) FetchLinkContents(ctx context.Context, addrs []valueobjects.Addr) ([]valueobjects.LinkContent, error) {
	args := m.Called(ctx, addrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]valueobjects.LinkContent), args.Error(1)
}

func (m *MockGraphService) ResolveLabels(ctx context.Context, addrs []valueobjects.Addr) (map[valueobjects.Addr]string, error) {
	args := m.Called(ctx, addrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[valueobjects.Addr]string), args.Error(1)
}

func (m *MockGraphService) SetLinkContents(ctx context.Context, updates []ports.LinkContentUpdate) ([]bool, error) {
	args := m.Called(ctx, updates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]bool), args.Error(1)
}

func (m *MockGraphService) FindLinksByContent(ctx context.Context, content string) ([]valueobjects.Addr, error) {
	args := m.Called(ctx, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]valueobjects.Addr), args.Error(1)
}

func (m *MockGraphService) ResolveKeynodes(ctx context.Context, requests []ports.KeynodeRequest) ([]valueobjects.Addr, error) {
	args := m.Called(ctx, requests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]valueobjects.Addr), args.Error(1)
}

func (m *MockGraphService) SearchTemplate(ctx context.Context, query ports.TemplateQuery) ([]*entities.MatchRecord, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.MatchRecord), args.Error(1)
}

func (m *MockGraphService) GenerateTemplate(ctx context.Context, query ports.TemplateQuery) (*entities.MatchRecord, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MatchRecord), args.Error(1)
}

func (m *MockGraphService) CreateElements(ctx context.Context, construction *entities.Construction) ([]valueobjects.Addr, error) {
	args := m.Called(ctx, construction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]valueobjects.Addr), args.Error(1)
}

func (m *MockGraphService) DeleteElements(ctx context.Context, addrs []valueobjects.Addr) error {
	args := m.Called(ctx, addrs)
	return args.Error(0)
}

func (m *MockGraphService) Subscribe(ctx context.Context, kind ports.EventKind, addr valueobjects.Addr) (ports.Subscription, error) {
	args := m.Called(ctx, kind, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Subscription), args.Error(1)
}

func (m *MockGraphService) Unsubscribe(ctx context.Context, sub ports.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

// MockRenderer is a testify mock of ports.Renderer
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, graph *aggregates.ResultGraph) error {
	args := m.Called(ctx, graph)
	return args.Error(0)
}

// MockEventPublisher is a testify mock of ports.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockEventPublisher) PublishBatch(ctx context.Context, evts []events.DomainEvent) error {
	args := m.Called(ctx, evts)
	return args.Error(0)
}

// FakeSubscription is a channel-backed ports.Subscription for tests
type FakeSubscription struct {
	SubID   int64
	SubKind ports.EventKind
	SubAddr valueobjects.Addr
	C       chan ports.ElementEvent

	once sync.Once
}

// NewFakeSubscription creates a subscription with a buffered channel
func NewFakeSubscription(id int64, kind ports.EventKind, addr valueobjects.Addr) *FakeSubscription {
	return &FakeSubscription{SubID: id, SubKind: kind, SubAddr: addr, C: make(chan ports.ElementEvent, 16)}
}

func (s *FakeSubscription) ID() int64                         { return s.SubID }
func (s *FakeSubscription) Kind() ports.EventKind             { return s.SubKind }
func (s *FakeSubscription) Addr() valueobjects.Addr           { return s.SubAddr }
func (s *FakeSubscription) Events() <-chan ports.ElementEvent { return s.C }

// Close closes the event channel once
func (s *FakeSubscription) Close() {
	s.once.Do(func() { close(s.C) })
}

var (
	_ ports.GraphService   = (*MockGraphService)(nil)
	_ ports.Renderer       = (*MockRenderer)(nil)
	_ ports.EventPublisher = (*MockEventPublisher)(nil)
	_ ports.Subscription   = (*FakeSubscription)(nil)
)
