package generator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/nearyou-pipeline/internal/cache"
	"github.com/nearyou-pipeline/internal/domain"
)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func newTestService(llm LLM) *Service {
	return NewService(cache.NewMemoryCache(time.Minute), llm, time.Minute, zap.NewNop())
}

func TestService_Generate_CachesModelOutput(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.Anything).Return("Vieni da Bar Roma!", nil).Once()

	svc := newTestService(llm)
	profile := &domain.UserProfile{Age: 30, Profession: "Ingegnere", Interests: "caffè"}
	shop := &domain.Shop{ShopName: "Bar Roma", Category: "bar", Distance: 120}

	msg, cached, err := svc.Generate(context.Background(), profile, shop, Description(shop))
	assert.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, "Vieni da Bar Roma!", msg)

	msg2, cached2, err := svc.Generate(context.Background(), profile, shop, Description(shop))
	assert.NoError(t, err)
	assert.True(t, cached2)
	assert.Equal(t, msg, msg2)

	llm.AssertExpectations(t)
}

func TestService_Generate_FallbackNotCached(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.Anything).Return("", errors.New("model down")).Twice()

	svc := newTestService(llm)
	profile := &domain.UserProfile{Age: 30, Profession: "Ingegnere", Interests: "caffè"}
	shop := &domain.Shop{ShopName: "Bar Roma", Category: "bar", Distance: 80}

	msg, cached, err := svc.Generate(context.Background(), profile, shop, Description(shop))
	assert.NoError(t, err)
	assert.False(t, cached)
	assert.Contains(t, msg, "Bar Roma")

	// Second call must hit the model again, never a cached fallback.
	_, cached2, err := svc.Generate(context.Background(), profile, shop, Description(shop))
	assert.NoError(t, err)
	assert.False(t, cached2)

	llm.AssertExpectations(t)
}

func TestService_TTLDoublesForPopularCategories(t *testing.T) {
	svc := newTestService(new(mockLLM))

	assert.Equal(t, 2*time.Minute, svc.ttlFor("ristorante"))
	assert.Equal(t, 2*time.Minute, svc.ttlFor("Supermercato"))
	assert.Equal(t, time.Minute, svc.ttlFor("libreria"))
}

func TestService_Stats(t *testing.T) {
	llm := new(mockLLM)
	llm.On("Complete", mock.Anything, mock.Anything).Return("Ciao!", nil).Once()

	svc := newTestService(llm)
	profile := &domain.UserProfile{Age: 22, Profession: "Studente", Interests: "musica"}
	shop := &domain.Shop{ShopName: "Disco Shop", Category: "musica", Distance: 50}

	_, _, _ = svc.Generate(context.Background(), profile, shop, Description(shop))
	_, _, _ = svc.Generate(context.Background(), profile, shop, Description(shop))

	stats := svc.Stats(context.Background())
	assert.Equal(t, uint64(1), stats["cache_hits"])
	assert.Equal(t, uint64(1), stats["cache_misses"])
	assert.Equal(t, uint64(2), stats["total_requests"])
	assert.InDelta(t, 0.5, stats["hit_rate"], 0.001)
}

func TestFallbackMessage_KnownAndUnknownCategory(t *testing.T) {
	profile := &domain.UserProfile{Age: 40, Profession: "Medico", Interests: "vino"}

	bar := FallbackMessage(profile, &domain.Shop{ShopName: "Bar Roma", Category: "bar"})
	assert.Contains(t, bar, "Bar Roma")

	other := FallbackMessage(profile, &domain.Shop{ShopName: "Fioraio Blu", Category: "fiori"})
	assert.Contains(t, other, "Fioraio Blu")
}
