package stripe

import (
	"testing"

	"github.com/mstoican/stripesync/pkg/billing"
	"github.com/mstoican/stripesync/storage/memory"
)

func TestNewProvider_RequiresAPIKeyAndStore(t *testing.T) {
	_, err := NewProvider(Config{
		Config: billing.Config{Store: memory.New()},
	})
	if err != billing.ErrNotConfigured {
		t.Errorf("Expected ErrNotConfigured without API key, got %v", err)
	}

	_, err = NewProvider(Config{
		StripeAPIKey: testStripeAPIKey,
	})
	if err != billing.ErrNotConfigured {
		t.Errorf("Expected ErrNotConfigured without store, got %v", err)
	}
}

func TestProvider_Name(t *testing.T) {
	provider := newTestProvider(t, memory.New())
	if provider.Name() != providerName {
		t.Errorf("Expected name %s, got %s", providerName, provider.Name())
	}
}

func TestProvider_SyncerConfigured(t *testing.T) {
	provider := newTestProvider(t, memory.New())
	if provider.Syncer() == nil {
		t.Error("Expected syncer, got nil")
	}
}

func TestProvider_WebhookHandler(t *testing.T) {
	provider := newTestProvider(t, memory.New())
	if provider.WebhookHandler() == nil {
		t.Error("Expected webhook handler, got nil")
	}
}
