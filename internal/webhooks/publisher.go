package webhooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"wlcheck/internal/store"
)

// Subscription is a configured receiver of validation events.
type Subscription struct {
	URL    string
	Secret string
}

type Publisher struct {
	Store store.Store
	Subs  []Subscription
}

func NewPublisher(s store.Store, subs []Subscription) *Publisher {
	return &Publisher{Store: s, Subs: subs}
}

// Emit enqueues one delivery of the event per subscription.
func (p *Publisher) Emit(ctx context.Context, tenantID, eventType string, data any) {
	if p == nil || len(p.Subs) == 0 {
		return
	}
	payload := map[string]any{
		"id":       fmt.Sprintf("evt_%d", time.Now().UnixNano()),
		"type":     eventType,
		"tenantId": tenantID,
		"ts":       time.Now().UTC().Format(time.RFC3339),
		"data":     data,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("webhook %s: marshal payload: %v", eventType, err)
		return
	}
	for _, s := range p.Subs {
		if _, err := p.Store.EnqueueWebhook(ctx, tenantID, eventType, s.URL, s.Secret, body); err != nil {
			log.Printf("webhook %s: enqueue for %s: %v", eventType, s.URL, err)
		}
	}
}
