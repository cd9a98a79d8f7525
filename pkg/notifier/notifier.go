// Package notifier renders notification content per action and simulates
// delivery. It does not send real email: the "send" is a bounded random
// latency followed by an email-sent event on the notifications topic.
package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"text/template"
	"time"

	"github.com/journeykit/journey/pkg/eventbus"
	"github.com/journeykit/journey/pkg/events"
	"github.com/journeykit/journey/pkg/models"
)

// ErrUnknownAction is returned when no content template exists for the
// requested action id. The engine treats this as non-retryable.
var ErrUnknownAction = errors.New("unknown notification action")

const defaultMaxLatency = 300 * time.Millisecond

type content struct {
	subject *template.Template
	body    *template.Template
}

type renderContext struct {
	Customer *models.Customer
	Context  map[string]any
}

type Dispatcher struct {
	logger     *slog.Logger
	bus        eventbus.EventBus
	templates  map[string]content
	maxLatency time.Duration
}

func NewDispatcher(logger *slog.Logger, bus eventbus.EventBus) *Dispatcher {
	return &Dispatcher{
		logger:     logger,
		bus:        bus,
		templates:  defaultTemplates(),
		maxLatency: defaultMaxLatency,
	}
}

// WithMaxLatency overrides the simulated delivery latency bound. Tests set
// it to zero for determinism.
func (d *Dispatcher) WithMaxLatency(maxLatency time.Duration) *Dispatcher {
	d.maxLatency = maxLatency

	return d
}

func defaultTemplates() map[string]content {
	parse := func(name, subject, body string) content {
		return content{
			subject: template.Must(template.New(name + ".subject").Parse(subject)),
			body:    template.Must(template.New(name + ".body").Parse(body)),
		}
	}

	return map[string]content{
		models.ActionSendWelcome: parse("welcome",
			"Welcome aboard, {{.Customer.Name}}!",
			"Hi {{.Customer.Name}},\n\nThanks for signing up with {{.Customer.Email}}. "+
				"Have a look around and tell us what you think.\n",
		),
		models.ActionSendDiscount: parse("discount",
			"A {{.Context.category}} discount just for you",
			"Hi {{.Customer.Name}},\n\nWe noticed you were browsing {{.Context.category}}. "+
				"Here is 10% off your next {{.Context.category}} purchase.\n",
		),
		models.ActionSendReminder: parse("reminder",
			"We miss you, {{.Customer.Name}}",
			"Hi {{.Customer.Name}},\n\nIt has been a while since your last visit. "+
				"Come back and see what is new.\n",
		),
	}
}

// Dispatch renders the action's content for the customer, simulates delivery
// and publishes the email-sent event. It returns after the simulated send
// completes, so callers can gate step completion on it.
func (d *Dispatcher) Dispatch(ctx context.Context, action string, customer *models.Customer, contextData map[string]any) error {
	tmpl, ok := d.templates[action]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}

	data := renderContext{Customer: customer, Context: contextData}

	subject, err := render(tmpl.subject, data)
	if err != nil {
		return fmt.Errorf("render subject for %q: %w", action, err)
	}

	body, err := render(tmpl.body, data)
	if err != nil {
		return fmt.Errorf("render body for %q: %w", action, err)
	}

	requested := events.EmailRequested{
		BaseEvent: events.NewBase(d.bus.GenerateID(), events.EmailRequestedEvent),
		Data: events.EmailRequestData{
			CustomerID: customer.ID,
			Action:     action,
			To:         customer.Email,
		},
	}
	if err := d.bus.Publish(ctx, customer.ID, requested); err != nil {
		return fmt.Errorf("publish email request: %w", err)
	}

	if err := d.simulateDelivery(ctx); err != nil {
		return err
	}

	sent := events.EmailSent{
		BaseEvent: events.NewBase(d.bus.GenerateID(), events.EmailSentEvent),
		Data: events.EmailSentData{
			CustomerID: customer.ID,
			Action:     action,
			To:         customer.Email,
			Subject:    subject,
			Body:       body,
			SentAt:     time.Now().UTC(),
		},
	}
	if err := d.bus.Publish(ctx, customer.ID, sent); err != nil {
		return fmt.Errorf("publish email sent: %w", err)
	}

	d.logger.Info("Simulated email delivery",
		"customer_id", customer.ID, "action", action, "to", customer.Email, "subject", subject)

	return nil
}

// simulateDelivery mimics realistic send timing. Not a correctness
// requirement, so tests shrink maxLatency to near zero.
func (d *Dispatcher) simulateDelivery(ctx context.Context) error {
	if d.maxLatency <= 0 {
		return nil
	}

	delay := time.Duration(rand.Int63n(int64(d.maxLatency)))

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func render(tmpl *template.Template, data renderContext) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
