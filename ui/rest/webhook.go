package rest

import (
	"context"
	"encoding/json"

	"github.com/AzielCF/az-relay/channel/domain/event"
	"github.com/AzielCF/az-relay/pkg/msgworker"
	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Webhook is the public ingress the gateway pushes events to. It always
// answers 200: the gateway retries on anything else and an event we do not
// understand is never worth a retry.
type Webhook struct {
	Dispatcher event.IDispatcherUsecase

	// Pool is optional. When set, envelopes are acknowledged immediately and
	// dispatched in the background, keyed by instance.
	Pool *msgworker.Pool
}

func InitRestWebhook(app fiber.Router, dispatcher event.IDispatcherUsecase, pool *msgworker.Pool) Webhook {
	rest := Webhook{Dispatcher: dispatcher, Pool: pool}
	app.Post("/webhook", rest.Receive)
	app.Post("/webhook/:event", rest.Receive)
	return rest
}

func (handler *Webhook) Receive(c *fiber.Ctx) error {
	var env event.Envelope
	if err := json.Unmarshal(c.Body(), &env); err != nil {
		logrus.WithError(err).Warn("[WEBHOOK] malformed envelope ignored")
		return c.JSON(utils.Success("Webhook ignored", event.DispatchResult{Reason: "malformed envelope"}))
	}
	if env.Event == "" {
		env.Event = c.Params("event")
	}

	if handler.Pool != nil {
		accepted := handler.Pool.TryDispatch(msgworker.Job{
			Instance: env.Instance,
			Event:    env.Event,
			Handler: func(ctx context.Context) error {
				handler.Dispatcher.Dispatch(ctx, env)
				return nil
			},
		})
		if accepted {
			return c.JSON(utils.Success("Webhook queued", event.DispatchResult{
				Event:    env.Event,
				Instance: env.Instance,
				Handled:  true,
				Reason:   "queued",
			}))
		}
		logrus.WithFields(logrus.Fields{"instance": env.Instance, "event": env.Event}).
			Warn("[WEBHOOK] worker pool rejected envelope, processing inline")
	}

	// The request context dies with the connection; the gateway does not wait.
	result := handler.Dispatcher.Dispatch(context.WithoutCancel(c.UserContext()), env)
	return c.JSON(utils.Success("Webhook processed", result))
}
