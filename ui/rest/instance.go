package rest

import (
	"github.com/AzielCF/az-relay/channel/domain/instance"
	"github.com/AzielCF/az-relay/channel/domain/pairing"
	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/AzielCF/az-relay/validations"
	"github.com/dustin/go-humanize"
	"github.com/gofiber/fiber/v2"
)

type Instance struct {
	Service  instance.ILifecycleUsecase
	Pairings pairing.IPairingUsecase
}

func InitRestInstance(app fiber.Router, service instance.ILifecycleUsecase, pairings pairing.IPairingUsecase) Instance {
	rest := Instance{Service: service, Pairings: pairings}
	app.Get("/instances", rest.ListInstances)
	app.Post("/instances", rest.CreateInstance)
	app.Post("/instances/:name/connect", rest.ConnectInstance)
	app.Get("/instances/:name/pairing", rest.GetPairing)
	app.Get("/instances/:name/status", rest.GetStatus)
	app.Get("/instances/:name/state", rest.GetState)
	app.Post("/instances/:name/logout", rest.Logout)
	app.Post("/instances/:name/restart", rest.Restart)
	app.Delete("/instances/:name", rest.DeleteInstance)
	app.Post("/instances/:name/presence", rest.SetPresence)
	app.Post("/instances/:name/messages", rest.SendText)
	return rest
}

func (handler *Instance) ListInstances(c *fiber.Ctx) error {
	instances, err := handler.Service.List(c.UserContext())
	utils.PanicIfNeeded(err)

	results := make([]map[string]any, 0, len(instances))
	for _, inst := range instances {
		results = append(results, statusView(inst))
	}
	return c.JSON(utils.Success("List instances success", results))
}

func (handler *Instance) CreateInstance(c *fiber.Ctx) error {
	var request instance.CreateRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)

	err = validations.ValidateCreateInstance(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	settings := request.Settings
	if request.Number != "" {
		settings.Number = request.Number
	}
	result, err := handler.Service.Create(c.UserContext(), request.Name, settings)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Instance created", result))
}

func (handler *Instance) ConnectInstance(c *fiber.Ctx) error {
	var request instance.ConnectRequest
	if len(c.Body()) > 0 {
		err := c.BodyParser(&request)
		utils.PanicIfNeeded(err)
	}
	request.Name = c.Params("name")

	err := validations.ValidateConnectInstance(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	result, err := handler.Service.Connect(c.UserContext(), request.Name, request.Number)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Connect instance success", result))
}

func (handler *Instance) GetPairing(c *fiber.Ctx) error {
	cred, err := handler.Pairings.GetPairingCredential(c.UserContext(), c.Params("name"), c.QueryBool("refresh", false))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Pairing credential ready", map[string]any{
		"instance":     cred.Instance,
		"kind":         cred.Kind,
		"payload":      cred.Payload,
		"pairing_code": cred.PairingCode,
		"source":       cred.Source,
		"issued_at":    cred.IssuedAt,
		"expires_at":   cred.ExpiresAt,
		"expires_in":   humanize.Time(cred.ExpiresAt),
	}))
}

func (handler *Instance) GetStatus(c *fiber.Ctx) error {
	inst, err := handler.Service.Status(c.UserContext(), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Instance status", statusView(inst)))
}

func (handler *Instance) GetState(c *fiber.Ctx) error {
	inst, err := handler.Service.State(c.UserContext(), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Instance state", statusView(inst)))
}

func (handler *Instance) Logout(c *fiber.Ctx) error {
	err := handler.Service.Disconnect(c.UserContext(), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Instance logged out", nil))
}

func (handler *Instance) Restart(c *fiber.Ctx) error {
	err := handler.Service.Restart(c.UserContext(), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Instance restarting", nil))
}

func (handler *Instance) DeleteInstance(c *fiber.Ctx) error {
	err := handler.Service.Delete(c.UserContext(), c.Params("name"))
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Instance deleted", nil))
}

func (handler *Instance) SetPresence(c *fiber.Ctx) error {
	var request instance.PresenceRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.Name = c.Params("name")

	err = validations.ValidatePresence(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	err = handler.Service.SetPresence(c.UserContext(), request.Name, request.Presence)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Presence updated", nil))
}

func (handler *Instance) SendText(c *fiber.Ctx) error {
	var request instance.SendTextRequest
	err := c.BodyParser(&request)
	utils.PanicIfNeeded(err)
	request.Name = c.Params("name")

	err = validations.ValidateSendText(c.UserContext(), request)
	utils.PanicIfNeeded(err)

	sent, err := handler.Service.Send(c.UserContext(), request.Name, request.Number, request.Text)
	utils.PanicIfNeeded(err)

	return c.JSON(utils.Success("Message sent", sent))
}

func statusView(inst instance.Instance) map[string]any {
	view := map[string]any{
		"name":        inst.Name,
		"status":      inst.Status,
		"last_update": inst.LastUpdate,
	}
	if !inst.LastUpdate.IsZero() {
		view["last_update_human"] = humanize.Time(inst.LastUpdate)
	}
	return view
}
