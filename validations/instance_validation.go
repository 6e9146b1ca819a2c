package validations

import (
	"context"
	"regexp"

	"github.com/AzielCF/az-relay/channel/domain/instance"
	pkgError "github.com/AzielCF/az-relay/pkg/error"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	instanceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	phonePattern        = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
	recipientPattern    = regexp.MustCompile(`^(\+?[0-9]{8,15}|[0-9]{8,15}(-[0-9]+)?@(s\.whatsapp\.net|g\.us))$`)
)

func instanceNameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Match(instanceNamePattern).Error("must be 1-64 letters, digits, '-' or '_'"),
	}
}

func ValidateInstanceName(name string) error {
	if err := validation.Validate(name, instanceNameRules()...); err != nil {
		return pkgError.ValidationError("name: " + err.Error())
	}
	return nil
}

func ValidateCreateInstance(ctx context.Context, request instance.CreateRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, instanceNameRules()...),
		validation.Field(&request.Number, validation.Match(phonePattern)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidateConnectInstance(ctx context.Context, request instance.ConnectRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, instanceNameRules()...),
		validation.Field(&request.Number, validation.Match(phonePattern)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}

func ValidatePresence(ctx context.Context, request instance.PresenceRequest) error {
	if err := ValidateInstanceName(request.Name); err != nil {
		return err
	}
	if !request.Presence.Valid() {
		return pkgError.InvalidPresenceError(request.Presence)
	}
	return nil
}

func ValidateSendText(ctx context.Context, request instance.SendTextRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Name, instanceNameRules()...),
		validation.Field(&request.Number, validation.Required, validation.Match(recipientPattern)),
		validation.Field(&request.Text, validation.Required, validation.Length(1, 4096)),
	)
	if err != nil {
		return pkgError.ValidationError(err.Error())
	}
	return nil
}
