package middleware

import (
	"fmt"

	"github.com/AzielCF/az-relay/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Recovery turns panics raised with utils.PanicIfNeeded into response envelopes.
func Recovery() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}

			err, ok := recovered.(error)
			if !ok {
				err = fmt.Errorf("%v", recovered)
			}
			res := utils.Failure(err)
			if res.Status >= 500 {
				logrus.Errorf("[REST] Panic recovered in %s %s: %v", ctx.Method(), ctx.Path(), err)
			} else {
				logrus.Debugf("[REST] %s %s rejected: %v", ctx.Method(), ctx.Path(), err)
			}

			_ = ctx.Status(res.Status).JSON(res)
		}()

		return ctx.Next()
	}
}
