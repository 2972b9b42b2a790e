package main

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ehaomiao/slim/internal/app"
	"github.com/ehaomiao/slim/internal/config"
	"github.com/ehaomiao/slim/internal/dispatch"
	apperrors "github.com/ehaomiao/slim/internal/errors"
	"github.com/ehaomiao/slim/internal/handlers"
	"github.com/ehaomiao/slim/internal/renderer"
	"github.com/ehaomiao/slim/internal/web"
)

const userNotFoundID = "UserNotFoundHandler"

var (
	taxonomy = apperrors.NewTaxonomy()

	// KindUserNotFound is raised for unknown user IDs
	KindUserNotFound = taxonomy.MustDefine("ClientUserNotFound", apperrors.KindClientRouteNotFound, -40401, 0)
)

// users is the demo data set. The legacy entry holds GBK bytes that the
// gb2312 convertor decodes.
var users = map[string]map[string]any{
	"1": {"id": 1, "name": "  Ada Lovelace  "},
	"2": {"id": 2, "name": "\xc4\xe3\xba\xc3"},
}

// registerHandlers adds the user handler and maps it ahead of the
// configured routes
func registerHandlers(a *app.Application) error {
	err := a.Container.RegisterHandler(userNotFoundID, func() (dispatch.Handler, error) {
		return handlers.NewNotFoundHandler(a.Renderer), nil
	})
	if err != nil {
		return err
	}

	a.Config.Dispatch.Handlers = append(config.HandlerMappings{
		{Kind: KindUserNotFound.Name(), Handler: userNotFoundID},
	}, a.Config.Dispatch.Handlers...)
	return nil
}

func registerRoutes(r chi.Router, a *app.Application) {
	r.Get("/users/{id}", a.Handle(func(req *http.Request, resp *web.Response) (*web.Response, error) {
		id := chi.URLParam(req, "id")
		user, ok := users[id]
		if !ok {
			return nil, apperrors.Newf(KindUserNotFound, "user %s not found", id)
		}
		return a.Renderer.Process(renderer.Context{Content: user, Response: resp})
	}))

	r.Post("/users", a.Handle(func(req *http.Request, _ *web.Response) (*web.Response, error) {
		if !strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
			return nil, apperrors.New(apperrors.KindClient, "Content-Type must be application/json",
				apperrors.WithCode(-41500), apperrors.WithRequest(req))
		}
		return nil, apperrors.New(apperrors.KindRuntime, "user store is read-only")
	}))
}
