package main

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/editor"
	"github.com/meikuraledutech/canvas/factory"
	"github.com/meikuraledutech/canvas/metrics"
	"github.com/meikuraledutech/canvas/remote"
	"github.com/meikuraledutech/canvas/remote/memory"
	"github.com/meikuraledutech/canvas/viewport"
)

type deps struct {
	workspace *editor.Workspace
	store     canvas.Store
	backend   *memory.Backend
	inbox     *remote.Inbox
	metrics   *metrics.Registry
	logger    *zap.Logger
}

// ── Request bodies ───────────────────────────────────────────────────

type dropRequest struct {
	Type     canvas.NodeKind  `json:"type" validate:"omitempty,oneof=agent funcion integration integration-item"`
	Position canvas.Point     `json:"position"`
	Data     *canvas.NodeData `json:"data"`
}

type sizeRequest struct {
	Width  float64 `json:"width" validate:"gt=0"`
	Height float64 `json:"height" validate:"gt=0"`
}

type selectionRequest struct {
	IDs []string `json:"ids" validate:"dive,required"`
}

type fitRequest struct {
	Target string `json:"target" validate:"required,oneof=all selection"`
}

type refreshRequest struct {
	ResourceID string `json:"resourceId"`
}

type authRequest struct {
	AuthenticatorID string `json:"authenticatorId" validate:"required"`
}

type nodeMenuRequest struct {
	NodeID string       `json:"nodeId" validate:"required"`
	Screen canvas.Point `json:"screen"`
}

type edgeMenuRequest struct {
	EdgeID string       `json:"edgeId" validate:"required"`
	Screen canvas.Point `json:"screen"`
}

type pointerRequest struct {
	Inside bool `json:"inside"`
}

type entryRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

type agentRequest struct {
	ID             string `json:"id"`
	Name           string `json:"name" validate:"required"`
	Description    string `json:"description"`
	OrganizationID string `json:"organizationId" validate:"required"`
}

type authenticatorRequest struct {
	Name           string         `json:"name" validate:"required"`
	Type           string         `json:"type" validate:"required"`
	OrganizationID string         `json:"organizationId" validate:"required"`
	Config         map[string]any `json:"config"`
}

var validate = validator.New()

// bind decodes the JSON body into v and validates it.
func bind(c fiber.Ctx, v any) error {
	if err := c.Bind().JSON(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := validate.Struct(v); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

// statusOf maps domain errors to HTTP status codes.
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, canvas.ErrNodeNotFound),
		errors.Is(err, canvas.ErrEdgeNotFound),
		errors.Is(err, remote.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, canvas.ErrUnknownKind):
		return fiber.StatusBadRequest
	case errors.Is(err, canvas.ErrConnectionNotAllowed),
		errors.Is(err, canvas.ErrNoCurrentAgent),
		errors.Is(err, canvas.ErrMissingAgent),
		errors.Is(err, canvas.ErrFunctionNotFound),
		errors.Is(err, canvas.ErrAuthenticatorNotFound),
		errors.Is(err, editor.ErrNotEditable):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrMenuClosed):
		return fiber.StatusConflict
	case errors.Is(err, canvas.ErrNoStore):
		return fiber.StatusNotImplemented
	}
	return fiber.StatusInternalServerError
}

func fail(c fiber.Ctx, err error) error {
	return c.Status(statusOf(err)).JSON(fiber.Map{"error": err.Error()})
}

// observe logs every request and records it in the HTTP collectors.
func observe(logger *zap.Logger, m *metrics.Registry) fiber.Handler {
	logger = logger.With(zap.String("component", "http"))
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		elapsed := time.Since(start)
		route := c.Route().Path
		m.RecordHTTPRequest(c.Method(), route, strconv.Itoa(status), elapsed)
		logger.Debug("request",
			zap.String("method", c.Method()),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("elapsed", elapsed))
		return err
	}
}

func newApp(d deps, cfg fiber.Config) *fiber.App {
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.metrics == nil {
		d.metrics = metrics.NewRegistry()
	}
	// params and headers are stored in sessions well past the request
	cfg.Immutable = true
	cfg.ErrorHandler = func(c fiber.Ctx, err error) error { return fail(c, err) }
	app := fiber.New(cfg)
	app.Use(recoverer.New())
	app.Use(observe(d.logger, d.metrics))

	app.Get("/metrics", adaptor.HTTPHandler(d.metrics.Handler()))
	app.Get("/healthz", func(c fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	// open returns the session of the canvas in the path, opening it on
	// first use for the organization in X-Organization-ID.
	open := func(c fiber.Ctx) (*editor.Session, error) {
		return d.workspace.Open(c.Context(), c.Params("agent"), c.Get("X-Organization-ID"))
	}

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := d.store.CreateSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := d.store.DropSchema(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Backend (in-process) ──────────────────────────────────────────
	app.Post("/agents", func(c fiber.Ctx) error {
		var req agentRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		a := d.backend.PutAgent(remote.Agent{
			ID:             req.ID,
			Name:           req.Name,
			Description:    req.Description,
			OrganizationID: req.OrganizationID,
		})
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	app.Post("/authenticators", func(c fiber.Ctx) error {
		var req authenticatorRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		a := d.backend.PutAuthenticator(remote.Authenticator{
			Name:           req.Name,
			Type:           req.Type,
			OrganizationID: req.OrganizationID,
			Config:         req.Config,
		})
		return c.Status(fiber.StatusCreated).JSON(a)
	})

	app.Get("/notifications", func(c fiber.Ctx) error {
		return c.JSON(d.inbox.Active())
	})

	// ── Canvases ──────────────────────────────────────────────────────
	app.Get("/canvases", func(c fiber.Ctx) error {
		ids, err := d.store.ListGraphs(c.Context())
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"stored": ids, "open": d.workspace.Agents()})
	})

	app.Get("/canvases/:agent", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(s.Snapshot())
	})

	app.Get("/canvases/:agent/render", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		frame, err := s.Render()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(frame)
	})

	app.Post("/canvases/:agent/save", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		if err := s.Save(c.Context()); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/canvases/:agent/close", func(c fiber.Ctx) error {
		if err := d.workspace.Close(c.Context(), c.Params("agent")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Delete("/canvases/:agent", func(c fiber.Ctx) error {
		id := c.Params("agent")
		if err := d.workspace.Close(c.Context(), id); err != nil {
			return fail(c, err)
		}
		if err := d.store.DeleteGraph(c.Context(), id); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/canvases/:agent/nodes", func(c fiber.Ctx) error {
		var req dropRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		created, err := s.Drop(req.Type, req.Position, req.Data)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	app.Post("/canvases/:agent/nodes/:id/children", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		created, err := s.CreateChild(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(created)
	})

	app.Put("/canvases/:agent/nodes/:id/position", func(c fiber.Ctx) error {
		var req canvas.Point
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		n, err := s.Move(c.Params("id"), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(n)
	})

	app.Put("/canvases/:agent/nodes/:id/size", func(c fiber.Ctx) error {
		var req sizeRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		n, err := s.Measure(c.Params("id"), canvas.Size{Width: req.Width, Height: req.Height})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(n)
	})

	app.Delete("/canvases/:agent/nodes/:id", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		withEdges := c.Query("edges") == "true"
		if err := s.DeleteNode(c.Context(), c.Params("id"), withEdges); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/canvases/:agent/nodes/:id/editor", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		req, err := s.OpenEditor(c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(req.Form)
	})

	app.Delete("/canvases/:agent/editor", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		s.CloseEditor()
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Post("/canvases/:agent/nodes/:id/refresh", func(c fiber.Ctx) error {
		var req refreshRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		if err := s.Refresh(c.Context(), c.Params("id"), req.ResourceID); err != nil {
			return fail(c, err)
		}
		n, _ := s.Node(c.Params("id"))
		return c.JSON(n)
	})

	app.Put("/canvases/:agent/nodes/:id/function", func(c fiber.Ctx) error {
		var req editor.FunctionInput
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		n, err := s.SaveFunction(c.Context(), c.Params("id"), req)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(n)
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/canvases/:agent/edges", func(c fiber.Ctx) error {
		var req factory.Connection
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		e, err := s.Connect(req)
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(e)
	})

	app.Delete("/canvases/:agent/edges/:id", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		if err := s.RemoveEdge(c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Get("/canvases/:agent/edges/:id/authenticators", func(c fiber.Ctx) error {
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		opts, err := s.AuthOptions(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(opts)
	})

	app.Put("/canvases/:agent/edges/:id/authenticator", func(c fiber.Ctx) error {
		var req authRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		e, err := s.SelectAuthenticator(c.Context(), c.Params("id"), req.AuthenticatorID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(e)
	})

	// ── Selection & camera ────────────────────────────────────────────
	app.Put("/canvases/:agent/selection", func(c fiber.Ctx) error {
		var req selectionRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		// load failures are rendered on the node; only unknown ids fail
		if err := s.Select(c.Context(), req.IDs...); errors.Is(err, canvas.ErrNodeNotFound) {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"selection": s.Selected()})
	})

	app.Post("/canvases/:agent/fit", func(c fiber.Ctx) error {
		var req fitRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		if req.Target == "selection" {
			tr, ok := s.FitToSelection()
			if !ok {
				return c.SendStatus(fiber.StatusNoContent)
			}
			return c.JSON(tr)
		}
		tr := s.FitAll()
		if tr == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.JSON(tr)
	})

	app.Put("/canvases/:agent/camera", func(c fiber.Ctx) error {
		var req viewport.Transform
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.Zoom <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "zoom must be positive")
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		s.Pan(req)
		return c.JSON(s.Camera())
	})

	app.Put("/canvases/:agent/viewport", func(c fiber.Ctx) error {
		var req sizeRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		s.ResizeViewport(canvas.Size{Width: req.Width, Height: req.Height})
		return c.SendStatus(fiber.StatusNoContent)
	})

	// ── Menus ─────────────────────────────────────────────────────────
	app.Post("/canvases/:agent/menus/node", func(c fiber.Ctx) error {
		var req nodeMenuRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		v, err := s.OpenNodeMenu(req.NodeID, req.Screen)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(v)
	})

	app.Post("/canvases/:agent/menus/edge", func(c fiber.Ctx) error {
		var req edgeMenuRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		v, err := s.OpenEdgeMenu(req.EdgeID, req.Screen)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(v)
	})

	app.Post("/canvases/:agent/menus/:menu/mount", func(c fiber.Ctx) error {
		var req sizeRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		pos, err := s.MountMenu(editor.MenuTarget(c.Params("menu")), canvas.Size{Width: req.Width, Height: req.Height})
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(pos)
	})

	app.Post("/canvases/:agent/menus/:menu/pointer", func(c fiber.Ctx) error {
		var req pointerRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		closed, err := s.MenuPointerDown(editor.MenuTarget(c.Params("menu")), req.Inside)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"closed": closed})
	})

	app.Post("/canvases/:agent/menus/:menu/select", func(c fiber.Ctx) error {
		var req entryRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		s, err := open(c)
		if err != nil {
			return fail(c, err)
		}
		if err := s.SelectMenuEntry(editor.MenuTarget(c.Params("menu")), *req.Index); err != nil {
			return fail(c, err)
		}
		frame, err := s.Render()
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(frame)
	})

	return app
}
