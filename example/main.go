package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/meikuraledutech/canvas"
	"github.com/meikuraledutech/canvas/editor"
	"github.com/meikuraledutech/canvas/memstore"
	"github.com/meikuraledutech/canvas/postgres"
	"github.com/meikuraledutech/canvas/remote"
	"github.com/meikuraledutech/canvas/remote/memory"
)

func main() {
	ctx := context.Background()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Canvases are kept in memory unless DATABASE_URL points at postgres.
	var store canvas.Store = memstore.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := postgres.Connect(ctx, dbURL, 4)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
		if err := store.CreateSchema(ctx); err != nil {
			log.Fatalf("schema: %v", err)
		}
		fmt.Println("schema created")
	}

	// ── Backend ───────────────────────────────────────────────────────
	backend := memory.New()
	agent := backend.PutAgent(remote.Agent{
		Name:           "Soporte",
		Description:    "Atiende consultas de clientes",
		OrganizationID: "acme",
	})
	auth := backend.PutAuthenticator(remote.Authenticator{
		Name:           "CRM",
		Type:           "oauth2",
		OrganizationID: "acme",
	})

	runner := remote.NewRunner(remote.NewLogNotifier(logger), logger)
	ws := editor.NewWorkspace(editor.Config{
		Viewport: canvas.Size{Width: 1280, Height: 720},
	}, backend.Services(), store, runner, nil, logger)

	s, err := ws.Open(ctx, agent.ID, agent.OrganizationID)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	s.Subscribe(func(ev editor.Event) {
		fmt.Printf("event: %s\n", ev.Type)
	})

	// ── Create a function next to the agent ───────────────────────────
	created, err := s.CreateChild(editor.RootNodeID)
	if err != nil {
		log.Fatalf("create child: %v", err)
	}
	fmt.Printf("\ncreated node %s at (%.0f, %.0f)\n", created.Node.ID, created.Node.Position.X, created.Node.Position.Y)

	fn, err := s.SaveFunction(ctx, created.Node.ID, editor.FunctionInput{
		Name:        "Buscar pedido",
		Description: "Consulta el estado de un pedido",
	})
	if err != nil {
		log.Fatalf("save function: %v", err)
	}
	fmt.Printf("function saved: %s\n", fn.Data.FunctionID)

	// ── Bind an authenticator to the auth edge ────────────────────────
	options, err := s.AuthOptions(ctx, created.Edge.ID)
	if err != nil {
		log.Fatalf("auth options: %v", err)
	}
	fmt.Printf("\n%d authenticator(s) available\n", len(options))

	edge, err := s.SelectAuthenticator(ctx, created.Edge.ID, auth.ID)
	if err != nil {
		log.Fatalf("select authenticator: %v", err)
	}
	fmt.Printf("edge %s bound to %s\n", edge.ID, edge.Data.AuthenticatorID)

	// ── Render ────────────────────────────────────────────────────────
	frame, err := s.Render()
	if err != nil {
		log.Fatalf("render: %v", err)
	}
	fmt.Println("\nframe:")
	printJSON(frame)

	// ── Persist and reload ────────────────────────────────────────────
	if err := ws.Close(ctx, agent.ID); err != nil {
		log.Fatalf("close: %v", err)
	}
	g, err := store.GetGraph(ctx, agent.ID)
	if err != nil {
		log.Fatalf("get graph: %v", err)
	}
	fmt.Println("\nstored graph:")
	printJSON(g)

	if err := store.DeleteGraph(ctx, agent.ID); err != nil {
		log.Fatalf("delete graph: %v", err)
	}
	fmt.Println("\ngraph deleted")
}

func printJSON(v any) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
}
