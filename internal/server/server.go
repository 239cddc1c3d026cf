// Package server wires the projektbot components together.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools, resources and services that depend on
// abstractions. No business logic lives here, only wiring.
package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/HendryAvila/projektbot/internal/config"
	"github.com/HendryAvila/projektbot/internal/directory"
	"github.com/HendryAvila/projektbot/internal/gateway"
	"github.com/HendryAvila/projektbot/internal/logging"
	"github.com/HendryAvila/projektbot/internal/membership"
	"github.com/HendryAvila/projektbot/internal/prompts"
	"github.com/HendryAvila/projektbot/internal/resources"
	"github.com/HendryAvila/projektbot/internal/roles"
	"github.com/HendryAvila/projektbot/internal/store"
	"github.com/HendryAvila/projektbot/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ErrNoGuild is returned when a token is configured without a guild to
// manage roles in.
var ErrNoGuild = errors.New("discord.guild_id is required to manage roles")

// Core holds the services shared by the chat gateway and the MCP surface.
type Core struct {
	Store      *store.Store
	Applier    *roles.Applier
	Directory  *directory.Service
	Membership *membership.Service

	// Offline is set when role tags live in process memory only.
	Offline bool
	Log     *logging.Logger
}

// NewCore opens the record store and builds the directory and membership
// services on top of tagger. recorder may be nil.
//
// The returned cleanup function closes the store and must be called on
// shutdown. It is always non-nil.
func NewCore(cfg *config.Config, tagger roles.Tagger, recorder roles.FailureRecorder, log *logging.Logger) (*Core, func(), error) {
	policy, err := directory.ParsePolicy(cfg.Projects.DeletePolicy)
	if err != nil {
		return nil, noop, err
	}

	db, err := store.New(store.Config{
		DataDir:       cfg.Store.DataDir,
		BusyTimeoutMS: cfg.Store.BusyTimeoutMS,
	})
	if err != nil {
		return nil, noop, fmt.Errorf("opening record store: %w", err)
	}
	cleanup := func() {
		if err := db.Close(); err != nil {
			log.Warn(context.Background(), "closing record store", zap.Error(err))
		}
	}

	applier := roles.NewApplier(tagger, log.Named("roles"), recorder)
	_, offline := tagger.(*roles.MemoryTagger)
	return &Core{
		Store:      db,
		Applier:    applier,
		Directory:  directory.New(db, applier, policy, log.Named("directory")),
		Membership: membership.NewService(db, applier, log.Named("membership")),
		Offline:    offline,
		Log:        log,
	}, cleanup, nil
}

// NewTagger returns a REST role tagger when a token is configured and the
// in-memory tagger otherwise. The in-memory tagger keeps the record store
// usable offline; its role ids are not known to the chat service.
func NewTagger(cfg *config.Config, log *logging.Logger) (roles.Tagger, error) {
	if cfg.Discord.Token == "" {
		log.Warn(context.Background(), "no discord token configured, role changes stay in memory")
		return roles.NewMemoryTagger(), nil
	}
	if cfg.Discord.GuildID == "" {
		return nil, ErrNoGuild
	}
	session, err := gateway.NewSession(cfg.Discord.Token)
	if err != nil {
		return nil, err
	}
	return gateway.NewRoleTagger(session, cfg.Discord.GuildID, cfg.Roles.RatePerSecond, cfg.Roles.Burst), nil
}

// New creates the MCP server with every tool, prompt and resource registered.
func New(core *Core) *server.MCPServer {
	s := server.NewMCPServer(
		"projektbot",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register project tools ---

	var addOpts []tools.ProjectAddOption
	if core.Offline {
		addOpts = append(addOpts, tools.OfflineRoles(core.Log.Named("tools")))
	}
	addTool := tools.NewProjectAddTool(core.Directory, addOpts...)
	s.AddTool(addTool.Definition(), addTool.Handle)

	removeTool := tools.NewProjectRemoveTool(core.Directory)
	s.AddTool(removeTool.Definition(), removeTool.Handle)

	listTool := tools.NewProjectListTool(core.Directory)
	s.AddTool(listTool.Definition(), listTool.Handle)

	infoTool := tools.NewProjectInfoTool(core.Directory)
	s.AddTool(infoTool.Definition(), infoTool.Handle)

	// --- Register membership tools ---

	joinTool := tools.NewProjectJoinTool(core.Membership)
	s.AddTool(joinTool.Definition(), joinTool.Handle)

	leaveTool := tools.NewProjectLeaveTool(core.Membership)
	s.AddTool(leaveTool.Definition(), leaveTool.Handle)

	leadTool := tools.NewProjectLeadTool(core.Directory)
	s.AddTool(leadTool.Definition(), leadTool.Handle)

	// --- Register repository link tools ---

	repoAdd := tools.NewProjectRepoAddTool(core.Directory)
	s.AddTool(repoAdd.Definition(), repoAdd.Handle)

	repoRemove := tools.NewProjectRepoRemoveTool(core.Directory)
	s.AddTool(repoRemove.Definition(), repoRemove.Handle)

	repoModify := tools.NewProjectRepoModifyTool(core.Directory)
	s.AddTool(repoModify.Definition(), repoModify.Handle)

	// --- Register user tools ---

	enrollTool := tools.NewUserEnrollTool(core.Directory)
	s.AddTool(enrollTool.Definition(), enrollTool.Handle)

	// --- Register prompts ---

	setupPrompt := prompts.NewSetupPrompt()
	s.AddPrompt(setupPrompt.Definition(), setupPrompt.Handle)

	reviewPrompt := prompts.NewReviewPrompt()
	s.AddPrompt(reviewPrompt.Definition(), reviewPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(core.Directory)
	s.AddResource(resourceHandler.ProjectsResource(), resourceHandler.HandleProjects)

	return s
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

func serverInstructions() string {
	return `projektbot manages a community's projects: who is in which project, who leads it,
and which repositories belong to it. Every project owns a member role and a leader role in the
chat service; assignment changes grant and revoke those roles.

Rules:
- A user is in at most one project. project_join moves a user who is already elsewhere.
- Users must be enrolled (user_enroll) before they can join a project.
- project_lead only accepts a current member of the project.
- A result that lists Warnings was saved; only the role change in the chat service failed.

Read projekt://projects for the full directory as JSON.`
}
